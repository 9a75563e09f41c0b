package tdtypes

import (
	"errors"
	"fmt"
	"strings"
)

// MaxColumnNameLength is the engine's column identifier limit.
const MaxColumnNameLength = 64

var (
	ErrEmptyColumnName   = errors.New("column name is empty")
	ErrColumnNameTooLong = errors.New("column name too long")
	ErrInvalidColumnName = errors.New("column name contains quoting characters")
	ErrUnknownType       = errors.New("unknown column type")
	ErrMissingLength     = errors.New("sized column type needs a positive length")
)

// ColumnMeta describes one column: name, engine type and declared length.
type ColumnMeta struct {
	Name   string
	Type   DataType
	Length int
}

// Column is a shorthand constructor.
func Column(name string, t DataType, length int) ColumnMeta {
	return ColumnMeta{Name: name, Type: t, Length: length}
}

// Validate checks the column against engine rules. Checks across columns
// (such as duplicate names) are the caller's job.
func (c ColumnMeta) Validate() error {
	switch {
	case c.Name == "":
		return ErrEmptyColumnName
	case len(c.Name) > MaxColumnNameLength:
		return fmt.Errorf("%w: %q", ErrColumnNameTooLong, c.Name)
	case strings.ContainsAny(c.Name, "`'\"\\ "):
		return fmt.Errorf("%w: %q", ErrInvalidColumnName, c.Name)
	case !c.Type.Valid():
		return fmt.Errorf("%w: %d for %q", ErrUnknownType, int(c.Type), c.Name)
	case c.Type.Sized() && c.Length <= 0:
		return fmt.Errorf("%w: %s %q", ErrMissingLength, c.Type, c.Name)
	}
	return nil
}

// SQL renders the column as a DDL fragment, e.g. "`site` NCHAR(64)".
func (c ColumnMeta) SQL() string {
	if c.Type.Sized() {
		return fmt.Sprintf("`%s` %s(%d)", c.Name, c.Type, c.Length)
	}
	return fmt.Sprintf("`%s` %s", c.Name, c.Type)
}

func (c ColumnMeta) String() string {
	return c.SQL()
}

// ValidateColumns validates each column and rejects duplicate names.
func ValidateColumns(cols []ColumnMeta) error {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if err := c.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ColumnsSQL joins the DDL fragments of cols with ", ".
func ColumnsSQL(cols []ColumnMeta) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c.SQL()
	}
	return strings.Join(parts, ", ")
}
