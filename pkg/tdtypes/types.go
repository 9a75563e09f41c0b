// Package tdtypes holds the engine's column types, database update modes and
// timestamp encodings, plus the ColumnMeta value object built on them.
package tdtypes

import (
	"fmt"
	"strings"
)

// DataType is an engine column type code as reported in column_meta.
type DataType int

const (
	TypeUnknown   DataType = 0
	TypeBool      DataType = 1
	TypeTinyInt   DataType = 2
	TypeSmallInt  DataType = 3
	TypeInt       DataType = 4
	TypeBigInt    DataType = 5
	TypeFloat     DataType = 6
	TypeDouble    DataType = 7
	TypeBinary    DataType = 8
	TypeTimestamp DataType = 9
	TypeNChar     DataType = 10
	TypeJSON      DataType = 11
)

var dataTypeNames = map[DataType]string{
	TypeBool:      "BOOL",
	TypeTinyInt:   "TINYINT",
	TypeSmallInt:  "SMALLINT",
	TypeInt:       "INT",
	TypeBigInt:    "BIGINT",
	TypeFloat:     "FLOAT",
	TypeDouble:    "DOUBLE",
	TypeBinary:    "BINARY",
	TypeTimestamp: "TIMESTAMP",
	TypeNChar:     "NCHAR",
	TypeJSON:      "JSON",
}

// Width in bytes of the fixed-size types.
var fixedWidths = map[DataType]int{
	TypeBool:      1,
	TypeTinyInt:   1,
	TypeSmallInt:  2,
	TypeInt:       4,
	TypeBigInt:    8,
	TypeFloat:     4,
	TypeDouble:    8,
	TypeTimestamp: 8,
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// Valid reports whether t is a known engine type.
func (t DataType) Valid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

// Sized reports whether the type needs a declared length in DDL.
func (t DataType) Sized() bool {
	return t == TypeBinary || t == TypeNChar
}

// FixedWidth returns the storage width of fixed-size types, or 0.
func (t DataType) FixedWidth() int {
	return fixedWidths[t]
}

// ParseDataType resolves a type name such as "nchar" or "BIGINT".
func ParseDataType(name string) (DataType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for t, n := range dataTypeNames {
		if n == upper {
			return t, nil
		}
	}
	return TypeUnknown, fmt.Errorf("unknown data type %q", name)
}

// UpdateMode controls how a database treats rows written with an existing timestamp.
// It is fixed when the database is created.
type UpdateMode int

const (
	// UpdateDisable drops later rows carrying an existing timestamp.
	UpdateDisable UpdateMode = 0
	// UpdateAll replaces the whole row; columns not supplied become NULL.
	UpdateAll UpdateMode = 1
	// UpdatePart replaces only the supplied columns.
	UpdatePart UpdateMode = 2
)

func (m UpdateMode) String() string {
	switch m {
	case UpdateDisable:
		return "disable"
	case UpdateAll:
		return "all"
	case UpdatePart:
		return "part"
	default:
		return fmt.Sprintf("UpdateMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the engine's update modes.
func (m UpdateMode) Valid() bool {
	return m >= UpdateDisable && m <= UpdatePart
}

// ParseUpdateMode accepts the mode name or its numeric value.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disable", "0":
		return UpdateDisable, nil
	case "all", "1":
		return UpdateAll, nil
	case "part", "2", "":
		return UpdatePart, nil
	}
	return UpdatePart, fmt.Errorf("unknown update mode %q", s)
}

// TimeFormat selects how timestamps are encoded in query responses.
type TimeFormat string

const (
	// TimeLocal renders "2018-10-03 14:38:05.000" in the server's zone.
	TimeLocal TimeFormat = "local"
	// TimeUTC renders "2018-10-03T14:38:05.000+0800".
	TimeUTC TimeFormat = "utc"
	// TimeEpoch renders epoch milliseconds.
	TimeEpoch TimeFormat = "ts"
)

// DefaultTimeFormat is used when no format option is configured.
const DefaultTimeFormat = TimeEpoch

// ParseTimeFormat resolves an option value. Empty selects the default.
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch TimeFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultTimeFormat, nil
	case TimeLocal:
		return TimeLocal, nil
	case TimeUTC:
		return TimeUTC, nil
	case TimeEpoch:
		return TimeEpoch, nil
	}
	return DefaultTimeFormat, fmt.Errorf("unknown time format %q", s)
}
