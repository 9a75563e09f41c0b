// Package collection defines the schema objects kept in the catalog: Stores
// (databases), Collectors (super table templates) and Points (tables bound
// to one Store and one Collector), plus the registry that rebuilds them from
// their type tags.
package collection

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/redbco/tdmeta/pkg/connector"
	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// DefaultKeepDays is the retention of a Store created without WithKeepDays.
const DefaultKeepDays = 1095

// MaxDatabaseNameLength is the engine's database identifier limit.
const MaxDatabaseNameLength = 32

var (
	// ErrInvalidDatabaseName is returned when a Store name cannot name a database.
	ErrInvalidDatabaseName = errors.New("store name is not a valid database name")

	// ErrInvalidStoreOption is returned for creation options that cannot be rendered.
	ErrInvalidStoreOption = errors.New("invalid store option")
)

var (
	databaseNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	optionKeyPattern    = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	optionValuePattern  = regexp.MustCompile(`^[A-Za-z0-9_.,:-]+$`)
)

// Store is a named database grouping related Points.
type Store interface {
	Name() string
	Description() string
	TypeTag() string
	KeepDays() int
	UpdateMode() tdtypes.UpdateMode
	// Options returns the extra creation options keyed by upper-case name.
	Options() map[string]string
	// CreateBackingDatabase creates the database the Store stands for.
	CreateBackingDatabase(ctx context.Context, conn connector.Connection) error
}

// Validator is implemented by objects that can check themselves before any
// remote call is made.
type Validator interface {
	Validate() error
}

// BaseStore is the Store registered as StoreBaseTag.
type BaseStore struct {
	name        string
	description string
	tag         string
	keepDays    int
	update      tdtypes.UpdateMode
	options     map[string]string
}

var _ Store = (*BaseStore)(nil)

// StoreOption configures a BaseStore.
type StoreOption func(*BaseStore)

// WithKeepDays sets the retention in days.
func WithKeepDays(days int) StoreOption {
	return func(s *BaseStore) { s.keepDays = days }
}

// WithUpdateMode sets the update mode fixed at creation.
func WithUpdateMode(m tdtypes.UpdateMode) StoreOption {
	return func(s *BaseStore) { s.update = m }
}

// WithStoreOption adds a creation option such as DAYS or REPLICA.
func WithStoreOption(key, value string) StoreOption {
	return func(s *BaseStore) { s.options[strings.ToUpper(strings.TrimSpace(key))] = strings.TrimSpace(value) }
}

// WithStoreTypeTag sets the type tag of a Store type built on BaseStore.
func WithStoreTypeTag(tag string) StoreOption {
	return func(s *BaseStore) { s.tag = tag }
}

// NewStore creates an unregistered Store.
func NewStore(name, description string, opts ...StoreOption) *BaseStore {
	s := &BaseStore{
		name:        name,
		description: description,
		tag:         StoreBaseTag,
		keepDays:    DefaultKeepDays,
		update:      tdtypes.UpdatePart,
		options:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BaseStore) Name() string                   { return s.name }
func (s *BaseStore) Description() string            { return s.description }
func (s *BaseStore) TypeTag() string                { return s.tag }
func (s *BaseStore) KeepDays() int                  { return s.keepDays }
func (s *BaseStore) UpdateMode() tdtypes.UpdateMode { return s.update }

func (s *BaseStore) Options() map[string]string {
	out := make(map[string]string, len(s.options))
	for k, v := range s.options {
		out[k] = v
	}
	return out
}

// Validate checks that the Store can render its database DDL.
func (s *BaseStore) Validate() error {
	_, err := s.DatabaseDDL()
	return err
}

// DatabaseDDL renders the CREATE DATABASE statement for the Store.
func (s *BaseStore) DatabaseDDL() (string, error) {
	if len(s.name) > MaxDatabaseNameLength || !databaseNamePattern.MatchString(s.name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDatabaseName, s.name)
	}
	if s.keepDays <= 0 {
		return "", fmt.Errorf("%w: KEEP must be positive, got %d", ErrInvalidStoreOption, s.keepDays)
	}
	if !s.update.Valid() {
		return "", fmt.Errorf("%w: update mode %d", ErrInvalidStoreOption, int(s.update))
	}

	var b strings.Builder
	b.WriteString("CREATE DATABASE ")
	b.WriteString(s.name)
	b.WriteString(" KEEP ")
	b.WriteString(strconv.Itoa(s.keepDays))
	b.WriteString(" UPDATE ")
	b.WriteString(strconv.Itoa(int(s.update)))

	for _, key := range connector.Options(s.options).Keys() {
		value := s.options[key]
		switch {
		case key == "KEEP" || key == "UPDATE":
			return "", fmt.Errorf("%w: %s is set through its own field", ErrInvalidStoreOption, key)
		case !optionKeyPattern.MatchString(key):
			return "", fmt.Errorf("%w: name %q", ErrInvalidStoreOption, key)
		case !optionValuePattern.MatchString(value):
			return "", fmt.Errorf("%w: %s value %q", ErrInvalidStoreOption, key, value)
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString(" ")
		b.WriteString(value)
	}
	return b.String(), nil
}

// CreateBackingDatabase issues the DatabaseDDL statement on conn.
func (s *BaseStore) CreateBackingDatabase(ctx context.Context, conn connector.Connection) error {
	ddl, err := s.DatabaseDDL()
	if err != nil {
		return err
	}
	return connector.ResultError("create database "+s.name, conn.Execute(ctx, "", ddl))
}
