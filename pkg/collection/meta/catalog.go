// Package meta implements the metadata catalog: three super tables in a
// dedicated database recording every registered Store, Collector and Point,
// plus their statistics series. Objects are rebuilt from catalog rows by a
// Hydrator through the collection type registry.
package meta

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redbco/tdmeta/pkg/collection"
	"github.com/redbco/tdmeta/pkg/connector"
	"github.com/redbco/tdmeta/pkg/logger"
)

// Catalog reads and writes the catalog database through one Connection.
// It keeps no cache: every lookup queries the engine.
type Catalog struct {
	conn     connector.Connection
	db       string
	types    *collection.TypeRegistry
	hydrator *Hydrator
	logger   *logger.Logger
	now      func() time.Time
	newKey   func() string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithDatabase overrides the catalog database name.
func WithDatabase(name string) Option {
	return func(c *Catalog) { c.db = name }
}

// WithTypeRegistry sets the registry used to check and rebuild objects.
func WithTypeRegistry(r *collection.TypeRegistry) Option {
	return func(c *Catalog) { c.types = r }
}

// WithLogger sets the catalog logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// WithClock sets the time source for registration and statistics rows.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithKeyGenerator sets the point key generator.
func WithKeyGenerator(f func() string) Option {
	return func(c *Catalog) { c.newKey = f }
}

// NewPointKey returns 32 lower-case hex characters from a random UUID.
func NewPointKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// New creates a catalog over conn. Commands name their database explicitly,
// so the default database of conn is not used.
func New(conn connector.Connection, opts ...Option) *Catalog {
	c := &Catalog{
		db:     DefaultDatabase,
		types:  collection.DefaultRegistry(),
		now:    time.Now,
		newKey: NewPointKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.conn = conn.WithDefaultDB("")
	c.hydrator = NewHydrator(c.types)
	return c
}

// Database returns the catalog database name.
func (c *Catalog) Database() string {
	return c.db
}

// Types returns the type registry in use.
func (c *Catalog) Types() *collection.TypeRegistry {
	return c.types
}

// Hydrator returns the hydrator bound to the catalog's registry.
func (c *Catalog) Hydrator() *Hydrator {
	return c.hydrator
}

// exec runs a statement against the catalog database.
func (c *Catalog) exec(ctx context.Context, op, sql string) error {
	return connector.ResultError(op, c.conn.Execute(ctx, c.db, sql))
}

// query runs a query against the catalog database.
func (c *Catalog) query(ctx context.Context, op, sql string) (connector.QueryResult, error) {
	res := c.conn.Query(ctx, c.db, sql)
	if err := connector.ResultError(op, res); err != nil {
		return nil, err
	}
	return res, nil
}

// keyedMutex serializes registrations of the same object within the process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

var registrations = &keyedMutex{locks: make(map[string]*keyedEntry)}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (c *Catalog) registrationKey(object string, names ...string) string {
	return object + "\x00" + c.db + "\x00" + strings.Join(names, "\x00")
}
