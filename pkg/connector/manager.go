package connector

import (
	"context"
	"fmt"

	"github.com/redbco/tdmeta/pkg/logger"
)

// Manager turns configuration into live connections so that callers only
// depend on the Connection contract.
type Manager struct {
	base     Config
	registry *Registry
	metrics  *Metrics
	logger   *logger.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRegistry replaces the global adapter registry.
func WithRegistry(r *Registry) ManagerOption {
	return func(m *Manager) { m.registry = r }
}

// WithMetrics instruments every connection the manager opens.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLogger sets the manager logger. It is also handed to adapters when the
// config carries none.
func WithLogger(l *logger.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager for the given base configuration.
func NewManager(base Config, opts ...ManagerOption) *Manager {
	m := &Manager{base: base, registry: globalRegistry}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the base configuration with defaults applied.
func (m *Manager) Config() Config {
	return m.base.WithDefaults()
}

// GetConnection opens a connection using the base configuration plus opts.
func (m *Manager) GetConnection(ctx context.Context, opts Options) (Connection, error) {
	cfg := m.base.WithDefaults()
	cfg.Options = cfg.Options.Merge(opts)
	if cfg.Logger == nil {
		cfg.Logger = m.logger
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	adapter, err := m.registry.Get(cfg.Type)
	if err != nil {
		m.logger.Error("Cannot resolve connector %q: %v", cfg.Type, err)
		return nil, err
	}

	conn, err := adapter.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Type, err)
	}
	m.logger.Debug("Opened %s connection %s to %s:%d", cfg.Type, conn.ID(), cfg.Host, cfg.Port)

	if m.metrics != nil {
		conn = Instrument(conn, m.metrics)
	}
	return conn, nil
}
