package connector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Adapter opens Connections of one connector type.
type Adapter interface {
	Type() ConnectorType
	Capability() Capability
	Connect(ctx context.Context, cfg Config) (Connection, error)
}

// Registry manages the registration and retrieval of connector adapters.
type Registry struct {
	adapters map[ConnectorType]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates a new adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[ConnectorType]Adapter),
	}
}

// Register registers an adapter, replacing any previous one for the same type.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Type()] = adapter
}

// Get retrieves the adapter for a connector type. Known types without an
// adapter yield ErrNotConnector; unknown types yield ErrConnectorNotFound.
func (r *Registry) Get(t ConnectorType) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[t]
	if exists {
		return adapter, nil
	}
	if _, known := GetCapability(t); known {
		return nil, fmt.Errorf("%s %w", t, ErrNotConnector)
	}
	return nil, fmt.Errorf("%w: %s", ErrConnectorNotFound, t)
}

// GetByName resolves a connector name or alias and retrieves its adapter.
func (r *Registry) GetByName(name string) (Adapter, error) {
	t, err := ParseType(name)
	if err != nil {
		return nil, err
	}
	return r.Get(t)
}

// IsRegistered checks if an adapter is registered for the given type.
func (r *Registry) IsRegistered(t ConnectorType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.adapters[t]
	return exists
}

// ListRegistered returns the registered connector types in sorted order.
func (r *Registry) ListRegistered() []ConnectorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ConnectorType, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Connect looks up the adapter for cfg.Type and opens a connection.
func (r *Registry) Connect(ctx context.Context, cfg Config) (Connection, error) {
	adapter, err := r.Get(cfg.Type)
	if err != nil {
		return nil, err
	}
	return adapter.Connect(ctx, cfg)
}

var globalRegistry = NewRegistry()

// Register adds an adapter to the global registry. Adapter packages call it from init.
func Register(adapter Adapter) {
	globalRegistry.Register(adapter)
}

// Get retrieves an adapter from the global registry.
func Get(t ConnectorType) (Adapter, error) {
	return globalRegistry.Get(t)
}

// GlobalRegistry returns the process-wide registry.
func GlobalRegistry() *Registry {
	return globalRegistry
}
