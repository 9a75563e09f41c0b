package connector

import (
	"fmt"
	"sort"
	"strings"
)

// ConnectorType is the canonical identifier of a transport to the engine.
type ConnectorType string

const (
	REST      ConnectorType = "rest"
	WebSocket ConnectorType = "websocket"
	Native    ConnectorType = "native"
)

// DefaultType is used when no connector is configured.
const DefaultType = REST

// Capability describes a connector type.
type Capability struct {
	Name        string
	ID          ConnectorType
	DefaultPort int
	// Aliases also accepted as DSN schemes.
	Aliases     []string
	Description string
}

var capabilities = map[ConnectorType]Capability{
	REST: {
		Name:        "REST",
		ID:          REST,
		DefaultPort: 6041,
		Aliases:     []string{"restful", "http", "taos+rest", "taos+http"},
		Description: "SQL over HTTP with token login",
	},
	WebSocket: {
		Name:        "WebSocket",
		ID:          WebSocket,
		DefaultPort: 6041,
		Aliases:     []string{"ws", "taos+ws"},
		Description: "Streaming SQL over WebSocket",
	},
	Native: {
		Name:        "Native",
		ID:          Native,
		DefaultPort: 6030,
		Aliases:     []string{"taos", "cgo"},
		Description: "Native client library protocol",
	},
}

var nameToType = func() map[string]ConnectorType {
	m := make(map[string]ConnectorType)
	for id, c := range capabilities {
		m[string(id)] = id
		for _, a := range c.Aliases {
			m[a] = id
		}
	}
	return m
}()

// ParseType resolves a connector name or alias. Empty names select DefaultType.
func ParseType(name string) (ConnectorType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return DefaultType, nil
	}
	id, ok := nameToType[n]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrConnectorNotFound, name)
	}
	return id, nil
}

// GetCapability returns the capability for a connector type.
func GetCapability(id ConnectorType) (Capability, bool) {
	c, ok := capabilities[id]
	return c, ok
}

// KnownTypes lists every known connector type, registered or not.
func KnownTypes() []ConnectorType {
	out := make([]ConnectorType, 0, len(capabilities))
	for id := range capabilities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
