package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds flattened, dot-separated configuration values.
type Config struct {
	mu     sync.RWMutex
	values map[string]string

	// Keys whose change invalidates an open connection
	reconnectKeys []string
}

// New creates a new configuration manager
func New() *Config {
	return &Config{
		values: make(map[string]string),
		reconnectKeys: []string{
			"connector.type",
			"connector.host",
			"connector.port",
			"connector.user",
			"connector.password",
		},
	}
}

// LoadFile reads a YAML document and merges it into a new Config.
// Nested mappings become dotted keys: {connector: {host: x}} sets "connector.host".
func LoadFile(path string) (*Config, error) {
	c, _, err := LoadDocument(path)
	return c, err
}

// LoadDocument is LoadFile that also returns the parsed document, so callers
// can decode their own sections without reading the file again. The document
// is empty (Kind 0) for an empty file.
func LoadDocument(path string) (*Config, *yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c := New()
	if err := c.MergeNode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return c, &doc, nil
}

// MergeYAML flattens a YAML document into the store.
func (c *Config) MergeYAML(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	return c.MergeNode(&doc)
}

// MergeNode flattens a parsed YAML document into the store.
func (c *Config) MergeNode(doc *yaml.Node) error {
	var values map[string]interface{}
	if doc.Kind != 0 {
		if err := doc.Decode(&values); err != nil {
			return err
		}
	}
	flat := make(map[string]string)
	flatten("", values, flat)
	c.Update(flat)
	return nil
}

func flatten(prefix string, node interface{}, out map[string]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flatten(join(prefix, k), child, out)
		}
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Get retrieves a configuration value
func (c *Config) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// GetDefault returns the value for key, or def when unset or empty.
func (c *Config) GetDefault(key, def string) string {
	if v := c.Get(key); v != "" {
		return v
	}
	return def
}

// GetInt parses the value for key as an integer. Unset keys yield def.
func (c *Config) GetInt(key string, def int) (int, error) {
	v := c.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("config key %s: %w", key, err)
	}
	return n, nil
}

// GetDuration parses the value for key as a Go duration. Unset keys yield def.
func (c *Config) GetDuration(key string, def time.Duration) (time.Duration, error) {
	v := c.Get(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("config key %s: %w", key, err)
	}
	return d, nil
}

// GetPrefix returns all values under prefix with the prefix and its dot removed.
func (c *Config) GetPrefix(prefix string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := prefix + "."
	out := make(map[string]string)
	for k, v := range c.values {
		if strings.HasPrefix(k, p) {
			out[strings.TrimPrefix(k, p)] = v
		}
	}
	return out
}

// GetAll returns a copy of all configuration values
func (c *Config) GetAll() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	copy := make(map[string]string, len(c.values))
	for k, v := range c.values {
		copy[k] = v
	}
	return copy
}

// Keys returns the sorted key set.
func (c *Config) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores a single value.
func (c *Config) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Update updates configuration values
func (c *Config) Update(values map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range values {
		c.values[k] = v
	}
}

// RequiresReconnect reports whether any connection-bound key differs from oldConfig.
func (c *Config) RequiresReconnect(oldConfig map[string]string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, key := range c.reconnectKeys {
		if oldConfig[key] != c.values[key] {
			return true
		}
	}

	return false
}

// SetReconnectKeys sets which configuration keys invalidate an open connection.
func (c *Config) SetReconnectKeys(keys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnectKeys = keys
}
