package collection

import (
	"fmt"

	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// Collector is a schema template: tag fields are per-instance dimensions,
// data fields are time-varying measurements.
type Collector interface {
	Name() string
	Description() string
	TypeTag() string
	Tags() []tdtypes.ColumnMeta
	Fields() []tdtypes.ColumnMeta
}

// BaseCollector is the Collector registered as CollectorBaseTag.
type BaseCollector struct {
	name        string
	description string
	tag         string
	tags        []tdtypes.ColumnMeta
	fields      []tdtypes.ColumnMeta
}

var _ Collector = (*BaseCollector)(nil)

// NewCollector creates an unregistered Collector with the given schema.
func NewCollector(name, description string, tags, fields []tdtypes.ColumnMeta) *BaseCollector {
	return &BaseCollector{
		name:        name,
		description: description,
		tag:         CollectorBaseTag,
		tags:        cloneColumns(tags),
		fields:      cloneColumns(fields),
	}
}

func (c *BaseCollector) Name() string                 { return c.name }
func (c *BaseCollector) Description() string          { return c.description }
func (c *BaseCollector) TypeTag() string              { return c.tag }
func (c *BaseCollector) Tags() []tdtypes.ColumnMeta   { return cloneColumns(c.tags) }
func (c *BaseCollector) Fields() []tdtypes.ColumnMeta { return cloneColumns(c.fields) }

// HasTag reports whether the collector declares a tag field called name.
func HasTag(c Collector, name string) bool {
	for _, t := range c.Tags() {
		if t.Name == name {
			return true
		}
	}
	return false
}

// ValidateSchema checks tag and data fields together, so a name cannot be
// both a tag and a field.
func ValidateSchema(c Collector) error {
	cols := append(c.Tags(), c.Fields()...)
	if err := tdtypes.ValidateColumns(cols); err != nil {
		return fmt.Errorf("collector %q: %w", c.Name(), err)
	}
	return nil
}

// DefineCollectorType registers a fixed-schema Collector type: every
// Collector built for tag carries tags and fields, so a catalog lookup
// returns the full schema from name and description alone.
func DefineCollectorType(reg *TypeRegistry, tag string, tags, fields []tdtypes.ColumnMeta) error {
	schema := &BaseCollector{name: tag, tags: tags, fields: fields}
	if err := ValidateSchema(schema); err != nil {
		return err
	}
	tags, fields = cloneColumns(tags), cloneColumns(fields)
	return reg.RegisterCollectorType(tag, func(name, description string) Collector {
		c := NewCollector(name, description, tags, fields)
		c.tag = tag
		return c
	})
}

func cloneColumns(cols []tdtypes.ColumnMeta) []tdtypes.ColumnMeta {
	if cols == nil {
		return nil
	}
	out := make([]tdtypes.ColumnMeta, len(cols))
	copy(out, cols)
	return out
}

// WithTypeTag returns a copy carrying tag, for Collector types built on BaseCollector.
func (c *BaseCollector) WithTypeTag(tag string) *BaseCollector {
	cp := *c
	cp.tag = tag
	cp.tags = cloneColumns(c.tags)
	cp.fields = cloneColumns(c.fields)
	return &cp
}
