package collection

import "sync"

// Point is one instance of a Collector bound to one Store. Key is empty
// until the catalog registers the point.
type Point interface {
	Name() string
	Description() string
	TypeTag() string
	Key() string
	Store() Store
	Collector() Collector
	// TagValues returns the values of the collector's tag fields.
	TagValues() map[string]string
	// PrivateOptions holds credentials and similar settings that are never
	// written to the catalog.
	PrivateOptions() map[string]string
	// WithKey returns a copy of the point carrying key.
	WithKey(key string) Point
}

// BasePoint is the Point registered as PointBaseTag.
type BasePoint struct {
	name        string
	description string
	tag         string
	key         string
	store       Store
	collector   Collector
	tagValues   map[string]string
	private     map[string]string

	mu      sync.Mutex
	pending [][]any
}

var _ Point = (*BasePoint)(nil)

// PointOption configures a BasePoint.
type PointOption func(*BasePoint)

// WithTagValue sets the value of one collector tag field.
func WithTagValue(name, value string) PointOption {
	return func(p *BasePoint) { p.tagValues[name] = value }
}

// WithPrivateOption sets a private option.
func WithPrivateOption(name, value string) PointOption {
	return func(p *BasePoint) { p.private[name] = value }
}

// WithPointTypeTag sets the type tag of a Point type built on BasePoint.
func WithPointTypeTag(tag string) PointOption {
	return func(p *BasePoint) { p.tag = tag }
}

// NewPoint creates an unregistered Point.
func NewPoint(name, description string, collector Collector, store Store, opts ...PointOption) *BasePoint {
	p := &BasePoint{
		name:        name,
		description: description,
		tag:         PointBaseTag,
		store:       store,
		collector:   collector,
		tagValues:   make(map[string]string),
		private:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *BasePoint) Name() string         { return p.name }
func (p *BasePoint) Description() string  { return p.description }
func (p *BasePoint) TypeTag() string      { return p.tag }
func (p *BasePoint) Key() string          { return p.key }
func (p *BasePoint) Store() Store         { return p.store }
func (p *BasePoint) Collector() Collector { return p.collector }

func (p *BasePoint) TagValues() map[string]string      { return cloneMap(p.tagValues) }
func (p *BasePoint) PrivateOptions() map[string]string { return cloneMap(p.private) }

// Registered reports whether the point carries a catalog key.
func (p *BasePoint) Registered() bool {
	return p.key != ""
}

// WithKey returns a copy carrying key. Buffered data stays with the receiver.
func (p *BasePoint) WithKey(key string) Point {
	return &BasePoint{
		name:        p.name,
		description: p.description,
		tag:         p.tag,
		key:         key,
		store:       p.store,
		collector:   p.collector,
		tagValues:   cloneMap(p.tagValues),
		private:     cloneMap(p.private),
	}
}

// Append buffers a data row that has not been saved yet.
func (p *BasePoint) Append(row []any) {
	cp := make([]any, len(row))
	copy(cp, row)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, cp)
}

// Pending returns a copy of the buffered rows.
func (p *BasePoint) Pending() [][]any {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([][]any, len(p.pending))
	for i, row := range p.pending {
		out[i] = make([]any, len(row))
		copy(out[i], row)
	}
	return out
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
