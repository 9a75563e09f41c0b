package collection

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redbco/tdmeta/pkg/connector"
)

// Base type tags registered on the default registry.
const (
	StoreBaseTag     = "store.base.v1"
	CollectorBaseTag = "collector.base.v1"
	PointBaseTag     = "point.base.v1"
)

// Contract names the kind of object a type tag must produce.
type Contract string

const (
	ContractStore     Contract = "Store"
	ContractCollector Contract = "Collector"
	ContractPoint     Contract = "Point"
)

// ErrInvalidType is matched by every TypeError.
var ErrInvalidType = errors.New("invalid type")

// TypeError reports a type tag that cannot produce the expected contract.
type TypeError struct {
	Tag      string
	Expected Contract
	Reason   string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("invalid type %q: %s", e.Tag, e.Reason)
	}
	return fmt.Sprintf("invalid type %q: expected a %s: %s", e.Tag, e.Expected, e.Reason)
}

// Is matches ErrInvalidType.
func (e *TypeError) Is(target error) bool {
	return target == ErrInvalidType
}

// Code returns the local invalid type code.
func (e *TypeError) Code() int {
	return connector.CodeInvalidType
}

// Factories rebuild an object from exactly the fields the catalog persists.
type (
	StoreFactory     func(name, description string) Store
	CollectorFactory func(name, description string) Collector
	PointFactory     func(name, description string, collector Collector, store Store) Point
)

// TypeRegistry maps type tags to factories. It replaces runtime type
// discovery: a tag resolves only if a factory was registered for it.
type TypeRegistry struct {
	mu         sync.RWMutex
	stores     map[string]StoreFactory
	collectors map[string]CollectorFactory
	points     map[string]PointFactory
	aliases    map[string]string
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		stores:     make(map[string]StoreFactory),
		collectors: make(map[string]CollectorFactory),
		points:     make(map[string]PointFactory),
		aliases:    make(map[string]string),
	}
}

func (r *TypeRegistry) checkFree(tag string, want Contract) error {
	if err := ValidateTypeTag(tag); err != nil {
		return err
	}
	if got := r.contractOf(tag); got != "" && got != want {
		return &TypeError{Tag: tag, Expected: want, Reason: "already registered as a " + string(got)}
	}
	return nil
}

// RegisterStoreType registers f for tag, replacing a previous Store factory.
func (r *TypeRegistry) RegisterStoreType(tag string, f StoreFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFree(tag, ContractStore); err != nil {
		return err
	}
	r.stores[tag] = f
	return nil
}

// RegisterCollectorType registers f for tag, replacing a previous Collector factory.
func (r *TypeRegistry) RegisterCollectorType(tag string, f CollectorFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFree(tag, ContractCollector); err != nil {
		return err
	}
	r.collectors[tag] = f
	return nil
}

// RegisterPointType registers f for tag, replacing a previous Point factory.
func (r *TypeRegistry) RegisterPointType(tag string, f PointFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFree(tag, ContractPoint); err != nil {
		return err
	}
	r.points[tag] = f
	return nil
}

// Alias makes a stored tag resolve like tag. old is compared after
// DecodeTypeTag, so it may be a legacy name containing "\".
func (r *TypeRegistry) Alias(old, tag string) error {
	if old == "" {
		return &TypeError{Tag: old, Reason: "alias is empty"}
	}
	if err := ValidateTypeTag(tag); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[DecodeTypeTag(old)] = tag
	return nil
}

func (r *TypeRegistry) contractOf(tag string) Contract {
	if _, ok := r.stores[tag]; ok {
		return ContractStore
	}
	if _, ok := r.collectors[tag]; ok {
		return ContractCollector
	}
	if _, ok := r.points[tag]; ok {
		return ContractPoint
	}
	return ""
}

// resolve maps a stored tag to its registered form. Callers hold r.mu.
func (r *TypeRegistry) resolve(stored string) string {
	tag := DecodeTypeTag(stored)
	if target, ok := r.aliases[tag]; ok {
		return target
	}
	return tag
}

func (r *TypeRegistry) mismatch(stored, tag string, want Contract) error {
	if got := r.contractOf(tag); got != "" {
		return &TypeError{Tag: stored, Expected: want, Reason: "registered as a " + string(got)}
	}
	return &TypeError{Tag: stored, Expected: want, Reason: "no factory registered"}
}

// CheckStoreType reports whether stored resolves to a Store factory.
func (r *TypeRegistry) CheckStoreType(stored string) error {
	_, err := r.storeFactory(stored)
	return err
}

// CheckCollectorType reports whether stored resolves to a Collector factory.
func (r *TypeRegistry) CheckCollectorType(stored string) error {
	_, err := r.collectorFactory(stored)
	return err
}

// CheckPointType reports whether stored resolves to a Point factory.
func (r *TypeRegistry) CheckPointType(stored string) error {
	_, err := r.pointFactory(stored)
	return err
}

func (r *TypeRegistry) storeFactory(stored string) (StoreFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag := r.resolve(stored)
	if f, ok := r.stores[tag]; ok {
		return f, nil
	}
	return nil, r.mismatch(stored, tag, ContractStore)
}

func (r *TypeRegistry) collectorFactory(stored string) (CollectorFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag := r.resolve(stored)
	if f, ok := r.collectors[tag]; ok {
		return f, nil
	}
	return nil, r.mismatch(stored, tag, ContractCollector)
}

func (r *TypeRegistry) pointFactory(stored string) (PointFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag := r.resolve(stored)
	if f, ok := r.points[tag]; ok {
		return f, nil
	}
	return nil, r.mismatch(stored, tag, ContractPoint)
}

// NewStore builds a Store through the factory registered for tag.
func (r *TypeRegistry) NewStore(tag, name, description string) (Store, error) {
	f, err := r.storeFactory(tag)
	if err != nil {
		return nil, err
	}
	s := f(name, description)
	if s == nil {
		return nil, &TypeError{Tag: tag, Expected: ContractStore, Reason: "factory returned nil"}
	}
	return s, nil
}

// NewCollector builds a Collector through the factory registered for tag.
func (r *TypeRegistry) NewCollector(tag, name, description string) (Collector, error) {
	f, err := r.collectorFactory(tag)
	if err != nil {
		return nil, err
	}
	c := f(name, description)
	if c == nil {
		return nil, &TypeError{Tag: tag, Expected: ContractCollector, Reason: "factory returned nil"}
	}
	return c, nil
}

// NewPoint builds a Point through the factory registered for tag.
func (r *TypeRegistry) NewPoint(tag, name, description string, collector Collector, store Store) (Point, error) {
	f, err := r.pointFactory(tag)
	if err != nil {
		return nil, err
	}
	p := f(name, description, collector, store)
	if p == nil {
		return nil, &TypeError{Tag: tag, Expected: ContractPoint, Reason: "factory returned nil"}
	}
	return p, nil
}

// Tags lists the registered tags of one contract in sorted order.
func (r *TypeRegistry) Tags(c Contract) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tags []string
	switch c {
	case ContractStore:
		for t := range r.stores {
			tags = append(tags, t)
		}
	case ContractCollector:
		for t := range r.collectors {
			tags = append(tags, t)
		}
	case ContractPoint:
		for t := range r.points {
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return tags
}

var defaultRegistry = NewTypeRegistry()

// DefaultRegistry returns the process-wide registry holding the base types.
func DefaultRegistry() *TypeRegistry {
	return defaultRegistry
}

// RegisterBaseTypes registers the base Store, Collector and Point types on r.
func RegisterBaseTypes(r *TypeRegistry) {
	must(r.RegisterStoreType(StoreBaseTag, func(name, description string) Store {
		return NewStore(name, description)
	}))
	must(r.RegisterCollectorType(CollectorBaseTag, func(name, description string) Collector {
		return NewCollector(name, description, nil, nil)
	}))
	must(r.RegisterPointType(PointBaseTag, func(name, description string, collector Collector, store Store) Point {
		return NewPoint(name, description, collector, store)
	}))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func init() {
	RegisterBaseTypes(defaultRegistry)
}
