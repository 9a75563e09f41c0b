package meta

import (
	"context"
	"fmt"

	"github.com/redbco/tdmeta/pkg/collection"
	"github.com/redbco/tdmeta/pkg/connector"
	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// Resolver looks up the Store and Collector a point row refers to. The
// Catalog implements it; a nil result means the name is not registered.
type Resolver interface {
	StoreInfo(ctx context.Context, name string) (collection.Store, error)
	CollectorInfo(ctx context.Context, name string) (collection.Collector, error)
}

// Hydrator rebuilds typed objects from catalog rows.
type Hydrator struct {
	types *collection.TypeRegistry
}

// NewHydrator creates a hydrator over types.
func NewHydrator(types *collection.TypeRegistry) *Hydrator {
	return &Hydrator{types: types}
}

// rows returns the rows of res as column-keyed maps after checking that
// every required column is present.
func rows(res connector.QueryResult, required ...string) ([]map[string]any, error) {
	if err := connector.ResultError("hydrate", res); err != nil {
		return nil, err
	}
	if res.RowsAffected() == 0 {
		return nil, nil
	}
	for _, col := range required {
		if !hasColumn(res, col) {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedRow, col)
		}
	}
	raw, err := res.Rows(0, 0)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(raw))
	for i := range raw {
		row, err := res.Row(i)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func hasColumn(res connector.QueryResult, name string) bool {
	for _, c := range res.Columns() {
		if c == name {
			return true
		}
	}
	return false
}

func cell(row map[string]any, column string) string {
	return tdtypes.AsString(row[column])
}

// Stores rebuilds Stores from rows carrying store_name, type_tag and desc.
func (h *Hydrator) Stores(res connector.QueryResult) ([]collection.Store, error) {
	rs, err := rows(res, colStoreName, colTypeTag, colDesc)
	if err != nil {
		return nil, err
	}
	out := make([]collection.Store, 0, len(rs))
	for _, row := range rs {
		s, err := h.types.NewStore(cell(row, colTypeTag), cell(row, colStoreName), cell(row, colDesc))
		if err != nil {
			return nil, fmt.Errorf("store %q: %w", cell(row, colStoreName), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Collectors rebuilds Collectors from rows carrying collector_name, type_tag and desc.
func (h *Hydrator) Collectors(res connector.QueryResult) ([]collection.Collector, error) {
	rs, err := rows(res, colCollectorName, colTypeTag, colDesc)
	if err != nil {
		return nil, err
	}
	out := make([]collection.Collector, 0, len(rs))
	for _, row := range rs {
		c, err := h.types.NewCollector(cell(row, colTypeTag), cell(row, colCollectorName), cell(row, colDesc))
		if err != nil {
			return nil, fmt.Errorf("collector %q: %w", cell(row, colCollectorName), err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Points rebuilds Points from point rows. Each referenced Store and
// Collector is resolved once per call.
func (h *Hydrator) Points(ctx context.Context, res connector.QueryResult, resolver Resolver) ([]collection.Point, error) {
	rs, err := rows(res, colPointName, colStore, colCollector, colPointKey, colTypeTag, colDesc)
	if err != nil {
		return nil, err
	}

	stores := make(map[string]collection.Store)
	collectors := make(map[string]collection.Collector)
	out := make([]collection.Point, 0, len(rs))
	for _, row := range rs {
		name := cell(row, colPointName)

		storeName := cell(row, colStore)
		store, ok := stores[storeName]
		if !ok {
			if store, err = resolver.StoreInfo(ctx, storeName); err != nil {
				return nil, err
			}
			if store == nil {
				return nil, fmt.Errorf("point %q: %w: store %q", name, ErrDanglingReference, storeName)
			}
			stores[storeName] = store
		}

		collectorName := cell(row, colCollector)
		collector, ok := collectors[collectorName]
		if !ok {
			if collector, err = resolver.CollectorInfo(ctx, collectorName); err != nil {
				return nil, err
			}
			if collector == nil {
				return nil, fmt.Errorf("point %q: %w: collector %q", name, ErrDanglingReference, collectorName)
			}
			collectors[collectorName] = collector
		}

		p, err := h.types.NewPoint(cell(row, colTypeTag), name, cell(row, colDesc), collector, store)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", name, err)
		}
		if key := cell(row, colPointKey); key != "" {
			p = p.WithKey(key)
		}
		out = append(out, p)
	}
	return out, nil
}
