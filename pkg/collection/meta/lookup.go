package meta

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/redbco/tdmeta/pkg/collection"
)

var _ Resolver = (*Catalog)(nil)

// StoreInfo returns the registered Store called name, or nil when there is none.
func (c *Catalog) StoreInfo(ctx context.Context, name string) (collection.Store, error) {
	res, err := c.query(ctx, "store info", selectTagsSQL(storeTable, eq(colStoreName, name)))
	if err != nil {
		return nil, err
	}
	stores, err := c.hydrator.Stores(res)
	if err != nil || len(stores) == 0 {
		return nil, err
	}
	return stores[0], nil
}

// CollectorInfo returns the registered Collector called name, or nil when there is none.
func (c *Catalog) CollectorInfo(ctx context.Context, name string) (collection.Collector, error) {
	res, err := c.query(ctx, "collector info", selectTagsSQL(collectorTable, eq(colCollectorName, name)))
	if err != nil {
		return nil, err
	}
	collectors, err := c.hydrator.Collectors(res)
	if err != nil || len(collectors) == 0 {
		return nil, err
	}
	return collectors[0], nil
}

// PointInfo returns the registered Point with key, or nil when there is none.
func (c *Catalog) PointInfo(ctx context.Context, key string) (collection.Point, error) {
	if key == "" {
		return nil, nil
	}
	res, err := c.query(ctx, "point info", selectTagsSQL(pointTable, eq(colPointKey, key)))
	if err != nil {
		return nil, err
	}
	points, err := c.hydrator.Points(ctx, res, c)
	if err != nil || len(points) == 0 {
		return nil, err
	}
	return points[0], nil
}

// AllStores returns every registered Store with its latest statistics. Both
// maps are keyed by store name and hold the same keys.
func (c *Catalog) AllStores(ctx context.Context) (map[string]collection.Store, map[string]StoreStats, error) {
	res, err := c.query(ctx, "list stores", selectTagsSQL(storeTable))
	if err != nil {
		return nil, nil, err
	}
	list, err := c.hydrator.Stores(res)
	if err != nil {
		return nil, nil, err
	}

	latest, err := c.latestStoreStats(ctx)
	if err != nil {
		return nil, nil, err
	}

	stores := make(map[string]collection.Store, len(list))
	stats := make(map[string]StoreStats, len(list))
	for _, s := range list {
		stores[s.Name()] = s
		st, ok := latest[s.Name()]
		if !ok {
			st = StoreStats{Store: s.Name()}
		}
		stats[s.Name()] = st
	}
	return stores, stats, nil
}

// SearchCollectors returns one page of Collectors whose name contains like.
// Pages follow the engine's row order, and each page is sorted by name. An
// empty like matches every Collector.
func (c *Catalog) SearchCollectors(ctx context.Context, like string, page, pageSize int) ([]collection.Collector, error) {
	if err := checkPage(objectCollector, page, pageSize); err != nil {
		return nil, err
	}
	var where []string
	if like != "" {
		where = append(where, quoteIdent(colCollectorName)+" LIKE "+likeSubstring(like))
	}
	sql := selectTagsSQL(collectorTable, where...) + pageSQL(page, pageSize)
	res, err := c.query(ctx, "search collectors", sql)
	if err != nil {
		return nil, err
	}
	found, err := c.hydrator.Collectors(res)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(found, func(a, b collection.Collector) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return found, nil
}

// SearchPoints returns one page of Points whose name contains like, sorted
// by store and name within the page. A non-empty store restricts the search
// to that Store.
func (c *Catalog) SearchPoints(ctx context.Context, like, store string, page, pageSize int) ([]collection.Point, error) {
	if err := checkPage(objectPoint, page, pageSize); err != nil {
		return nil, err
	}
	var where []string
	if like != "" {
		where = append(where, quoteIdent(colPointName)+" LIKE "+likeSubstring(like))
	}
	if store != "" {
		where = append(where, eq(colStore, store))
	}
	sql := selectTagsSQL(pointTable, where...) + pageSQL(page, pageSize)
	res, err := c.query(ctx, "search points", sql)
	if err != nil {
		return nil, err
	}
	found, err := c.hydrator.Points(ctx, res, c)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(found, func(a, b collection.Point) int {
		if n := strings.Compare(a.Store().Name(), b.Store().Name()); n != 0 {
			return n
		}
		return strings.Compare(a.Name(), b.Name())
	})
	return found, nil
}

func checkPage(object string, page, pageSize int) error {
	if page < 0 || pageSize <= 0 {
		return newValidationError(ErrInvalidPage, object, "", fmt.Sprintf("page %d, size %d", page, pageSize))
	}
	return nil
}

// pageSQL renders the paging clause. Super table queries cannot be ordered
// by a tag, so the engine's row order decides the pages.
func pageSQL(page, pageSize int) string {
	return fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, page*pageSize)
}
