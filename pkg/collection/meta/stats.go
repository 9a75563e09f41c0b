package meta

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// StoreStats is one statistics observation of a Store.
type StoreStats struct {
	Store          string
	CountingTime   time.Time
	PointCount     int64
	CollectorCount int64
	DataCount      int64
	DataSize       int64
}

// CollectorStats is one statistics observation of a Collector.
type CollectorStats struct {
	Collector           string
	CountingTime        time.Time
	StoreCount          int64
	PointCount          int64
	RunningCount        int64
	RecentlyRunningTime time.Time
}

// PointStats is one statistics observation of a Point.
type PointStats struct {
	CountingTime     time.Time
	DataCount        int64
	DataSize         int64
	RecentlyDataTime time.Time
}

// RecordStoreStats appends an observation for a registered Store. A zero
// CountingTime is replaced by the current time.
func (c *Catalog) RecordStoreStats(ctx context.Context, stats StoreStats) error {
	store, err := c.StoreInfo(ctx, stats.Store)
	if err != nil {
		return err
	}
	if store == nil {
		return newValidationError(ErrNotRegistered, objectStore, stats.Store, "")
	}
	sql := insertSQL(storeTable, storeTable.childTable(store.Name()),
		[]string{quote(store.Name()), quote(store.TypeTag()), quote(store.Description())},
		[]string{
			c.timestamp(stats.CountingTime, true),
			itoa(stats.PointCount), itoa(stats.CollectorCount),
			itoa(stats.DataCount), itoa(stats.DataSize),
		})
	return c.exec(ctx, "record store stats "+store.Name(), sql)
}

// RecordCollectorStats appends an observation for a registered Collector.
func (c *Catalog) RecordCollectorStats(ctx context.Context, stats CollectorStats) error {
	collector, err := c.CollectorInfo(ctx, stats.Collector)
	if err != nil {
		return err
	}
	if collector == nil {
		return newValidationError(ErrNotRegistered, objectCollector, stats.Collector, "")
	}
	sql := insertSQL(collectorTable, collectorTable.childTable(collector.Name()),
		[]string{quote(collector.Name()), quote(collector.TypeTag()), quote(collector.Description())},
		[]string{
			c.timestamp(stats.CountingTime, true),
			itoa(stats.StoreCount), itoa(stats.PointCount), itoa(stats.RunningCount),
			c.timestamp(stats.RecentlyRunningTime, false),
		})
	return c.exec(ctx, "record collector stats "+collector.Name(), sql)
}

// RecordPointStats appends an observation for the Point registered under key.
func (c *Catalog) RecordPointStats(ctx context.Context, key string, stats PointStats) error {
	point, err := c.PointInfo(ctx, key)
	if err != nil {
		return err
	}
	if point == nil {
		return newValidationError(ErrNotRegistered, objectPoint, key, "no point with this key")
	}
	storeName, collectorName := point.Store().Name(), point.Collector().Name()
	sql := insertSQL(pointTable, pointTable.childTable(storeName, point.Name()),
		[]string{
			quote(point.Name()), quote(storeName), quote(collectorName), quote(key),
			quote(point.TypeTag()), quote(point.Description()),
		},
		[]string{
			c.timestamp(stats.CountingTime, true),
			itoa(stats.DataCount), itoa(stats.DataSize),
			c.timestamp(stats.RecentlyDataTime, false),
		})
	return c.exec(ctx, "record point stats "+point.Name(), sql)
}

// LatestPointStats returns the most recent observation for the Point
// registered under key. The boolean is false when there is no such Point.
func (c *Catalog) LatestPointStats(ctx context.Context, key string) (PointStats, bool, error) {
	sql := lastSQL(pointTable, []string{colCountingTime, colDataCount, colDataSize, colRecentlyData}) +
		" WHERE " + eq(colPointKey, key) + " GROUP BY " + quoteIdent(colPointKey)
	res, err := c.query(ctx, "point stats", sql)
	if err != nil {
		return PointStats{}, false, err
	}
	if res.RowsAffected() == 0 {
		return PointStats{}, false, nil
	}
	row, err := res.Row(0)
	if err != nil {
		return PointStats{}, false, err
	}
	var s PointStats
	var errs statErrors
	s.CountingTime = errs.timestamp(row[colCountingTime])
	s.DataCount = errs.integer(row[colDataCount])
	s.DataSize = errs.integer(row[colDataSize])
	s.RecentlyDataTime = errs.timestamp(row[colRecentlyData])
	if errs.err != nil {
		return PointStats{}, false, fmt.Errorf("%w: point %s: %w", ErrMalformedRow, key, errs.err)
	}
	return s, true, nil
}

// latestStoreStats returns the last observation of every Store that has one.
func (c *Catalog) latestStoreStats(ctx context.Context) (map[string]StoreStats, error) {
	sql := lastSQL(storeTable, []string{colCountingTime, colPointCount, colCollectorCount, colDataCount, colDataSize}) +
		" GROUP BY " + quoteIdent(colStoreName)
	res, err := c.query(ctx, "store stats", sql)
	if err != nil {
		return nil, err
	}
	out := make(map[string]StoreStats, res.RowsAffected())
	for i := 0; i < res.RowsAffected(); i++ {
		row, err := res.Row(i)
		if err != nil {
			return nil, err
		}
		name := tdtypes.AsString(row[colStoreName])
		var errs statErrors
		s := StoreStats{
			Store:          name,
			CountingTime:   errs.timestamp(row[colCountingTime]),
			PointCount:     errs.integer(row[colPointCount]),
			CollectorCount: errs.integer(row[colCollectorCount]),
			DataCount:      errs.integer(row[colDataCount]),
			DataSize:       errs.integer(row[colDataSize]),
		}
		if errs.err != nil {
			return nil, fmt.Errorf("%w: store %s: %w", ErrMalformedRow, name, errs.err)
		}
		out[name] = s
	}
	return out, nil
}

// lastSQL selects LAST(col) AS col for every column over t. A GROUP BY tag
// is returned by the engine as an extra column.
func lastSQL(t systemTable, columns []string) string {
	items := make([]string, len(columns))
	for i, col := range columns {
		items[i] = fmt.Sprintf("LAST(%s) AS %s", quoteIdent(col), quoteIdent(col))
	}
	return "SELECT " + strings.Join(items, ", ") + " FROM " + t.name
}

// statErrors keeps the first conversion error of a row.
type statErrors struct {
	err error
}

func (e *statErrors) integer(v any) int64 {
	n, err := tdtypes.AsInt64(v)
	if err != nil && e.err == nil {
		e.err = err
	}
	return n
}

func (e *statErrors) timestamp(v any) time.Time {
	if v == nil {
		return time.Time{}
	}
	t, err := tdtypes.ParseTimestamp(v)
	if err != nil && e.err == nil {
		e.err = err
	}
	return t
}

// timestamp renders t in milliseconds. A zero t is the current time when
// required and NULL otherwise.
func (c *Catalog) timestamp(t time.Time, required bool) string {
	if t.IsZero() {
		if !required {
			return "NULL"
		}
		t = c.now()
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
