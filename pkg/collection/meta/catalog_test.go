package meta

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/tdmeta/pkg/collection"
	"github.com/redbco/tdmeta/pkg/connector"
	"github.com/redbco/tdmeta/pkg/connector/rest"
	"github.com/redbco/tdmeta/pkg/connector/tdenginetest"
	"github.com/redbco/tdmeta/pkg/logger"
	"github.com/redbco/tdmeta/pkg/tdtypes"
)

const tempSensorTag = "collector.tempsensor.v1"

var (
	siteTag    = tdtypes.Column("site", tdtypes.TypeNChar, 64)
	celsiusCol = tdtypes.Column("celsius", tdtypes.TypeFloat, 0)
	hexKey     = regexp.MustCompile(`^[0-9a-f]{32}$`)
)

// tickClock advances one second per reading so every row gets its own timestamp.
type tickClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func testRegistry(t *testing.T) *collection.TypeRegistry {
	t.Helper()
	reg := collection.NewTypeRegistry()
	collection.RegisterBaseTypes(reg)
	require.NoError(t, collection.DefineCollectorType(reg, tempSensorTag,
		[]tdtypes.ColumnMeta{siteTag}, []tdtypes.ColumnMeta{celsiusCol}))
	return reg
}

func dial(t *testing.T, srv *tdenginetest.Server) connector.Connection {
	t.Helper()
	conn, err := rest.Connect(context.Background(), connector.Config{
		Host:   srv.Host(),
		Port:   srv.Port(),
		Logger: logger.NewWithWriter("meta-test", &bytes.Buffer{}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func openCatalog(t *testing.T, srv *tdenginetest.Server, reg *collection.TypeRegistry) *Catalog {
	t.Helper()
	clock := &tickClock{t: time.UnixMilli(1_700_000_000_000)}
	return New(dial(t, srv),
		WithTypeRegistry(reg),
		WithLogger(logger.NewWithWriter("catalog-test", &bytes.Buffer{})),
		WithClock(clock.now),
	)
}

// newCatalog returns an initialized catalog on a fresh fake engine.
func newCatalog(t *testing.T) (*Catalog, *tdenginetest.Server) {
	t.Helper()
	srv := tdenginetest.NewServer()
	t.Cleanup(srv.Close)
	c := openCatalog(t, srv, testRegistry(t))
	outcome, err := c.Init(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, InitCreated, outcome)
	return c, srv
}

func tempSensor(t *testing.T, c *Catalog) collection.Collector {
	t.Helper()
	col, err := c.Types().NewCollector(tempSensorTag, "tempSensor", "temperature sensors")
	require.NoError(t, err)
	return col
}

func TestInitOutcomes(t *testing.T) {
	ctx := context.Background()
	srv := tdenginetest.NewServer()
	defer srv.Close()
	c := openCatalog(t, srv, testRegistry(t))

	exists, err := c.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	outcome, err := c.Init(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, InitCreated, outcome)
	assert.True(t, srv.HasDatabase(DefaultDatabase))
	assert.Equal(t, DatabaseOptions, srv.DatabaseOptions(DefaultDatabase))

	require.NoError(t, c.RegisterStore(ctx, collection.NewStore("orders", "")))

	outcome, err = c.Init(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, InitExisting, outcome)
	s, err := c.StoreInfo(ctx, "orders")
	require.NoError(t, err)
	assert.NotNil(t, s, "existing catalog keeps its rows")

	outcome, err = c.Init(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, InitReset, outcome)
	s, err = c.StoreInfo(ctx, "orders")
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.True(t, srv.HasDatabase("orders"), "store databases survive a reset")

	require.NoError(t, c.DropCatalog(ctx))
	assert.False(t, srv.HasDatabase(DefaultDatabase))
}

func TestInitDatabaseFailed(t *testing.T) {
	srv := tdenginetest.NewServer()
	defer srv.Close()
	c := openCatalog(t, srv, testRegistry(t))

	srv.FailNext("^CREATE DATABASE sys_meta", 1, "no space left")
	outcome, err := c.Init(context.Background(), false)
	assert.Equal(t, InitDatabaseFailed, outcome)
	assert.ErrorIs(t, err, ErrCreateCatalogDatabase)
	assert.ErrorIs(t, err, connector.ErrCommandFailed)
	assert.Contains(t, err.Error(), "no space left")
	assert.False(t, srv.HasDatabase(DefaultDatabase))
}

func TestInitTablesFailedThenCompleted(t *testing.T) {
	ctx := context.Background()
	srv := tdenginetest.NewServer()
	defer srv.Close()
	c := openCatalog(t, srv, testRegistry(t))

	srv.FailNext("^CREATE STABLE IF NOT EXISTS sys_collector", 1, "out of memory")
	outcome, err := c.Init(ctx, false)
	assert.Equal(t, InitTablesFailed, outcome)
	assert.ErrorIs(t, err, ErrCreateSystemTables)
	assert.True(t, srv.HasDatabase(DefaultDatabase))

	outcome, err = c.Init(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, InitExisting, outcome)
	require.NoError(t, c.RegisterCollector(ctx, tempSensor(t, c)))
}

func TestInitAbortsWhenEngineUnreachable(t *testing.T) {
	srv := tdenginetest.NewServer()
	c := openCatalog(t, srv, testRegistry(t))
	srv.Close()

	outcome, err := c.Init(context.Background(), false)
	assert.Equal(t, InitAborted, outcome)
	assert.ErrorIs(t, err, connector.ErrConnectionFailed)
	assert.Equal(t, connector.CodeNetwork, connector.CodeOf(err))
}

func TestInitOutcomeString(t *testing.T) {
	assert.Equal(t, "created", InitCreated.String())
	assert.Equal(t, "tables-failed", InitTablesFailed.String())
	assert.Equal(t, "InitOutcome(42)", InitOutcome(42).String())
}

func TestOrdersTempSensorSite7(t *testing.T) {
	ctx := context.Background()
	c, srv := newCatalog(t)

	orders := collection.NewStore("orders", "order ingestion", collection.WithKeepDays(1095))
	require.NoError(t, c.RegisterStore(ctx, orders))
	assert.True(t, srv.HasDatabase("orders"))

	store, err := c.StoreInfo(ctx, "orders")
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.IsType(t, &collection.BaseStore{}, store)
	assert.Equal(t, "orders", store.Name())
	assert.Equal(t, "order ingestion", store.Description())
	assert.Equal(t, 1095, store.KeepDays())
	assert.Equal(t, collection.StoreBaseTag, store.TypeTag())

	sensor := tempSensor(t, c)
	require.NoError(t, c.RegisterCollector(ctx, sensor))

	collector, err := c.CollectorInfo(ctx, "tempSensor")
	require.NoError(t, err)
	require.NotNil(t, collector)
	assert.Equal(t, "temperature sensors", collector.Description())
	assert.Equal(t, []tdtypes.ColumnMeta{siteTag}, collector.Tags())
	assert.Equal(t, []tdtypes.ColumnMeta{celsiusCol}, collector.Fields())

	point := collection.NewPoint("site-7", "north gate", sensor, orders, collection.WithTagValue("site", "7"))
	registered, err := c.RegisterPoint(ctx, point)
	require.NoError(t, err)
	assert.Regexp(t, hexKey, registered.Key())
	assert.Empty(t, point.Key(), "argument is not modified")
	assert.Equal(t, "7", registered.TagValues()["site"])

	got, err := c.PointInfo(ctx, registered.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "site-7", got.Name())
	assert.Equal(t, "north gate", got.Description())
	assert.Equal(t, registered.Key(), got.Key())
	assert.Equal(t, "orders", got.Store().Name())
	assert.Equal(t, "tempSensor", got.Collector().Name())
	assert.Equal(t, []tdtypes.ColumnMeta{celsiusCol}, got.Collector().Fields())
}

func TestLookupsReturnNilWhenAbsent(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	s, err := c.StoreInfo(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, s)

	col, err := c.CollectorInfo(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, col)

	p, err := c.PointInfo(ctx, strings.Repeat("0", 32))
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = c.PointInfo(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRegisterStoreDuplicate(t *testing.T) {
	ctx := context.Background()
	c, srv := newCatalog(t)

	require.NoError(t, c.RegisterStore(ctx, collection.NewStore("orders", "first")))
	err := c.RegisterStore(ctx, collection.NewStore("orders", "second"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, connector.CodeNameExists, connector.CodeOf(err))

	assert.Equal(t, 1, srv.RowCount(DefaultDatabase, storeTable.childTable("orders")))
	stores, _, err := c.AllStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "first", stores["orders"].Description())
}

func TestRegisterStoreConcurrentSameName(t *testing.T) {
	ctx := context.Background()
	_, srv := newCatalog(t)
	reg := testRegistry(t)

	const n = 6
	catalogs := make([]*Catalog, n)
	for i := range catalogs {
		catalogs[i] = openCatalog(t, srv, reg)
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, c := range catalogs {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.RegisterStore(ctx, collection.NewStore("orders", ""))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateName)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, srv.RowCount(DefaultDatabase, storeTable.childTable("orders")))
}

func TestRegisterStoreCompensates(t *testing.T) {
	ctx := context.Background()
	c, srv := newCatalog(t)

	srv.FailNext("^CREATE DATABASE orders", 1, "vnodes exhausted")
	err := c.RegisterStore(ctx, collection.NewStore("orders", "order ingestion"))
	require.Error(t, err)

	var regErr *RegisterError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "store", regErr.Object)
	assert.Equal(t, "orders", regErr.Name)
	assert.Equal(t, "create backing database", regErr.Step)
	assert.ErrorIs(t, err, ErrRegisterFailed)
	assert.ErrorIs(t, err, connector.ErrCommandFailed)
	assert.Contains(t, err.Error(), "vnodes exhausted")
	assert.Equal(t, connector.CodeRegisterFailed, connector.CodeOf(err))

	s, err := c.StoreInfo(ctx, "orders")
	require.NoError(t, err)
	assert.Nil(t, s, "catalog row removed")
	assert.NotContains(t, srv.Tables(DefaultDatabase), storeTable.childTable("orders"))
	assert.False(t, srv.HasDatabase("orders"))

	require.NoError(t, c.RegisterStore(ctx, collection.NewStore("orders", "order ingestion")))
}

func TestRegisterStoreCompensationFails(t *testing.T) {
	ctx := context.Background()
	c, srv := newCatalog(t)

	srv.FailNext("^CREATE DATABASE orders", 1, "vnodes exhausted")
	srv.FailNext("^DROP TABLE", 1, "table locked")
	err := c.RegisterStore(ctx, collection.NewStore("orders", ""))
	require.Error(t, err)

	var inc *InconsistencyError
	require.ErrorAs(t, err, &inc)
	assert.Equal(t, "store", inc.Object)
	assert.Equal(t, "orders", inc.Name)
	assert.Equal(t, "create backing database", inc.Step)
	assert.Equal(t, "insert catalog row", inc.UndoStep)
	assert.ErrorIs(t, err, ErrInconsistent)
	assert.Contains(t, inc.Cause.Error(), "vnodes exhausted")
	assert.Contains(t, inc.CompensationErr.Error(), "table locked")
	assert.NotErrorIs(t, err, ErrRegisterFailed)

	s, err := c.StoreInfo(ctx, "orders")
	require.NoError(t, err)
	assert.NotNil(t, s, "orphaned row stays behind")
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	c, srv := newCatalog(t)

	badSchema := collection.NewCollector("dup", "",
		[]tdtypes.ColumnMeta{siteTag},
		[]tdtypes.ColumnMeta{tdtypes.Column("SITE", tdtypes.TypeInt, 0)})

	tests := []struct {
		name     string
		register func() error
		want     error
		code     int
	}{
		{
			name:     "empty store name",
			register: func() error { return c.RegisterStore(ctx, collection.NewStore("", "")) },
			want:     ErrEmptyName,
			code:     connector.CodeEmptyField,
		},
		{
			name:     "quote in store name",
			register: func() error { return c.RegisterStore(ctx, collection.NewStore("ord'ers", "")) },
			want:     ErrInvalidName,
			code:     connector.CodeRegisterFailed,
		},
		{
			name:     "backquote in collector name",
			register: func() error { return c.RegisterCollector(ctx, collection.NewCollector("temp`", "", nil, nil)) },
			want:     ErrInvalidName,
			code:     connector.CodeRegisterFailed,
		},
		{
			name:     "store name too long",
			register: func() error { return c.RegisterStore(ctx, collection.NewStore(strings.Repeat("a", 129), "")) },
			want:     ErrNameTooLong,
			code:     connector.CodeRegisterFailed,
		},
		{
			name: "description too long",
			register: func() error {
				return c.RegisterStore(ctx, collection.NewStore("orders", strings.Repeat("é", 201)))
			},
			want: ErrDescriptionTooLong,
			code: connector.CodeRegisterFailed,
		},
		{
			name: "unregistered store type",
			register: func() error {
				return c.RegisterStore(ctx, collection.NewStore("orders", "", collection.WithStoreTypeTag("store.custom.v9")))
			},
			want: collection.ErrInvalidType,
			code: connector.CodeInvalidType,
		},
		{
			name: "store tag used for a collector",
			register: func() error {
				return c.RegisterCollector(ctx, collection.NewCollector("temp", "", nil, nil).WithTypeTag(collection.StoreBaseTag))
			},
			want: collection.ErrInvalidType,
			code: connector.CodeInvalidType,
		},
		{
			name:     "collector schema repeats a name",
			register: func() error { return c.RegisterCollector(ctx, badSchema) },
			want:     ErrInvalidSchema,
			code:     connector.CodeRegisterFailed,
		},
		{
			name:     "store name is not a database name",
			register: func() error { return c.RegisterStore(ctx, collection.NewStore("site-7", "")) },
			want:     ErrInvalidName,
			code:     connector.CodeRegisterFailed,
		},
		{
			name: "store option cannot be rendered",
			register: func() error {
				return c.RegisterStore(ctx, collection.NewStore("orders", "", collection.WithStoreOption("COMP", "2;DROP")))
			},
			want: ErrInvalidStore,
			code: connector.CodeRegisterFailed,
		},
		{
			name: "base collector carrying a schema",
			register: func() error {
				return c.RegisterCollector(ctx, collection.NewCollector("rawSensor", "",
					[]tdtypes.ColumnMeta{siteTag}, []tdtypes.ColumnMeta{celsiusCol}))
			},
			want: ErrInvalidSchema,
			code: connector.CodeRegisterFailed,
		},
		{
			name:     "nil store",
			register: func() error { return c.RegisterStore(ctx, nil) },
			want:     ErrMissingReference,
			code:     connector.CodeEmptyField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(srv.Requests())
			err := tt.register()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.code, connector.CodeOf(err))
			assert.Len(t, srv.Requests(), before, "nothing sent to the engine")
		})
	}
}

func TestRegisterPointChecks(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	orders := collection.NewStore("orders", "")
	archive := collection.NewStore("archive", "")
	sensor := tempSensor(t, c)
	require.NoError(t, c.RegisterStore(ctx, orders))
	require.NoError(t, c.RegisterStore(ctx, archive))

	_, err := c.RegisterPoint(ctx, collection.NewPoint("site-7", "", sensor, orders))
	assert.ErrorIs(t, err, ErrNotRegistered, "collector not registered yet")
	require.NoError(t, c.RegisterCollector(ctx, sensor))

	tests := []struct {
		name  string
		point collection.Point
		want  error
	}{
		{"empty name", collection.NewPoint("", "", sensor, orders), ErrEmptyName},
		{"no store", collection.NewPoint("site-7", "", sensor, nil), ErrMissingReference},
		{"no collector", collection.NewPoint("site-7", "", nil, orders), ErrMissingReference},
		{"store not registered", collection.NewPoint("site-7", "", sensor, collection.NewStore("ghost", "")), ErrNotRegistered},
		{"undeclared tag", collection.NewPoint("site-7", "", sensor, orders, collection.WithTagValue("floor", "2")), ErrUnknownTag},
		{"unknown point type", collection.NewPoint("site-7", "", sensor, orders, collection.WithPointTypeTag("point.custom.v1")), collection.ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.RegisterPoint(ctx, tt.point)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	first, err := c.RegisterPoint(ctx, collection.NewPoint("site-7", "", sensor, orders))
	require.NoError(t, err)

	_, err = c.RegisterPoint(ctx, collection.NewPoint("site-7", "again", sensor, orders))
	assert.ErrorIs(t, err, ErrDuplicateName)

	other, err := c.RegisterPoint(ctx, collection.NewPoint("site-7", "", sensor, archive))
	require.NoError(t, err, "same point name in another store")
	assert.NotEqual(t, first.Key(), other.Key())

	got, err := c.PointInfo(ctx, other.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "archive", got.Store().Name())
}

func TestRegisterPointUsesKeyGenerator(t *testing.T) {
	ctx := context.Background()
	srv := tdenginetest.NewServer()
	defer srv.Close()

	c := New(dial(t, srv), WithTypeRegistry(testRegistry(t)), WithKeyGenerator(func() string { return "fixedkey" }))
	_, err := c.Init(ctx, false)
	require.NoError(t, err)

	orders := collection.NewStore("orders", "")
	sensor := tempSensor(t, c)
	require.NoError(t, c.RegisterStore(ctx, orders))
	require.NoError(t, c.RegisterCollector(ctx, sensor))

	p, err := c.RegisterPoint(ctx, collection.NewPoint("site-7", "", sensor, orders))
	require.NoError(t, err)
	assert.Equal(t, "fixedkey", p.Key())
}

func TestNewPointKeyIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		k := NewPointKey()
		assert.Regexp(t, hexKey, k)
		assert.False(t, seen[k])
		seen[k] = true
	}
}

func TestAllStoresWithStats(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	stores, stats, err := c.AllStores(ctx)
	require.NoError(t, err)
	assert.Empty(t, stores)
	assert.Empty(t, stats)

	require.NoError(t, c.RegisterStore(ctx, collection.NewStore("orders", "")))
	require.NoError(t, c.RegisterStore(ctx, collection.NewStore("Archive", "")))
	require.NoError(t, c.RecordStoreStats(ctx, StoreStats{Store: "orders", PointCount: 3, CollectorCount: 1, DataCount: 10, DataSize: 4096}))
	require.NoError(t, c.RecordStoreStats(ctx, StoreStats{Store: "orders", PointCount: 4, CollectorCount: 1, DataCount: 12, DataSize: 5000}))

	stores, stats, err = c.AllStores(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"orders", "Archive"}, keys(stores))
	assert.ElementsMatch(t, keys(stores), keys(stats))

	assert.Equal(t, StoreStats{
		Store:          "orders",
		CountingTime:   stats["orders"].CountingTime,
		PointCount:     4,
		CollectorCount: 1,
		DataCount:      12,
		DataSize:       5000,
	}, stats["orders"])
	assert.False(t, stats["orders"].CountingTime.IsZero())

	archive := stats["Archive"]
	assert.Equal(t, "Archive", archive.Store)
	assert.Zero(t, archive.PointCount)
	assert.Zero(t, archive.CollectorCount)
	assert.Zero(t, archive.DataCount)
	assert.Zero(t, archive.DataSize)

	err = c.RecordStoreStats(ctx, StoreStats{Store: "ghost"})
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestPointAndCollectorStats(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	orders := collection.NewStore("orders", "")
	sensor := tempSensor(t, c)
	require.NoError(t, c.RegisterStore(ctx, orders))
	require.NoError(t, c.RegisterCollector(ctx, sensor))
	p, err := c.RegisterPoint(ctx, collection.NewPoint("site-7", "", sensor, orders))
	require.NoError(t, err)

	stats, ok, err := c.LatestPointStats(ctx, p.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, stats.DataCount)
	assert.True(t, stats.RecentlyDataTime.IsZero())

	last := time.UnixMilli(1_700_000_500_000)
	require.NoError(t, c.RecordPointStats(ctx, p.Key(), PointStats{DataCount: 42, DataSize: 1024, RecentlyDataTime: last}))

	stats, ok, err = c.LatestPointStats(ctx, p.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(42), stats.DataCount)
	assert.Equal(t, int64(1024), stats.DataSize)
	assert.Equal(t, last.UnixMilli(), stats.RecentlyDataTime.UnixMilli())

	_, ok, err = c.LatestPointStats(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, c.RecordPointStats(ctx, "missing", PointStats{}), ErrNotRegistered)

	require.NoError(t, c.RecordCollectorStats(ctx, CollectorStats{Collector: "tempSensor", StoreCount: 1, PointCount: 1, RunningCount: 7}))
	assert.ErrorIs(t, c.RecordCollectorStats(ctx, CollectorStats{Collector: "ghost"}), ErrNotRegistered)
}

func TestSearchCollectorsPaging(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	for _, name := range []string{"meter", "sensor-1", "sensor-0", "sensor-2", "sensor-4", "sensor-3"} {
		require.NoError(t, c.RegisterCollector(ctx, collection.NewCollector(name, "", nil, nil)))
	}

	names := func(cs []collection.Collector) []string {
		out := make([]string, len(cs))
		for i, col := range cs {
			out[i] = col.Name()
		}
		return out
	}

	// Pages follow registration order; each page is sorted by name.
	tests := []struct {
		like       string
		page, size int
		want       []string
	}{
		{"sensor", 0, 2, []string{"sensor-0", "sensor-1"}},
		{"sensor", 1, 2, []string{"sensor-2", "sensor-4"}},
		{"sensor", 2, 2, []string{"sensor-3"}},
		{"sensor", 3, 2, []string{}},
		{"-3", 0, 10, []string{"sensor-3"}},
		{"", 0, 10, []string{"meter", "sensor-0", "sensor-1", "sensor-2", "sensor-3", "sensor-4"}},
		{"nothing", 0, 10, []string{}},
	}
	for _, tt := range tests {
		got, err := c.SearchCollectors(ctx, tt.like, tt.page, tt.size)
		require.NoError(t, err)
		assert.Equal(t, tt.want, names(got), "like=%q page=%d size=%d", tt.like, tt.page, tt.size)
	}

	_, err := c.SearchCollectors(ctx, "sensor", -1, 2)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = c.SearchCollectors(ctx, "sensor", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestSearchDoesNotOrderByTag(t *testing.T) {
	ctx := context.Background()
	c, srv := newCatalog(t)
	require.NoError(t, c.RegisterCollector(ctx, collection.NewCollector("meter", "", nil, nil)))

	_, err := c.SearchCollectors(ctx, "", 0, 10)
	require.NoError(t, err)
	for _, req := range srv.Requests() {
		assert.NotContains(t, strings.ToUpper(req.Body), "ORDER BY", req.Body)
	}

	// The engine refuses to order a super table query by a tag.
	res := dial(t, srv).Query(ctx, DefaultDatabase, "SELECT DISTINCT `collector_name` FROM `sys_collector` ORDER BY `collector_name`")
	assert.True(t, res.HasError())
}

func TestSearchWildcardsMatchThemselves(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)
	for _, name := range []string{"a_b", "axb", "50%", "500"} {
		require.NoError(t, c.RegisterCollector(ctx, collection.NewCollector(name, "", nil, nil)))
	}

	tests := []struct {
		like string
		want []string
	}{
		{"_", []string{"a_b"}},
		{"a_b", []string{"a_b"}},
		{"%", []string{"50%"}},
		{"0%", []string{"50%"}},
		{"x", []string{"axb"}},
	}
	for _, tt := range tests {
		got, err := c.SearchCollectors(ctx, tt.like, 0, 10)
		require.NoError(t, err)
		var names []string
		for _, col := range got {
			names = append(names, col.Name())
		}
		assert.Equal(t, tt.want, names, "like=%q", tt.like)
	}
}

func TestSearchPointsByStore(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	orders := collection.NewStore("orders", "")
	archive := collection.NewStore("archive", "")
	sensor := tempSensor(t, c)
	require.NoError(t, c.RegisterStore(ctx, orders))
	require.NoError(t, c.RegisterStore(ctx, archive))
	require.NoError(t, c.RegisterCollector(ctx, sensor))
	for _, p := range []collection.Point{
		collection.NewPoint("site-1", "", sensor, orders),
		collection.NewPoint("site-2", "", sensor, orders),
		collection.NewPoint("site-1", "", sensor, archive),
		collection.NewPoint("gate", "", sensor, archive),
	} {
		_, err := c.RegisterPoint(ctx, p)
		require.NoError(t, err)
	}

	all, err := c.SearchPoints(ctx, "site", "", 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	inOrders, err := c.SearchPoints(ctx, "", "orders", 0, 10)
	require.NoError(t, err)
	require.Len(t, inOrders, 2)
	for _, p := range inOrders {
		assert.Equal(t, "orders", p.Store().Name())
		assert.Regexp(t, hexKey, p.Key())
		assert.Equal(t, []tdtypes.ColumnMeta{celsiusCol}, p.Collector().Fields())
	}

	page, err := c.SearchPoints(ctx, "site", "archive", 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "site-1", page[0].Name())

	_, err = c.SearchPoints(ctx, "", "", 0, -5)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestLikePatternIsQuoted(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)
	require.NoError(t, c.RegisterCollector(ctx, collection.NewCollector("thermo", "", nil, nil)))

	got, err := c.SearchCollectors(ctx, "x' OR '1' = '1", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
