// Package clitest opens initialized catalogs on a fake engine for command tests.
package clitest

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redbco/tdmeta/pkg/collection"
	"github.com/redbco/tdmeta/pkg/collection/meta"
	"github.com/redbco/tdmeta/pkg/connector"
	"github.com/redbco/tdmeta/pkg/connector/rest"
	"github.com/redbco/tdmeta/pkg/connector/tdenginetest"
	"github.com/redbco/tdmeta/pkg/logger"
	"github.com/redbco/tdmeta/pkg/tdtypes"
)

// SensorType is a collector type with one tag and one field.
const SensorType = "collector.sensor.v1"

// Types returns the base types plus SensorType.
func Types(t testing.TB) *collection.TypeRegistry {
	t.Helper()
	reg := collection.NewTypeRegistry()
	collection.RegisterBaseTypes(reg)
	require.NoError(t, collection.DefineCollectorType(reg, SensorType,
		[]tdtypes.ColumnMeta{tdtypes.Column("site", tdtypes.TypeNChar, 64)},
		[]tdtypes.ColumnMeta{tdtypes.Column("value", tdtypes.TypeDouble, 0)}))
	return reg
}

// Catalog returns an initialized catalog on a fresh fake engine.
func Catalog(t testing.TB) (*meta.Catalog, *tdenginetest.Server) {
	t.Helper()
	srv := tdenginetest.NewServer()
	t.Cleanup(srv.Close)

	quiet := logger.NewWithWriter("clitest", &bytes.Buffer{})
	conn, err := rest.Connect(context.Background(), connector.Config{
		Host:   srv.Host(),
		Port:   srv.Port(),
		Logger: quiet,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := meta.New(conn, meta.WithTypeRegistry(Types(t)), meta.WithLogger(quiet))
	_, err = c.Init(context.Background(), false)
	require.NoError(t, err)
	return c, srv
}
