package admin

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/clitest"
	"github.com/redbco/tdmeta/pkg/health"
)

func TestInitCatalog(t *testing.T) {
	ctx := context.Background()
	c, _ := clitest.Catalog(t)

	var out bytes.Buffer
	require.NoError(t, InitCatalog(ctx, c, &out, false))
	require.NoError(t, InitCatalog(ctx, c, &out, true))
	assert.Equal(t, "Catalog sys_meta already exists\nCatalog sys_meta reset\n", out.String())
}

func TestInitCatalogFailure(t *testing.T) {
	c, srv := clitest.Catalog(t)
	srv.FailNext(`^DROP DATABASE`, 1, "disk full")

	err := InitCatalog(context.Background(), c, &bytes.Buffer{}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHealth(t *testing.T) {
	checker := health.NewChecker()
	checker.Add("engine", func(context.Context) error { return nil })

	var out bytes.Buffer
	require.NoError(t, Health(context.Background(), checker, &out))
	assert.Contains(t, out.String(), "engine")
	assert.Contains(t, out.String(), "Overall: healthy\n")

	checker.Add("catalog", func(context.Context) error { return errors.New("catalog database sys_meta not found") })
	out.Reset()
	assert.ErrorIs(t, Health(context.Background(), checker, &out), ErrUnhealthy)
	assert.Contains(t, out.String(), "catalog database sys_meta not found")
	assert.Contains(t, out.String(), "Overall: degraded\n")
}
