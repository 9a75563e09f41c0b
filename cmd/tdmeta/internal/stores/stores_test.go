package stores

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/clitest"
	"github.com/redbco/tdmeta/pkg/collection/meta"
)

func TestListStoresEmpty(t *testing.T) {
	c, _ := clitest.Catalog(t)
	var out bytes.Buffer
	require.NoError(t, ListStores(context.Background(), c, &out))
	assert.Equal(t, "No stores found\n", out.String())
}

func TestRegisterListAndShow(t *testing.T) {
	ctx := context.Background()
	c, srv := clitest.Catalog(t)

	var out bytes.Buffer
	err := RegisterStore(ctx, c, &out, RegisterOptions{
		Name:        "orders",
		Description: "order ingestion",
		KeepDays:    30,
		Update:      "all",
		Options:     []string{"COMP=2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Store orders registered (KEEP 30, UPDATE all)\n", out.String())
	assert.True(t, srv.HasDatabase("orders"))
	assert.Equal(t, "KEEP 30 UPDATE 1 COMP 2", srv.DatabaseOptions("orders"))

	require.NoError(t, RegisterStore(ctx, c, &out, RegisterOptions{Name: "archive"}))

	out.Reset()
	require.NoError(t, ListStores(ctx, c, &out))
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.True(t, bytes.HasPrefix(lines[0], []byte("Name")))
	assert.True(t, bytes.HasPrefix(lines[2], []byte("archive")))
	assert.True(t, bytes.HasPrefix(lines[3], []byte("orders")))
	assert.Contains(t, string(lines[3]), "order ingestion")

	out.Reset()
	require.NoError(t, ShowStore(ctx, c, &out, "orders"))
	assert.Contains(t, out.String(), "Name:        orders\n")
	assert.Contains(t, out.String(), "Description: order ingestion\n")
	assert.Contains(t, out.String(), "Points:      0\n")
}

func TestRegisterStoreErrors(t *testing.T) {
	ctx := context.Background()
	c, _ := clitest.Catalog(t)
	var out bytes.Buffer

	assert.Error(t, RegisterStore(ctx, c, &out, RegisterOptions{Name: "orders", Update: "sometimes"}))
	assert.Error(t, RegisterStore(ctx, c, &out, RegisterOptions{Name: "orders", Options: []string{"COMP"}}))

	require.NoError(t, RegisterStore(ctx, c, &out, RegisterOptions{Name: "orders"}))
	err := RegisterStore(ctx, c, &out, RegisterOptions{Name: "orders"})
	assert.ErrorIs(t, err, meta.ErrDuplicateName)
}

func TestShowStoreNotFound(t *testing.T) {
	c, _ := clitest.Catalog(t)
	err := ShowStore(context.Background(), c, &bytes.Buffer{}, "nope")
	assert.EqualError(t, err, "store nope not found")
}
