package collectors

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/tdmeta/cmd/tdmeta/internal/clitest"
	"github.com/redbco/tdmeta/pkg/collection"
)

func TestRegisterSearchAndShow(t *testing.T) {
	ctx := context.Background()
	c, _ := clitest.Catalog(t)
	var out bytes.Buffer

	require.NoError(t, RegisterCollector(ctx, c, &out, "thermo", "temperature sensors", clitest.SensorType))
	require.NoError(t, RegisterCollector(ctx, c, &out, "meter", "", ""))
	assert.Equal(t,
		"Collector thermo registered as collector.sensor.v1\nCollector meter registered as collector.base.v1\n",
		out.String())

	out.Reset()
	require.NoError(t, SearchCollectors(ctx, c, &out, "her", 0, 20))
	assert.Contains(t, out.String(), "thermo")
	assert.NotContains(t, out.String(), "meter")

	out.Reset()
	require.NoError(t, ShowCollector(ctx, c, &out, "thermo"))
	assert.Equal(t, "Name:        thermo\n"+
		"Type:        collector.sensor.v1\n"+
		"Description: temperature sensors\n"+
		"Tags:\n  `site` NCHAR(64)\n"+
		"Fields:\n  `value` DOUBLE\n", out.String())

	out.Reset()
	require.NoError(t, ShowCollector(ctx, c, &out, "meter"))
	assert.Contains(t, out.String(), "Tags: none\n")
}

func TestSearchCollectorsNoMatch(t *testing.T) {
	c, _ := clitest.Catalog(t)
	var out bytes.Buffer
	require.NoError(t, SearchCollectors(context.Background(), c, &out, "x", 0, 20))
	assert.Equal(t, "No collectors found\n", out.String())

	assert.Error(t, SearchCollectors(context.Background(), c, &out, "", 0, 0))
}

func TestRegisterCollectorUnknownType(t *testing.T) {
	c, _ := clitest.Catalog(t)
	err := RegisterCollector(context.Background(), c, &bytes.Buffer{}, "thermo", "", "collector.nope.v1")
	assert.ErrorIs(t, err, collection.ErrInvalidType)

	err = ShowCollector(context.Background(), c, &bytes.Buffer{}, "thermo")
	assert.EqualError(t, err, "collector thermo not found")
}
