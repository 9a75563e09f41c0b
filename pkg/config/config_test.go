package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sample = `
connector:
  type: rest
  host: 10.0.0.5
  port: 6041
  options:
    RESULT_TIME_FORMAT: utc
  timeout:
    request: 2s
catalog:
  database: sys_meta
`

func TestLoadFileFlattensNestedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "rest", c.Get("connector.type"))
	assert.Equal(t, "10.0.0.5", c.Get("connector.host"))
	assert.Equal(t, "sys_meta", c.Get("catalog.database"))

	port, err := c.GetInt("connector.port", 0)
	require.NoError(t, err)
	assert.Equal(t, 6041, port)

	d, err := c.GetDuration("connector.timeout.request", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)

	assert.Equal(t, map[string]string{"RESULT_TIME_FORMAT": "utc"}, c.GetPrefix("connector.options"))
}

func TestLoadDocumentReturnsParsedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", c.Get("connector.host"))

	var section struct {
		Catalog struct {
			Database string `yaml:"database"`
		} `yaml:"catalog"`
	}
	require.NoError(t, doc.Decode(&section))
	assert.Equal(t, "sys_meta", section.Catalog.Database)
}

func TestLoadDocumentEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	c, doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, yaml.Kind(0), doc.Kind)
	assert.Empty(t, c.GetPrefix("connector"))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestTypedGettersDefaults(t *testing.T) {
	c := New()
	n, err := c.GetInt("connector.port", 6041)
	require.NoError(t, err)
	assert.Equal(t, 6041, n)
	assert.Equal(t, "log", c.GetDefault("connector.database", "log"))

	c.Set("connector.port", "abc")
	_, err = c.GetInt("connector.port", 6041)
	assert.Error(t, err)
}

func TestRequiresReconnect(t *testing.T) {
	c := New()
	c.Update(map[string]string{"connector.host": "a", "catalog.database": "x"})
	old := c.GetAll()

	c.Set("catalog.database", "y")
	assert.False(t, c.RequiresReconnect(old))

	c.Set("connector.host", "b")
	assert.True(t, c.RequiresReconnect(old))
}
