package keyring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gokeyring "github.com/zalando/go-keyring"
)

func TestFileManagerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keyring.json")
	m := NewFileManager(path, "master")
	assert.True(t, m.UsesFile())

	key := PasswordKey("127.0.0.1", 6041, "root")
	require.NoError(t, m.Set(key, "taosdata"))

	got, err := m.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "taosdata", got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "taosdata")

	require.NoError(t, m.Delete(key))
	_, err = m.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, m.Delete(key))
}

func TestFileManagerWrongMasterPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")
	require.NoError(t, NewFileManager(path, "a").Set("k", "v"))

	_, err := NewFileManager(path, "b").Get("k")
	assert.Error(t, err)
}

func TestSystemKeyring(t *testing.T) {
	gokeyring.MockInit()

	m := NewManager(filepath.Join(t.TempDir(), "unused.json"), "x")
	assert.False(t, m.UsesFile())

	key := PointOptionKey("0f3c", "token")
	_, err := m.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(key, "s3cr3t"))
	got, err := m.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", got)
	assert.NoError(t, m.Delete(key))
	assert.NoError(t, m.Delete(key))
}
