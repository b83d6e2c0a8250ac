package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("test_key", "test_value")
	require.NoError(t, err)

	val, ok := store.Get("test_key")
	assert.True(t, ok)
	assert.Equal(t, "test_value", val)
}

func TestConfigStore_GetString(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("string_key", "hello world")
	require.NoError(t, err)

	val := store.GetString("string_key")
	assert.Equal(t, "hello world", val)

	// Non-existent key
	val = store.GetString("nonexistent")
	assert.Equal(t, "", val)

	// Wrong type
	err = store.Set("int_key", 42)
	require.NoError(t, err)
	val = store.GetString("int_key")
	assert.Equal(t, "", val)
}

func TestConfigStore_GetInt(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("int_key", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, store.GetInt("int_key"))

	assert.Equal(t, 0, store.GetInt("nonexistent"))

	err = store.Set("string_key", "not an int")
	require.NoError(t, err)
	assert.Equal(t, 0, store.GetInt("string_key"))
}

func TestConfigStore_GetFloat(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("threshold", 0.7)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, store.GetFloat("threshold"), 1e-9)

	// Whole-number values still work
	err = store.Set("whole", 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, store.GetFloat("whole"), 1e-9)

	assert.Zero(t, store.GetFloat("nonexistent"))
}

func TestConfigStore_GetBool(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("bool_key", true)
	require.NoError(t, err)
	assert.True(t, store.GetBool("bool_key"))

	assert.False(t, store.GetBool("nonexistent"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("libraries", []string{"group_1", "group_2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"group_1", "group_2"}, store.GetStringSlice("libraries"))

	assert.Nil(t, store.GetStringSlice("nonexistent"))
}

func TestConfigStore_Delete(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("source.api_key", "secret")
	require.NoError(t, err)
	err = store.Delete("source.api_key")
	require.NoError(t, err)

	_, ok := store.Get("source.api_key")
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete("nonexistent"))

	// The deletion is persisted.
	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok = reloaded.Get("source.api_key")
	assert.False(t, ok)
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("search.threshold", 0.7))
	require.NoError(t, store.Set("chunk.size", 512))
	require.NoError(t, store.Set("search.libraries", []string{"group_5140532"}))

	// A fresh store reads back what the first one wrote, with TOML's
	// int64/[]any representations normalised by the getters.
	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, reloaded.GetFloat("search.threshold"), 1e-9)
	assert.Equal(t, 512, reloaded.GetInt("chunk.size"))
	assert.Equal(t, []string{"group_5140532"}, reloaded.GetStringSlice("search.libraries"))
}

func TestConfigStore_LoadMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, store.Load())

	_, ok := store.Get("anything")
	assert.False(t, ok)
}
