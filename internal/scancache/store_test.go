package scancache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/assetkeeper/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRefs() *models.ReferenceSet {
	refs := models.NewReferenceSet("/proj/house.max")
	refs.Add(models.CategoryTexture, "C:/maps/Wood.jpg")
	refs.Add(models.CategoryProxy, "D:/cache/tree.vrmesh")
	refs.AddDiagnostic("read 3 streams, 2048 bytes")
	return refs
}

func TestStoreAndLookup(t *testing.T) {
	store := newTestStore(t)
	mod := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Store("/proj/house.max", 2048, mod, sampleRefs()))

	got, ok := store.Lookup("/proj/house.max", 2048, mod)
	require.True(t, ok)
	assert.True(t, got.Textures.Contains("c:/maps/wood.jpg"))
	assert.True(t, got.Proxies.Contains("D:/cache/tree.vrmesh"))
	assert.Empty(t, got.Diagnostics, "diagnostics are not cached")
}

func TestLookupMissesOnChange(t *testing.T) {
	store := newTestStore(t)
	mod := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Store("/proj/house.max", 2048, mod, sampleRefs()))

	_, ok := store.Lookup("/proj/house.max", 4096, mod)
	assert.False(t, ok, "size changed")

	_, ok = store.Lookup("/proj/house.max", 2048, mod.Add(time.Second))
	assert.False(t, ok, "mtime changed")

	_, ok = store.Lookup("/proj/other.max", 2048, mod)
	assert.False(t, ok, "unknown document")
}

func TestStoreReplacesRow(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	mod := time.Now()

	require.NoError(t, store.Store("/proj/house.max", 1, mod, sampleRefs()))
	updated := models.NewReferenceSet("/proj/house.max")
	updated.Add(models.CategoryOther, "C:/ies/lamp.ies")
	require.NoError(t, store.Store("/proj/house.max", 2, mod, updated))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, ok := store.Lookup("/proj/house.max", 2, mod)
	require.True(t, ok)
	assert.Equal(t, 0, got.Textures.Len())
	assert.Equal(t, []string{"C:/ies/lamp.ies"}, got.Other.Items())

	require.NoError(t, store.Invalidate(ctx, "/proj/house.max"))
	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStorePersistsOnDisk(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache", "scancache.db")
	mod := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Store("/proj/house.max", 10, mod, sampleRefs()))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	_, ok := reopened.Lookup("/proj/house.max", 10, mod)
	assert.True(t, ok)

	require.NoError(t, reopened.Clear(context.Background()))
	_, ok = reopened.Lookup("/proj/house.max", 10, mod)
	assert.False(t, ok)
}
