package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"file":   fileStore,
		"sqlite": sqliteStore,
		"memory": NewMemoryStore(),
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx, "url-cache")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Save(ctx, "url-cache", []byte(`{"a":1}`)))
			require.NoError(t, store.Save(ctx, "url-cache", []byte(`{"a":2}`)))

			got, err := store.Load(ctx, "url-cache")
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(got))

			_, err = store.Load(ctx, "gallery:mine")
			assert.ErrorIs(t, err, ErrNotFound, "namespaces are independent")

			require.NoError(t, store.Delete(ctx, "url-cache"))
			require.NoError(t, store.Delete(ctx, "url-cache"))
			_, err = store.Load(ctx, "url-cache")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("", filepath.Join(dir, "files"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open("sqlite", filepath.Join(dir, "db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open("redis", dir)
	assert.Error(t, err)
}

func TestFileStore_RequiresPath(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}
