package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mmynk/fairshare/internal/idalloc"
	"github.com/mmynk/fairshare/internal/storage"
	"github.com/mmynk/fairshare/internal/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		store, err := New(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)
		return store
	})
}

func TestNewCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "fairshare.db")

	store, err := New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	require.FileExists(t, dbPath)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "fairshare.db")

	store, err := New(dbPath)
	require.NoError(t, err)
	id, err := store.NextID(ctx, idalloc.SequenceGroup)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	next, err := store.NextID(ctx, idalloc.SequenceGroup)
	require.NoError(t, err)
	require.Equal(t, id+1, next)
}
