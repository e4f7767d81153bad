package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/recall/internal/db/dbtest"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Adapter(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "recall.db"))
	dbtest.RunAdapterTests(t, store)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recall.db")
	ctx := context.Background()

	first, err := NewStore(StoreConfig{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.Write(ctx, "k", []byte("v")))
	require.NoError(t, first.Close())

	second := newTestStore(t, path)
	got, err := second.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
	assert.Equal(t, path, second.Path())
}

func TestMigrations_Idempotent(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "recall.db"))

	mgr := NewMigrationManager(store.db)
	require.NoError(t, mgr.RunMigrations())

	applied, err := mgr.GetAppliedVersions()
	require.NoError(t, err)
	assert.Len(t, applied, len(Migrations))
}
