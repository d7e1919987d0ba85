package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupGormStore(t *testing.T) *GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	store, err := NewGormStore(db)
	require.NoError(t, err)
	return store
}

func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, NamespaceCart, "profile-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, NamespaceCart, "profile-1", []byte(`[{"id":"p1"}]`)))
	doc, err := store.Get(ctx, NamespaceCart, "profile-1")
	require.NoError(t, err)
	require.JSONEq(t, `[{"id":"p1"}]`, string(doc))

	// Upsert replaces the whole document.
	require.NoError(t, store.Put(ctx, NamespaceCart, "profile-1", []byte(`[]`)))
	doc, err = store.Get(ctx, NamespaceCart, "profile-1")
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(doc))

	// Scopes are independent.
	require.NoError(t, store.Put(ctx, NamespaceWishlist, "profile-1", []byte(`["p2"]`)))
	require.NoError(t, store.Put(ctx, NamespaceCart, "profile-2", []byte(`["other"]`)))
	doc, err = store.Get(ctx, NamespaceWishlist, "profile-1")
	require.NoError(t, err)
	require.JSONEq(t, `["p2"]`, string(doc))

	require.NoError(t, store.Delete(ctx, NamespaceCart, "profile-1"))
	_, err = store.Get(ctx, NamespaceCart, "profile-1")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing document is a no-op.
	require.NoError(t, store.Delete(ctx, NamespaceCart, "missing"))
}

func TestGormStoreContract(t *testing.T) {
	runStoreContract(t, setupGormStore(t))
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreCopiesDocuments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	doc := []byte(`["p1"]`)
	require.NoError(t, store.Put(ctx, NamespaceRecent, "profile-1", doc))
	doc[2] = 'X'

	got, err := store.Get(ctx, NamespaceRecent, "profile-1")
	require.NoError(t, err)
	require.Equal(t, `["p1"]`, string(got))
}

func TestNewGormStoreRequiresDB(t *testing.T) {
	if _, err := NewGormStore(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}
