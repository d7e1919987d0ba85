package wishlist

import (
	"context"
	"testing"

	"github.com/commercezen/engine/internal/catalog"
	"github.com/commercezen/engine/internal/identity"
	"github.com/commercezen/engine/pkg/errors"
	"github.com/commercezen/engine/pkg/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupStub struct {
	findByID func(ctx context.Context, id string) (*catalog.Product, error)
}

func (s *lookupStub) FindByID(ctx context.Context, id string) (*catalog.Product, error) {
	return s.findByID(ctx, id)
}

func knownProducts(ids ...string) *lookupStub {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return &lookupStub{
		findByID: func(_ context.Context, id string) (*catalog.Product, error) {
			if !known[id] {
				return nil, errors.New(errors.CodeNotFound, "product not found")
			}
			return &catalog.Product{ID: id, Name: "Product " + id}, nil
		},
	}
}

func newTestManager(t *testing.T, provider *identity.Provider, store kvstore.Store, lookup catalog.Lookup) *Manager {
	t.Helper()
	if lookup == nil {
		lookup = knownProducts("p1", "p2", "p3")
	}
	manager, stop, err := NewManager(ManagerParams{
		Provider: provider,
		Store:    store,
		Catalog:  lookup,
	})
	require.NoError(t, err)
	t.Cleanup(stop)
	return manager
}

func TestManager_Toggle(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a logged in identity", func(t *testing.T) {
		provider := identity.NewProvider()
		manager := newTestManager(t, provider, kvstore.NewMemoryStore(), nil)

		_, err := manager.Toggle(ctx, "p1")
		assert.True(t, errors.IsCode(err, errors.CodeLoginRequired))
		assert.Zero(t, manager.Count())
	})

	t.Run("adds then removes", func(t *testing.T) {
		provider := identity.NewProvider()
		provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
		manager := newTestManager(t, provider, kvstore.NewMemoryStore(), nil)

		added, err := manager.Toggle(ctx, "p1")
		require.NoError(t, err)
		assert.True(t, added)
		assert.True(t, manager.IsMember("p1"))

		added, err = manager.Toggle(ctx, "p1")
		require.NoError(t, err)
		assert.False(t, added)
		assert.False(t, manager.IsMember("p1"))
	})
}

func TestManager_IdentitySwap(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	provider := identity.NewProvider()
	manager := newTestManager(t, provider, store, nil)

	alice := &identity.Identity{ID: "alice@example.com", Name: "Alice"}
	bob := &identity.Identity{ID: "bob@example.com", Name: "Bob"}

	provider.Set(alice)
	_, err := manager.Toggle(ctx, "p1")
	require.NoError(t, err)
	_, err = manager.Toggle(ctx, "p2")
	require.NoError(t, err)

	t.Run("logout drops the working set", func(t *testing.T) {
		provider.Set(nil)
		assert.Zero(t, manager.Count())
		assert.False(t, manager.IsMember("p1"))
	})

	t.Run("login restores the identity's list", func(t *testing.T) {
		provider.Set(alice)
		assert.Equal(t, []string{"p1", "p2"}, manager.ProductIDs())
	})

	t.Run("switching accounts never merges", func(t *testing.T) {
		provider.Set(bob)
		assert.Zero(t, manager.Count())

		_, err := manager.Toggle(ctx, "p3")
		require.NoError(t, err)

		provider.Set(alice)
		assert.Equal(t, []string{"p1", "p2"}, manager.ProductIDs())
	})
}

func TestManager_Items(t *testing.T) {
	ctx := context.Background()
	provider := identity.NewProvider()
	provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
	manager := newTestManager(t, provider, kvstore.NewMemoryStore(), knownProducts("p1"))

	_, err := manager.Toggle(ctx, "p1")
	require.NoError(t, err)
	_, err = manager.Toggle(ctx, "gone")
	require.NoError(t, err)

	items, err := manager.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)

	// The vanished id stays on the list even though it cannot resolve.
	assert.Equal(t, 2, manager.Count())
}

func TestManager_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, kvstore.NamespaceWishlist, "alice@example.com", []byte("[broken")))

	provider := identity.NewProvider()
	provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
	manager := newTestManager(t, provider, store, nil)

	assert.Zero(t, manager.Count())
	_, err := store.Get(ctx, kvstore.NamespaceWishlist, "alice@example.com")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestManager_Subscribe(t *testing.T) {
	ctx := context.Background()
	provider := identity.NewProvider()
	provider.Set(&identity.Identity{ID: "alice@example.com", Name: "Alice"})
	manager := newTestManager(t, provider, kvstore.NewMemoryStore(), nil)

	var last []string
	calls := 0
	unsubscribe := manager.Subscribe(func(ids []string) {
		last = ids
		calls++
	})

	_, err := manager.Toggle(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, last)
	require.Equal(t, 1, calls)

	unsubscribe()
	_, err = manager.Toggle(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
