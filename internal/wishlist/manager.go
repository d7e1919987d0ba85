package wishlist

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/commercezen/engine/internal/catalog"
	"github.com/commercezen/engine/internal/identity"
	"github.com/commercezen/engine/pkg/errors"
	"github.com/commercezen/engine/pkg/kvstore"
	"github.com/commercezen/engine/pkg/logger"
)

// Subscriber receives the wishlist product ids after every committed change.
type Subscriber func(productIDs []string)

// ManagerParams groups dependencies for the wishlist manager.
type ManagerParams struct {
	Provider *identity.Provider
	Store    kvstore.Store
	Catalog  catalog.Lookup
	Logger   *logger.Logger
}

// Manager owns the wishlist for the active identity. The list is scoped per
// account: logging in loads that account's list, logging out drops the
// working set entirely, and anonymous shoppers cannot toggle membership.
type Manager struct {
	provider *identity.Provider
	store    kvstore.Store
	catalog  catalog.Lookup
	logg     *logger.Logger

	mu         sync.Mutex
	scope      string
	productIDs []string

	subscribers map[int]Subscriber
	nextSub     int
}

// NewManager builds the manager and binds it to identity changes. The
// returned stop function detaches the identity listener.
func NewManager(params ManagerParams) (*Manager, func(), error) {
	if params.Provider == nil {
		return nil, nil, fmt.Errorf("identity provider required")
	}
	if params.Store == nil {
		return nil, nil, fmt.Errorf("document store required")
	}
	if params.Catalog == nil {
		return nil, nil, fmt.Errorf("catalog lookup required")
	}

	m := &Manager{
		provider:    params.Provider,
		store:       params.Store,
		catalog:     params.Catalog,
		logg:        params.Logger,
		subscribers: make(map[int]Subscriber),
	}
	m.swapScope(context.Background(), currentScope(params.Provider))
	stop := params.Provider.Subscribe(func(current *identity.Identity) {
		scope := ""
		if current != nil {
			scope = current.ID
		}
		m.swapScope(context.Background(), scope)
	})
	return m, stop, nil
}

// Toggle flips membership for the product and reports whether it is now on
// the list. Anonymous shoppers get a login-required error and no state
// change.
func (m *Manager) Toggle(ctx context.Context, productID string) (bool, error) {
	m.mu.Lock()
	if m.scope == "" {
		m.mu.Unlock()
		return false, errors.New(errors.CodeLoginRequired, "log in to manage your wishlist")
	}

	member := false
	for i, id := range m.productIDs {
		if id == productID {
			m.productIDs = append(m.productIDs[:i], m.productIDs[i+1:]...)
			member = true
			break
		}
	}
	if !member {
		m.productIDs = append(m.productIDs, productID)
	}
	m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snapshot)
	return !member, nil
}

// IsMember reports whether the product is on the active identity's list.
func (m *Manager) IsMember(productID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.productIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Count returns the number of wishlisted products.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.productIDs)
}

// ProductIDs returns a copy of the wishlisted ids in insertion order.
func (m *Manager) ProductIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Items resolves the wishlist against the catalog. Products that no longer
// exist are silently dropped from the result but stay on the list.
func (m *Manager) Items(ctx context.Context) ([]catalog.Product, error) {
	ids := m.ProductIDs()
	products := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		product, err := m.catalog.FindByID(ctx, id)
		if err != nil {
			if errors.IsCode(err, errors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		products = append(products, *product)
	}
	return products, nil
}

// Subscribe registers a listener and returns its unsubscribe function.
func (m *Manager) Subscribe(subscriber Subscriber) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = subscriber
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// swapScope installs the working set for the new identity. The previous
// identity's list was already persisted on every mutation, so a swap only
// loads; it never merges the two lists.
func (m *Manager) swapScope(ctx context.Context, scope string) {
	m.mu.Lock()
	m.scope = scope
	m.productIDs = m.loadScope(ctx, scope)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snapshot)
}

// loadScope pulls the persisted list for the identity. A corrupt document is
// dropped and the list starts empty.
func (m *Manager) loadScope(ctx context.Context, scope string) []string {
	if scope == "" {
		return nil
	}

	doc, err := m.store.Get(ctx, kvstore.NamespaceWishlist, scope)
	if err != nil {
		if !stderrors.Is(err, kvstore.ErrNotFound) && m.logg != nil {
			m.logg.Error(ctx, "wishlist load failed, starting empty", err)
		}
		return nil
	}

	var ids []string
	if err := json.Unmarshal(doc, &ids); err != nil {
		if m.logg != nil {
			m.logg.Warn(m.logg.WithIdentity(ctx, scope), "discarding corrupt wishlist document")
		}
		if delErr := m.store.Delete(ctx, kvstore.NamespaceWishlist, scope); delErr != nil && m.logg != nil {
			m.logg.Error(ctx, "failed to drop corrupt wishlist document", delErr)
		}
		return nil
	}
	return ids
}

func (m *Manager) persistLocked(ctx context.Context) {
	doc, err := json.Marshal(m.productIDs)
	if err != nil {
		if m.logg != nil {
			m.logg.Error(ctx, "failed to encode wishlist", err)
		}
		return
	}
	if err := m.store.Put(ctx, kvstore.NamespaceWishlist, m.scope, doc); err != nil && m.logg != nil {
		m.logg.Error(m.logg.WithIdentity(ctx, m.scope), "failed to persist wishlist", err)
	}
}

func (m *Manager) snapshotLocked() []string {
	snapshot := make([]string, len(m.productIDs))
	copy(snapshot, m.productIDs)
	return snapshot
}

func (m *Manager) notify(snapshot []string) {
	m.mu.Lock()
	subscribers := make([]Subscriber, 0, len(m.subscribers))
	for _, subscriber := range m.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	m.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(snapshot)
	}
}

func currentScope(provider *identity.Provider) string {
	if current, ok := provider.Current(); ok {
		return current.ID
	}
	return ""
}
