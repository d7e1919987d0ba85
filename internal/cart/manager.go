package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/commercezen/engine/internal/catalog"
	"github.com/commercezen/engine/pkg/kvstore"
	"github.com/commercezen/engine/pkg/logger"
	"github.com/shopspring/decimal"
)

// Item is one cart line: a product snapshot plus its quantity. Quantity is
// always >= 1; a mutation that would drive it to zero removes the line.
type Item struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Subtotal returns price multiplied by quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subscriber receives the cart snapshot after every committed mutation.
type Subscriber func(items []Item)

// ManagerParams groups dependencies for the cart manager.
type ManagerParams struct {
	ProfileID string
	Store     kvstore.Store
	Logger    *logger.Logger
}

// Manager owns the ordered cart working set for one browser profile. All
// mutations apply in memory first and then persist the full snapshot;
// persistence failures are logged and absorbed so the session keeps working.
type Manager struct {
	mu        sync.Mutex
	profileID string
	store     kvstore.Store
	logg      *logger.Logger

	items  []Item
	loaded bool

	subscribers map[int]Subscriber
	nextSub     int
}

// NewManager builds a cart manager scoped to the profile.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.ProfileID == "" {
		return nil, fmt.Errorf("profile id required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("document store required")
	}
	return &Manager{
		profileID:   params.ProfileID,
		store:       params.Store,
		logg:        params.Logger,
		subscribers: make(map[int]Subscriber),
	}, nil
}

// AddItem appends the product or bumps its quantity when already present.
func (m *Manager) AddItem(ctx context.Context, product catalog.Product, qty int) {
	if qty < 1 {
		qty = 1
	}

	m.mu.Lock()
	m.ensureLoaded(ctx)
	found := false
	for i := range m.items {
		if m.items[i].ID == product.ID {
			m.items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		m.items = append(m.items, Item{Product: product, Quantity: qty})
	}
	m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snapshot)
}

// RemoveItem deletes the line item; removing an absent product is a no-op.
func (m *Manager) RemoveItem(ctx context.Context, productID string) {
	m.mu.Lock()
	m.ensureLoaded(ctx)
	changed := false
	for i := range m.items {
		if m.items[i].ID == productID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			changed = true
			break
		}
	}
	if changed {
		m.persistLocked(ctx)
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if changed {
		m.notify(snapshot)
	}
}

// SetQuantity replaces the quantity; qty <= 0 removes the line entirely.
func (m *Manager) SetQuantity(ctx context.Context, productID string, qty int) {
	if qty <= 0 {
		m.RemoveItem(ctx, productID)
		return
	}

	m.mu.Lock()
	m.ensureLoaded(ctx)
	changed := false
	for i := range m.items {
		if m.items[i].ID == productID {
			if m.items[i].Quantity != qty {
				m.items[i].Quantity = qty
				changed = true
			}
			break
		}
	}
	if changed {
		m.persistLocked(ctx)
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if changed {
		m.notify(snapshot)
	}
}

// Clear empties the cart. Called by the shopper and by a successful payment.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.ensureLoaded(ctx)
	m.items = nil
	m.persistLocked(ctx)
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snapshot)
}

// Items returns a copy of the cart lines in insertion order.
func (m *Manager) Items(ctx context.Context) []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)
	return m.snapshotLocked()
}

// Total sums price times quantity over every line.
func (m *Manager) Total(ctx context.Context) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)
	total := decimal.Zero
	for _, item := range m.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount sums the quantities over every line.
func (m *Manager) ItemCount(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded(ctx)
	count := 0
	for _, item := range m.items {
		count += item.Quantity
	}
	return count
}

// Subscribe registers a snapshot listener and returns its unsubscribe
// function.
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

// ensureLoaded lazily pulls the persisted snapshot. A corrupt document is
// dropped and the cart starts empty; the session never fails over storage.
func (m *Manager) ensureLoaded(ctx context.Context) {
	if m.loaded {
		return
	}
	m.loaded = true

	doc, err := m.store.Get(ctx, kvstore.NamespaceCart, m.profileID)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) && m.logg != nil {
			m.logg.Error(ctx, "cart load failed, starting empty", err)
		}
		return
	}

	var items []Item
	if err := json.Unmarshal(doc, &items); err != nil {
		if m.logg != nil {
			m.logg.Warn(m.logg.WithIdentity(ctx, m.profileID), "discarding corrupt cart document")
		}
		if delErr := m.store.Delete(ctx, kvstore.NamespaceCart, m.profileID); delErr != nil && m.logg != nil {
			m.logg.Error(ctx, "failed to drop corrupt cart document", delErr)
		}
		return
	}
	m.items = items
}

func (m *Manager) persistLocked(ctx context.Context) {
	doc, err := json.Marshal(m.items)
	if err != nil {
		if m.logg != nil {
			m.logg.Error(ctx, "failed to encode cart snapshot", err)
		}
		return
	}
	if err := m.store.Put(ctx, kvstore.NamespaceCart, m.profileID, doc); err != nil && m.logg != nil {
		m.logg.Error(m.logg.WithIdentity(ctx, m.profileID), "failed to persist cart snapshot", err)
	}
}

func (m *Manager) snapshotLocked() []Item {
	snapshot := make([]Item, len(m.items))
	copy(snapshot, m.items)
	return snapshot
}

func (m *Manager) notify(snapshot []Item) {
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
