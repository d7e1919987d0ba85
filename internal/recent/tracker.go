package recent

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/commercezen/engine/internal/catalog"
	"github.com/commercezen/engine/pkg/errors"
	"github.com/commercezen/engine/pkg/kvstore"
	"github.com/commercezen/engine/pkg/logger"
)

// DefaultCapacity bounds the history when the caller does not configure one.
const DefaultCapacity = 5

// TrackerParams groups dependencies for the recently viewed tracker.
type TrackerParams struct {
	ProfileID string
	Capacity  int
	Store     kvstore.Store
	Catalog   catalog.Lookup
	Logger    *logger.Logger
}

// Tracker keeps a bounded most-recently-viewed product history for one
// browser profile. The newest view is always first and revisiting a product
// moves it back to the front instead of duplicating it.
type Tracker struct {
	profileID string
	capacity  int
	store     kvstore.Store
	catalog   catalog.Lookup
	logg      *logger.Logger

	mu         sync.Mutex
	productIDs []string
	loaded     bool
}

// NewTracker builds a tracker scoped to the profile.
func NewTracker(params TrackerParams) (*Tracker, error) {
	if params.ProfileID == "" {
		return nil, fmt.Errorf("profile id required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("document store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	capacity := params.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		profileID: params.ProfileID,
		capacity:  capacity,
		store:     params.Store,
		catalog:   params.Catalog,
		logg:      params.Logger,
	}, nil
}

// Record notes a product view, promoting repeats to the front and evicting
// the oldest entry once the history is full.
func (t *Tracker) Record(ctx context.Context, productID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLoaded(ctx)

	next := make([]string, 0, t.capacity)
	next = append(next, productID)
	for _, id := range t.productIDs {
		if id == productID {
			continue
		}
		if len(next) == t.capacity {
			break
		}
		next = append(next, id)
	}
	t.productIDs = next
	t.persistLocked(ctx)
}

// ProductIDs returns the history newest first.
func (t *Tracker) ProductIDs(ctx context.Context) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLoaded(ctx)
	snapshot := make([]string, len(t.productIDs))
	copy(snapshot, t.productIDs)
	return snapshot
}

// Items resolves the history against the catalog, dropping products that no
// longer exist.
func (t *Tracker) Items(ctx context.Context) ([]catalog.Product, error) {
	products := make([]catalog.Product, 0, t.capacity)
	for _, id := range t.ProductIDs(ctx) {
		product, err := t.catalog.FindByID(ctx, id)
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

func (t *Tracker) ensureLoaded(ctx context.Context) {
	if t.loaded {
		return
	}
	t.loaded = true

	doc, err := t.store.Get(ctx, kvstore.NamespaceRecent, t.profileID)
	if err != nil {
		if !stderrors.Is(err, kvstore.ErrNotFound) && t.logg != nil {
			t.logg.Error(ctx, "recently viewed load failed, starting empty", err)
		}
		return
	}

	var ids []string
	if err := json.Unmarshal(doc, &ids); err != nil {
		if t.logg != nil {
			t.logg.Warn(t.logg.WithIdentity(ctx, t.profileID), "discarding corrupt recently viewed document")
		}
		if delErr := t.store.Delete(ctx, kvstore.NamespaceRecent, t.profileID); delErr != nil && t.logg != nil {
			t.logg.Error(ctx, "failed to drop corrupt recently viewed document", delErr)
		}
		return
	}
	if len(ids) > t.capacity {
		ids = ids[:t.capacity]
	}
	t.productIDs = ids
}

func (t *Tracker) persistLocked(ctx context.Context) {
	doc, err := json.Marshal(t.productIDs)
	if err != nil {
		if t.logg != nil {
			t.logg.Error(ctx, "failed to encode recently viewed history", err)
		}
		return
	}
	if err := t.store.Put(ctx, kvstore.NamespaceRecent, t.profileID, doc); err != nil && t.logg != nil {
		t.logg.Error(t.logg.WithIdentity(ctx, t.profileID), "failed to persist recently viewed history", err)
	}
}
