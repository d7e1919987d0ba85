package orders

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/commercezen/engine/pkg/kvstore"
	"github.com/commercezen/engine/pkg/logger"
)

// Repo persists per-identity order history documents. Each identity owns one
// JSON document holding its full history, newest first.
type Repo struct {
	store kvstore.Store
	logg  *logger.Logger
}

// NewRepo builds an order history repo over the document store.
func NewRepo(store kvstore.Store, logg *logger.Logger) (*Repo, error) {
	if store == nil {
		return nil, fmt.Errorf("document store required")
	}
	return &Repo{store: store, logg: logg}, nil
}

// Load returns the identity's history. Missing and corrupt documents both
// yield an empty history so a bad record never blocks the session; corrupt
// documents are dropped after logging.
func (r *Repo) Load(ctx context.Context, identityID string) ([]Order, error) {
	doc, err := r.store.Get(ctx, kvstore.NamespaceOrders, identityID)
	if err != nil {
		if stderrors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load orders: %w", err)
	}

	var list []Order
	if err := json.Unmarshal(doc, &list); err != nil {
		if r.logg != nil {
			r.logg.Warn(r.logg.WithIdentity(ctx, identityID), "discarding corrupt order history document")
		}
		if delErr := r.store.Delete(ctx, kvstore.NamespaceOrders, identityID); delErr != nil && r.logg != nil {
			r.logg.Error(ctx, "failed to drop corrupt order history", delErr)
		}
		return nil, nil
	}
	SortNewestFirst(list)
	return list, nil
}

// Save replaces the identity's history with the given orders, newest first.
func (r *Repo) Save(ctx context.Context, identityID string, list []Order) error {
	sorted := make([]Order, len(list))
	copy(sorted, list)
	SortNewestFirst(sorted)

	doc, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}
	if err := r.store.Put(ctx, kvstore.NamespaceOrders, identityID, doc); err != nil {
		return fmt.Errorf("save orders: %w", err)
	}
	return nil
}

// Merge folds the in-memory working set into whatever is persisted now,
// without clobbering records another session wrote concurrently. Persisted
// records are replaced only when their id is in the dirty set; in-memory
// orders the persisted document has never seen are appended. Conflicting
// writes to the same record resolve last writer wins.
func (r *Repo) Merge(ctx context.Context, identityID string, working []Order, dirty map[string]bool) error {
	persisted, err := r.Load(ctx, identityID)
	if err != nil {
		return err
	}

	byID := make(map[string]Order, len(working))
	for _, order := range working {
		byID[order.ID] = order
	}

	merged := make([]Order, 0, len(persisted)+len(working))
	seen := make(map[string]bool, len(persisted))
	for _, order := range persisted {
		seen[order.ID] = true
		if dirty[order.ID] {
			if updated, ok := byID[order.ID]; ok {
				merged = append(merged, updated)
				continue
			}
		}
		merged = append(merged, order)
	}
	for _, order := range working {
		if !seen[order.ID] {
			merged = append(merged, order)
		}
	}

	return r.Save(ctx, identityID, merged)
}
