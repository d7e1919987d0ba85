package kvstore

import (
	"context"
	"errors"
)

// Well-known namespaces for the persisted per-identity documents.
const (
	NamespaceCart     = "cart"
	NamespaceWishlist = "wishlist"
	NamespaceOrders   = "orders"
	NamespaceRecent   = "recently-viewed"
	NamespaceUsers    = "users"
)

// ErrNotFound is returned when no document exists for a (namespace, identity)
// pair.
var ErrNotFound = errors.New("kvstore: document not found")

// Store is the persistence port: a scoped key to JSON-document mapping.
// Writes replace the whole document; merge semantics live with the callers
// that need them (the order collection).
type Store interface {
	// Get returns the raw document for the scope, or ErrNotFound.
	Get(ctx context.Context, namespace, identity string) ([]byte, error)
	// Put upserts the document for the scope.
	Put(ctx context.Context, namespace, identity string, doc []byte) error
	// Delete removes the document for the scope. Deleting a missing
	// document is not an error.
	Delete(ctx context.Context, namespace, identity string) error
}
