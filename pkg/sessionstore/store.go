package sessionstore

import (
	"context"
	"errors"
	"time"
)

// NamespacePendingOrder scopes the transient checkout snapshot. It is kept
// separate from the durable order collection on purpose: a pending order is
// not a committed order.
const NamespacePendingOrder = "pending-order"

// ErrNotFound is returned when no value exists for a key, or the value has
// expired.
var ErrNotFound = errors.New("sessionstore: value not found")

// Store holds short-lived, session-scoped documents. Values disappear when
// their TTL lapses or the backing session ends; nothing here is durable.
type Store interface {
	Put(ctx context.Context, namespace, key string, doc []byte, ttl time.Duration) error
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Delete(ctx context.Context, namespace, key string) error
}
