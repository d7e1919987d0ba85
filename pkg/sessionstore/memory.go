package sessionstore

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	doc       []byte
	expiresAt time.Time
}

// MemoryStore keeps session documents in process memory. It backs tests and
// single-process deployments where redis is not configured; everything in it
// is lost when the process exits, which matches the session-scoped contract.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, namespace, key string, doc []byte, ttl time.Duration) error {
	stored := make([]byte, len(doc))
	copy(stored, doc)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[memoryKey(namespace, key)] = entry{doc: stored, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memoryKey(namespace, key)
	ent, ok := s.entries[k]
	if !ok {
		return nil, ErrNotFound
	}
	if !ent.expiresAt.IsZero() && !s.now().Before(ent.expiresAt) {
		delete(s.entries, k)
		return nil, ErrNotFound
	}
	out := make([]byte, len(ent.doc))
	copy(out, ent.doc)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, memoryKey(namespace, key))
	return nil
}

func memoryKey(namespace, key string) string {
	return namespace + "\x00" + key
}
