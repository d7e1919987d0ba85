package kvstore

import (
	"context"
	"sync"
)

// MemoryStore is the in-process fake used in tests and as a scratch store.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func memoryKey(namespace, identity string) string {
	return namespace + "\x00" + identity
}

func (s *MemoryStore) Get(_ context.Context, namespace, identity string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[memoryKey(namespace, identity)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, namespace, identity string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(doc))
	copy(stored, doc)
	s.docs[memoryKey(namespace, identity)] = stored
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, namespace, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, memoryKey(namespace, identity))
	return nil
}
