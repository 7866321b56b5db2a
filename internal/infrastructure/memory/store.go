package memory

import (
	"context"
	"sync"

	"doccrm/backend/internal/infrastructure/docstore"
)

// Store keeps documents in a process-local map. It backs STORE_DRIVER=memory
// and the test suites; nothing survives a restart.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[string][]byte)}
}

var _ docstore.Store = (*Store)(nil)

func path(collection, key string) string {
	return collection + "/" + key
}

// Get returns a copy of the stored document.
func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[path(collection, key)]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return clone(doc), nil
}

// Set inserts or replaces a document.
func (s *Store) Set(ctx context.Context, collection, key string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path(collection, key)] = clone(doc)
	return nil
}

// Create inserts a document unless the key is already present.
func (s *Store) Create(ctx context.Context, collection, key string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := path(collection, key)
	if _, ok := s.docs[p]; ok {
		return docstore.ErrAlreadyExists
	}
	s.docs[p] = clone(doc)
	return nil
}

// Exists reports whether a document is stored under the key.
func (s *Store) Exists(ctx context.Context, collection, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[path(collection, key)]
	return ok, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
