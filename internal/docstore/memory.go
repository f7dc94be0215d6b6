package docstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store. Documents are stored as JSON-decoded
// copies so callers observe the same value types a remote backend returns.
type MemoryStore struct {
	docs map[string]map[string]Document
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]Document),
	}
}

func (s *MemoryStore) Get(_ context.Context, collection, key string) (Document, error) {
	if err := validateKey(collection, key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collection][key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	return doc.Clone()
}

func (s *MemoryStore) Set(_ context.Context, collection, key string, doc Document) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	stored, err := decode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(collection, key, stored)
	return nil
}

func (s *MemoryStore) Create(_ context.Context, collection, key string, doc Document) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	stored, err := decode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[collection][key]; ok {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrAlreadyExists)
	}
	s.put(collection, key, stored)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, collection, key string, fields Document) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[collection][key]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	stored, err := decode(merge(existing, fields))
	if err != nil {
		return err
	}
	s.put(collection, key, stored)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of documents in a collection.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection])
}

func (s *MemoryStore) put(collection, key string, doc Document) {
	c, ok := s.docs[collection]
	if !ok {
		c = make(map[string]Document)
		s.docs[collection] = c
	}
	c[key] = doc
}
