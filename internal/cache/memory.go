package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryTier is a bounded in-memory LRU cache of transformation
// results — the hot tier consulted before falling through to disk or S3.
type MemoryTier struct {
	lru *lru.Cache[string, Entry]
}

// NewMemoryTier builds a MemoryTier holding up to size entries.
func NewMemoryTier(size int) (*MemoryTier, error) {
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}
	return &MemoryTier{lru: c}, nil
}

func (m *MemoryTier) Get(_ context.Context, key string) (*Entry, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryTier) Put(_ context.Context, key string, entry Entry) error {
	m.lru.Add(key, entry)
	return nil
}

func (m *MemoryTier) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}
