package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Store fronts an ordered list of Tiers (memory, then disk, then
// optionally S3) with a singleflight-protected compute path, so
// concurrent requests for the same cache key produce exactly one
// transformation instead of N redundant ones (spec.md §4.6).
type Store struct {
	tiers []Tier
	sf    singleflight.Group
}

// NewStore builds a Store over tiers, consulted in the given order on
// Get and written to in the same order on a miss that gets computed.
func NewStore(tiers ...Tier) *Store {
	return &Store{tiers: tiers}
}

// Get walks the tiers in order, returning the first hit. A hit found in
// a lower tier is back-filled into every faster tier above it, so a disk
// hit gets promoted into memory.
func (s *Store) Get(ctx context.Context, key string) (*Entry, bool) {
	for i, tier := range s.tiers {
		entry, err := tier.Get(ctx, key)
		if err != nil {
			continue
		}
		for _, faster := range s.tiers[:i] {
			faster.Put(ctx, key, *entry)
		}
		return entry, true
	}
	return nil, false
}

// Compute is the function that produces a cache entry on a miss.
type Compute func(ctx context.Context) (Entry, error)

// GetOrCompute returns the cached entry for key, computing and storing
// it via compute on a miss. Concurrent callers for the same key share a
// single in-flight compute call.
func (s *Store) GetOrCompute(ctx context.Context, key string, compute Compute) (Entry, error) {
	if entry, ok := s.Get(ctx, key); ok {
		return *entry, nil
	}

	result, err, _ := s.sf.Do(key, func() (any, error) {
		if entry, ok := s.Get(ctx, key); ok {
			return *entry, nil
		}
		entry, err := compute(ctx)
		if err != nil {
			return Entry{}, err
		}
		s.putAll(ctx, key, entry)
		return entry, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return result.(Entry), nil
}

// Put stores entry under key in every tier directly, bypassing Compute.
// Used by callers that have already produced the entry themselves —
// e.g. the Request Lifecycle Controller, after single-flighting the
// fetch and transform that produced it.
func (s *Store) Put(ctx context.Context, key string, entry Entry) {
	s.putAll(ctx, key, entry)
}

// Invalidate removes key from every tier.
func (s *Store) Invalidate(ctx context.Context, key string) {
	for _, tier := range s.tiers {
		tier.Delete(ctx, key)
	}
}

func (s *Store) putAll(ctx context.Context, key string, entry Entry) {
	for _, tier := range s.tiers {
		tier.Put(ctx, key, entry)
	}
}
