package store

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"cf-hints/api/internal/hints"
	"cf-hints/api/internal/metrics"
)

// CachedStore is a read-through LRU in front of another HintStore.
// Concurrent misses for the same id share one backend read.
type CachedStore struct {
	next  HintStore
	cache *lru.Cache[string, hints.HintSet]
	group singleflight.Group
	m     *metrics.Metrics
}

func NewCachedStore(next HintStore, size int, m *metrics.Metrics) (*CachedStore, error) {
	c, err := lru.New[string, hints.HintSet](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{next: next, cache: c, m: m}, nil
}

func (s *CachedStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	if s.cache.Contains(id) {
		s.m.RecordCacheHit()
		return true, nil
	}
	s.m.RecordCacheMiss()
	return s.next.Exists(ctx, id)
}

func (s *CachedStore) Read(ctx context.Context, id string) (hints.HintSet, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if hs, ok := s.cache.Get(id); ok {
		s.m.RecordCacheHit()
		return slices.Clone(hs), nil
	}
	s.m.RecordCacheMiss()

	// the shared read outlives any one caller; each caller still honours its own ctx
	ch := s.group.DoChan(id, func() (interface{}, error) {
		hs, err := s.next.Read(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		s.cache.Add(id, hs)
		return hs, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return slices.Clone(r.Val.(hints.HintSet)), nil
	}
}

// Write goes to the backend first; the cache is only refreshed on success.
func (s *CachedStore) Write(ctx context.Context, id string, hs hints.HintSet) error {
	if err := s.next.Write(ctx, id, hs); err != nil {
		s.cache.Remove(id)
		return err
	}
	if hs == nil {
		hs = hints.HintSet{}
	}
	s.cache.Add(id, slices.Clone(hs))
	return nil
}

func (s *CachedStore) Len() int { return s.cache.Len() }
