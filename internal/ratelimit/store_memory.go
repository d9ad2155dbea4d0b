package ratelimit

import (
	"context"
	"sync"
	"time"

	"sgr/pkg/requestcontext"
)

// MemoryStore keeps sliding windows in process. It is exact for a single
// instance and serves as the fallback when the shared store is down.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time)}
}

func (s *MemoryStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	hits := prune(s.windows[key], now.Add(-window))
	res := Result{Limit: limit}
	if len(hits) < limit {
		hits = append(hits, now)
		res.Allowed = true
	}
	res.Remaining = limit - len(hits)
	res.ResetAt = hits[0].Add(window)
	s.windows[key] = hits
	return res, nil
}

// Sweep drops keys whose windows have fully elapsed.
func (s *MemoryStore) Sweep(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, hits := range s.windows {
		if len(prune(hits, now.Add(-window))) == 0 {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// prune drops hits at or before cutoff. hits is sorted ascending.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, window, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Sweep(now, window)
		}
	}
}
