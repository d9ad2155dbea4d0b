package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryProvider keeps every browser session in one map. Suitable for a
// single instance and for tests; sessions do not survive a restart.
type InMemoryProvider struct {
	ttl   time.Duration
	clock Clock

	mu       sync.RWMutex
	sessions map[string]map[Key]memoryEntry
}

type memoryEntry struct {
	value     []byte
	updatedAt time.Time
}

// MemoryOption configures an InMemoryProvider.
type MemoryOption func(*InMemoryProvider)

// WithMemoryTTL hides entries not written for longer than ttl. Zero keeps
// them until deleted or purged.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(p *InMemoryProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithMemoryClock sets the clock used to stamp and expire entries.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(p *InMemoryProvider) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func NewInMemoryProvider(opts ...MemoryOption) *InMemoryProvider {
	p := &InMemoryProvider{
		clock:    time.Now,
		sessions: make(map[string]map[Key]memoryEntry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *InMemoryProvider) ForSession(sessionID string) Store {
	return &inMemoryStore{provider: p, sessionID: sessionID}
}

// PurgeStale deletes entries not written for longer than ttl and drops
// sessions left empty. It reports how many entries were removed.
func (p *InMemoryProvider) PurgeStale(_ context.Context, ttl time.Duration) (int64, error) {
	cutoff := p.clock().Add(-ttl)

	p.mu.Lock()
	defer p.mu.Unlock()
	var removed int64
	for sid, entries := range p.sessions {
		for k, e := range entries {
			if e.updatedAt.Before(cutoff) {
				delete(entries, k)
				removed++
			}
		}
		if len(entries) == 0 {
			delete(p.sessions, sid)
		}
	}
	return removed, nil
}

// Sessions reports how many sessions hold at least one entry.
func (p *InMemoryProvider) Sessions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

func (p *InMemoryProvider) expired(e memoryEntry) bool {
	return p.ttl > 0 && p.clock().Sub(e.updatedAt) > p.ttl
}

type inMemoryStore struct {
	provider  *InMemoryProvider
	sessionID string
}

func (s *inMemoryStore) Persist(_ context.Context, key Key, value []byte) error {
	p := s.provider
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, ok := p.sessions[s.sessionID]
	if !ok {
		entries = make(map[Key]memoryEntry)
		p.sessions[s.sessionID] = entries
	}
	entries[key] = memoryEntry{value: append([]byte(nil), value...), updatedAt: p.clock()}
	return nil
}

func (s *inMemoryStore) Read(_ context.Context, key Key) ([]byte, error) {
	p := s.provider
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.sessions[s.sessionID][key]
	if !ok || p.expired(e) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *inMemoryStore) Delete(_ context.Context, keys ...Key) error {
	p := s.provider
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, ok := p.sessions[s.sessionID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(entries, k)
	}
	if len(entries) == 0 {
		delete(p.sessions, s.sessionID)
	}
	return nil
}
