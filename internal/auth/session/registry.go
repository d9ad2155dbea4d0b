package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sgr/internal/auth/store"
	"sgr/internal/auth/token"
	"sgr/pkg/requestcontext"
)

// ChangeHook observes every snapshot published by any Context the Registry owns.
type ChangeHook func(sessionID string, snap Snapshot)

// Registry owns one Context per browser session. It is constructed once at
// startup and injected wherever session state is needed.
type Registry struct {
	provider store.Provider
	decoder  *token.Decoder
	logger   *slog.Logger

	mu       sync.Mutex
	contexts map[string]*held
	hooks    []ChangeHook
}

type held struct {
	ctx     *Context
	touched time.Time
}

func NewRegistry(provider store.Provider, decoder *token.Decoder, logger *slog.Logger) *Registry {
	if decoder == nil {
		decoder = token.NewDecoder()
	}
	return &Registry{
		provider: provider,
		decoder:  decoder,
		logger:   logger,
		contexts: make(map[string]*held),
	}
}

// OnChange attaches hook to every Context created afterwards.
func (r *Registry) OnChange(hook ChangeHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// State returns a fresh State over the session's store. An empty sessionID
// yields a State over an empty namespace, which is never authenticated.
func (r *Registry) State(sessionID string) *State {
	return NewState(r.provider.ForSession(sessionID), r.decoder, r.logger)
}

// Lookup returns the session's Context if one was created.
func (r *Registry) Lookup(sessionID string) (*Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.contexts[sessionID]
	if !ok {
		return nil, false
	}
	return h.ctx, true
}

// Get returns the session's Context, initializing it from the store on first
// use. Every call marks the Context as used at requestcontext.Now.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Context, error) {
	now := requestcontext.Now(ctx)
	if c, ok := r.touch(sessionID, now); ok {
		return c, nil
	}

	created, err := NewContext(ctx, r.provider.ForSession(sessionID), r.decoder)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.contexts[sessionID]; ok {
		existing.touched = now
		return existing.ctx, nil
	}
	for _, hook := range r.hooks {
		created.Subscribe(func(snap Snapshot) { hook(sessionID, snap) })
	}
	r.contexts[sessionID] = &held{ctx: created, touched: now}
	return created, nil
}

func (r *Registry) touch(sessionID string, now time.Time) (*Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.contexts[sessionID]
	if !ok {
		return nil, false
	}
	if now.After(h.touched) {
		h.touched = now
	}
	return h.ctx, true
}

// Sweep drops contexts not used through Get for longer than idle and reports
// how many were dropped. Persisted entries are untouched.
func (r *Registry) Sweep(now time.Time, idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	dropped := 0
	for sid, h := range r.contexts {
		if now.Sub(h.touched) > idle {
			delete(r.contexts, sid)
			dropped++
		}
	}
	return dropped
}

// Forget drops the session's Context. Its persisted entries are untouched.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, sessionID)
}

// Len reports how many contexts are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contexts)
}
