package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"sgr/internal/auth/models"
	"sgr/internal/auth/store"
	"sgr/internal/auth/token"
	"sgr/pkg/platform/sentinel"
	"sgr/pkg/requestcontext"
)

// ErrInvalidToken rejects a login whose access token does not decode or is
// already expired.
var ErrInvalidToken = fmt.Errorf("login token rejected: %w", sentinel.ErrInvalidState)

// Flags is the published authentication state.
type Flags struct {
	Authenticated bool
	Claims        *token.Claims
}

// Snapshot is what consumers observe: flags plus the cached profile.
// Snapshots are immutable once published.
type Snapshot struct {
	Flags
	Profile *models.Profile
}

// Subscriber receives every published Snapshot. It runs synchronously while
// the Context holds its mutation lock, so it must not call Login, Logout,
// Sync, Subscribe, or a cancel func on the same Context.
type Subscriber func(Snapshot)

type subscription struct {
	id int
	fn Subscriber
}

// Context is the per-session state holder with an explicit lifecycle:
// NewContext (init), Login, Logout. Mutations are serialized and each
// publication swaps a whole Snapshot, so readers never see mixed state.
type Context struct {
	mu      sync.Mutex
	store   store.Store
	decoder *token.Decoder
	current atomic.Pointer[Snapshot]
	subs    []subscription
	nextID  int
}

// NewContext initializes from the cached profile with authenticated=false.
// Authentication is re-established by Sync, not assumed from the cache.
// A corrupt cached profile is dropped; other store failures are returned.
func NewContext(ctx context.Context, st store.Store, decoder *token.Decoder) (*Context, error) {
	if decoder == nil {
		decoder = token.NewDecoder()
	}
	profile, err := store.Profile(ctx, st)
	if err != nil {
		if !errors.Is(err, store.ErrCorrupt) {
			return nil, fmt.Errorf("load cached profile: %w", err)
		}
		profile = nil
	}
	c := &Context{store: st, decoder: decoder}
	c.current.Store(&Snapshot{Profile: profile})
	return c, nil
}

// Snapshot returns the latest published state. Safe for concurrent use.
func (c *Context) Snapshot() Snapshot {
	return *c.current.Load()
}

// Subscribe registers fn for future publications and returns its cancel func.
func (c *Context) Subscribe(fn Subscriber) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(s subscription) bool { return s.id == id })
	}
}

// Login persists resp, derives its claims, and publishes an authenticated
// snapshot. A non-nil profile replaces the cached one.
func (c *Context) Login(ctx context.Context, resp models.LoginResponse, profile *models.Profile) error {
	claims, ok := c.decoder.Decode(resp.AccessToken)
	if !ok || !claims.ValidAt(requestcontext.Now(ctx)) {
		return ErrInvalidToken
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Token first: a profile must never be visible without its token.
	if err := store.SaveAuthData(ctx, c.store, resp); err != nil {
		return fmt.Errorf("persist login: %w", err)
	}
	next := &Snapshot{
		Flags:   Flags{Authenticated: true, Claims: claims},
		Profile: c.current.Load().Profile,
	}
	if profile != nil {
		if err := store.SaveProfile(ctx, c.store, *profile); err != nil {
			return fmt.Errorf("persist profile: %w", err)
		}
		p := *profile
		next.Profile = &p
	}
	c.publish(next)
	return nil
}

// Logout clears the token and cached profile and publishes a signed-out
// snapshot. A second Logout clears nothing new and publishes nothing.
func (c *Context) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := store.Clear(ctx, c.store); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	prev := c.current.Load()
	if !prev.Authenticated && prev.Claims == nil && prev.Profile == nil {
		return nil
	}
	c.publish(&Snapshot{})
	return nil
}

// Sync re-derives the flags from the stored token and publishes when they
// differ from the current snapshot. It is how an initialized Context picks
// up a persisted session, and how idle expiry becomes visible to consumers.
// Once signed out, a cached profile the store has since expired is dropped.
func (c *Context) Sync(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	claims, ok := validClaims(ctx, c.store, c.decoder, nil)
	prev := c.current.Load()
	profile := prev.Profile
	if !ok && profile != nil && !c.profileStored(ctx) {
		profile = nil
	}
	if ok == prev.Authenticated && sameClaims(claims, prev.Claims) && profile == prev.Profile {
		return *prev
	}
	next := &Snapshot{Flags: Flags{Authenticated: ok, Claims: claims}, Profile: profile}
	c.publish(next)
	return *next
}

// profileStored reports whether the store still holds a readable profile.
// Read failures other than absence keep the cached one.
func (c *Context) profileStored(ctx context.Context) bool {
	profile, err := store.Profile(ctx, c.store)
	if err != nil {
		return !errors.Is(err, store.ErrCorrupt)
	}
	return profile != nil
}

// publish must be called with c.mu held.
func (c *Context) publish(next *Snapshot) {
	c.current.Store(next)
	for _, s := range c.subs {
		s.fn(*next)
	}
}

func sameClaims(a, b *token.Claims) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ExpiresAtEpochSeconds() == b.ExpiresAtEpochSeconds() &&
		a.ID == b.ID &&
		slices.Equal(a.Authorities, b.Authorities)
}
