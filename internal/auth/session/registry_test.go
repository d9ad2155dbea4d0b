package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgr/internal/auth/models"
	"sgr/internal/auth/store"
	"sgr/pkg/requestcontext"
	"sgr/pkg/testutil"
)

func Test_Registry_GetReturnsSameContextPerSession(t *testing.T) {
	reg := NewRegistry(store.NewInMemoryProvider(), nil, nil)
	ctx := atNow()

	a1, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	a2, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	b, err := reg.Get(ctx, "b")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, reg.Len())
}

func Test_Registry_ConcurrentGetCreatesOneContext(t *testing.T) {
	reg := NewRegistry(store.NewInMemoryProvider(), nil, nil)
	ctx := atNow()

	const workers = 16
	got := make([]*Context, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := reg.Get(ctx, "shared")
			assert.NoError(t, err)
			got[i] = c
		}()
	}
	wg.Wait()

	for _, c := range got[1:] {
		assert.Same(t, got[0], c)
	}
	assert.Equal(t, 1, reg.Len())
}

func Test_Registry_SessionsAreIsolated(t *testing.T) {
	reg := NewRegistry(store.NewInMemoryProvider(), nil, nil)
	ctx := atNow()

	a, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, a.Login(ctx, testutil.LoginResponse(t, now.Add(time.Hour), models.AuthorityAdmin), nil))

	assert.True(t, reg.State("a").HasAnyCapability(ctx, adminOnly))
	assert.False(t, reg.State("b").IsAuthenticated(ctx))
	assert.False(t, reg.State("").IsAuthenticated(ctx))
}

func Test_Registry_HooksSeeEveryPublication(t *testing.T) {
	reg := NewRegistry(store.NewInMemoryProvider(), nil, nil)
	ctx := atNow()

	type event struct {
		sid           string
		authenticated bool
	}
	var events []event
	reg.OnChange(func(sid string, snap Snapshot) {
		events = append(events, event{sid, snap.Authenticated})
	})

	c, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Login(ctx, testutil.LoginResponse(t, now.Add(time.Hour)), nil))
	require.NoError(t, c.Logout(ctx))

	assert.Equal(t, []event{{"a", true}, {"a", false}}, events)
}

func Test_Registry_ForgetKeepsPersistedSession(t *testing.T) {
	reg := NewRegistry(store.NewInMemoryProvider(), nil, nil)
	ctx := atNow()

	c, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Login(ctx, testutil.LoginResponse(t, now.Add(time.Hour)), nil))

	reg.Forget("a")
	_, ok := reg.Lookup("a")
	assert.False(t, ok)
	assert.True(t, reg.State("a").IsAuthenticated(ctx))

	again, err := reg.Get(ctx, "a")
	require.NoError(t, err)
	assert.NotSame(t, c, again)
	assert.True(t, again.Sync(ctx).Authenticated)
}

func Test_Registry_SweepDropsIdleContexts(t *testing.T) {
	reg := NewRegistry(store.NewInMemoryProvider(), nil, nil)
	ctx := atNow()

	for _, sid := range []string{"a", "b", "c"} {
		_, err := reg.Get(ctx, sid)
		require.NoError(t, err)
	}
	later := requestcontext.WithTime(context.Background(), now.Add(30*time.Minute))
	_, err := reg.Get(later, "b")
	require.NoError(t, err)

	assert.Zero(t, reg.Sweep(now.Add(30*time.Minute), time.Hour))
	assert.Equal(t, 2, reg.Sweep(now.Add(90*time.Minute), time.Hour))
	assert.Equal(t, 1, reg.Len())
	_, ok := reg.Lookup("b")
	assert.True(t, ok, "recently used contexts are kept")
}
