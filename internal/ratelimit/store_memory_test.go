package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgr/pkg/requestcontext"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func at(ts time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), ts)
}

func TestMemoryStore_SlidingWindow(t *testing.T) {
	s := NewMemoryStore()

	for i := range 3 {
		res, err := s.Allow(at(t0.Add(time.Duration(i)*time.Second)), "login:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		assert.Equal(t, t0.Add(time.Minute), res.ResetAt)
	}

	res, err := s.Allow(at(t0.Add(30*time.Second)), "login:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 30, res.RetryAfter(t0.Add(30*time.Second)))

	// the first hit leaves the window exactly one window later
	res, err = s.Allow(at(t0.Add(time.Minute)), "login:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, t0.Add(time.Second+time.Minute), res.ResetAt)
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	ctx := at(t0)

	res, _ := s.Allow(ctx, "login:a", 1, time.Minute)
	assert.True(t, res.Allowed)
	res, _ = s.Allow(ctx, "login:a", 1, time.Minute)
	assert.False(t, res.Allowed)
	res, _ = s.Allow(ctx, "login:b", 1, time.Minute)
	assert.True(t, res.Allowed)
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	_, _ = s.Allow(at(t0), "old", 5, time.Minute)
	_, _ = s.Allow(at(t0.Add(50*time.Second)), "fresh", 5, time.Minute)

	assert.Equal(t, 1, s.Sweep(t0.Add(time.Minute), time.Minute))
	assert.Len(t, s.windows, 1)
	assert.Contains(t, s.windows, "fresh")
}

func TestResult_RetryAfterIsAtLeastOneSecond(t *testing.T) {
	r := Result{ResetAt: t0}
	assert.Equal(t, 1, r.RetryAfter(t0.Add(time.Second)))
}
