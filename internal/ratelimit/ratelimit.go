// Package ratelimit throttles repeated requests per client with a sliding
// window. The primary store may be shared (Redis); when it keeps failing a
// circuit breaker routes checks to an in-process fallback until it recovers.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sgr/pkg/platform/circuit"
	"sgr/pkg/platform/sentinel"
)

// Result describes one check against a window.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// Degraded is set when the fallback store answered.
	Degraded bool
}

// RetryAfter is the whole number of seconds until the window frees a slot,
// never less than one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	return max(secs, 1)
}

// Store counts hits for key inside a sliding window and records the hit
// when it fits under limit.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Limiter applies one limit and window to every key it is asked about.
type Limiter struct {
	store    Store
	fallback Store
	breaker  *circuit.Breaker
	limit    int
	window   time.Duration
	logger   *slog.Logger
}

type Option func(*Limiter)

// WithFallback answers checks while the primary store is failing.
func WithFallback(s Store) Option { return func(l *Limiter) { l.fallback = s } }

func WithBreaker(b *circuit.Breaker) Option { return func(l *Limiter) { l.breaker = b } }

func WithLogger(logger *slog.Logger) Option { return func(l *Limiter) { l.logger = logger } }

// New allows limit hits per window for each key.
func New(store Store, limit int, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limit store is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("rate limit needs a positive limit and window, got %d per %s", limit, window)
	}
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.breaker == nil {
		l.breaker = circuit.New("ratelimit")
	}
	return l, nil
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) Window() time.Duration { return l.window }

// Allow records a hit for key. An error means no store could answer.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	if l.breaker.Allow() {
		res, err := l.store.Allow(ctx, key, l.limit, l.window)
		if err == nil {
			if _, change := l.breaker.RecordSuccess(); change.Closed {
				l.logger.InfoContext(ctx, "rate limit store recovered", "circuit", l.breaker.Name())
			}
			return res, nil
		}
		if _, change := l.breaker.RecordFailure(); change.Opened {
			l.logger.WarnContext(ctx, "rate limit store failing, using fallback",
				"circuit", l.breaker.Name(),
				"error", err,
			)
		}
		if l.fallback == nil {
			return Result{}, err
		}
	}
	if l.fallback == nil {
		return Result{}, fmt.Errorf("rate limit store: %w", sentinel.ErrUnavailable)
	}
	res, err := l.fallback.Allow(ctx, key, l.limit, l.window)
	if err != nil {
		return Result{}, err
	}
	res.Degraded = true
	return res, nil
}
