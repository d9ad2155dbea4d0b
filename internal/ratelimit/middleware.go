package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"sgr/pkg/requestcontext"
)

// Recorder counts throttle outcomes per scope.
type Recorder interface {
	ObserveRateLimit(scope, outcome string)
}

// RejectFunc writes the response for a throttled request.
type RejectFunc func(w http.ResponseWriter, r *http.Request, res Result)

// Middleware throttles requests per client IP under scope. When no store can
// answer the request passes through: throttling must not lock users out of
// signing in.
func Middleware(l *Limiter, scope string, reject RejectFunc, rec Recorder, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if reject == nil {
		reject = RejectPlain
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = "unknown"
			}

			res, err := l.Allow(ctx, scope+":"+ip)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed", "scope", scope, "error", err)
				observe(rec, scope, "error")
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, res)
			if !res.Allowed {
				logger.WarnContext(ctx, "rate limit exceeded", "scope", scope, "client_ip", ip)
				observe(rec, scope, "limited")
				w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter(requestcontext.Now(ctx))))
				reject(w, r, res)
				return
			}
			observe(rec, scope, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

// RejectPlain answers 429 with a short text body.
func RejectPlain(w http.ResponseWriter, _ *http.Request, _ Result) {
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

func addRateLimitHeaders(w http.ResponseWriter, res Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if res.Degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}

func observe(rec Recorder, scope, outcome string) {
	if rec != nil {
		rec.ObserveRateLimit(scope, outcome)
	}
}
