// Package sessioncookie identifies the browser behind a request by its opaque
// session cookie. The value only namespaces server-side session storage; it
// carries no authority of its own.
package sessioncookie

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"sgr/pkg/requestcontext"
)

// Config describes the cookie.
type Config struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Middleware copies a well-formed session cookie into the request context.
// Missing or malformed cookies leave the session id empty.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(cfg.Name); err == nil {
				if id, err := uuid.Parse(c.Value); err == nil {
					r = r.WithContext(requestcontext.WithSessionID(r.Context(), id.String()))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewID mints a session id.
func NewID() string {
	return uuid.NewString()
}

// Set writes id as the session cookie.
func Set(w http.ResponseWriter, cfg Config, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the cookie in the browser.
func Clear(w http.ResponseWriter, cfg Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
