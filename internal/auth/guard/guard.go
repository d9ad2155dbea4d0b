// Package guard decides, per navigation attempt, whether a protected screen
// renders, redirects to login, or shows the access-denied view.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"sgr/internal/audit"
	"sgr/internal/auth/models"
	"sgr/internal/screens"
	"sgr/pkg/requestcontext"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/sgr/login"

// Outcome is the terminal state of one guard evaluation.
type Outcome int

const (
	Render Outcome = iota
	LoginRedirect
	AccessDenied
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case LoginRedirect:
		return "login_redirect"
	case AccessDenied:
		return "access_denied"
	default:
		return "unknown"
	}
}

// Evaluator answers both session questions from one token read.
type Evaluator interface {
	Evaluate(ctx context.Context, reqs []models.Capability) (authenticated, authorized bool)
}

// Decision is an Outcome plus, for LoginRedirect, the redirect target.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide applies the guard order: no identity redirects to login carrying
// the requested location; a known identity lacking every listed capability
// is denied; anything else renders.
func Decide(ctx context.Context, ev Evaluator, reqs []models.Capability, requested string) Decision {
	authenticated, authorized := ev.Evaluate(ctx, reqs)
	switch {
	case !authenticated:
		return Decision{Outcome: LoginRedirect, Location: LoginURL(requested)}
	case !authorized:
		return Decision{Outcome: AccessDenied}
	default:
		return Decision{Outcome: Render}
	}
}

// LoginURL builds the login address remembering where the visitor was going.
func LoginURL(from string) string {
	if from == "" {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"from": {from}}.Encode()
}

// SafeReturn returns from when it is a local path under /sgr, otherwise
// fallback. It keeps the login form from becoming an open redirect.
func SafeReturn(from, fallback string) string {
	if from == "" || strings.HasPrefix(from, "//") || strings.Contains(from, `\`) {
		return fallback
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	if u.Path != "/sgr" && !strings.HasPrefix(u.Path, "/sgr/") {
		return fallback
	}
	if u.Path == LoginPath {
		return fallback
	}
	return from
}

// EvaluatorFor returns the evaluator for a browser session id.
type EvaluatorFor func(sessionID string) Evaluator

// DeniedRenderer writes the access-denied view.
type DeniedRenderer interface {
	RenderDenied(w http.ResponseWriter, r *http.Request, screen screens.Screen)
}

// Recorder counts guard outcomes.
type Recorder interface {
	ObserveGuardDecision(outcome, screen string)
}

// Guard is the HTTP form of Decide.
type Guard struct {
	sessions EvaluatorFor
	denied   DeniedRenderer
	metrics  Recorder
	audit    audit.Publisher
	logger   *slog.Logger
}

type Option func(*Guard)

func WithMetrics(m Recorder) Option         { return func(g *Guard) { g.metrics = m } }
func WithAudit(p audit.Publisher) Option    { return func(g *Guard) { g.audit = p } }
func WithLogger(logger *slog.Logger) Option { return func(g *Guard) { g.logger = logger } }

func New(sessions EvaluatorFor, denied DeniedRenderer, opts ...Option) *Guard {
	g := &Guard{
		sessions: sessions,
		denied:   denied,
		audit:    audit.Discard{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require wraps a screen handler. A login redirect is a 302 to the login
// page; a denial renders with 403 at the requested URL.
func (g *Guard) Require(screen screens.Screen) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ev := g.sessions(requestcontext.SessionID(ctx))
			decision := Decide(ctx, ev, screen.Capabilities, r.URL.RequestURI())
			if g.metrics != nil {
				g.metrics.ObserveGuardDecision(decision.Outcome.String(), screen.Name)
			}

			switch decision.Outcome {
			case LoginRedirect:
				http.Redirect(w, r, decision.Location, http.StatusFound)
			case AccessDenied:
				event := audit.NewEvent(ctx, audit.EventAccessDenied)
				event.Screen = screen.Name
				event.Path = r.URL.Path
				event.Reason = "missing capability"
				if err := g.audit.Publish(ctx, event); err != nil {
					g.logger.ErrorContext(ctx, "failed to publish access denial",
						"error", err,
						"request_id", requestcontext.RequestID(ctx),
					)
				}
				g.denied.RenderDenied(w, r, screen)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
