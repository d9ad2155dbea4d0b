package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sgr/internal/audit"
	"sgr/internal/auth/guard"
	"sgr/internal/auth/session"
	"sgr/internal/platform/metrics"
	"sgr/internal/ratelimit"
	"sgr/internal/screens"
	"sgr/pkg/platform/httputil"
	"sgr/pkg/platform/middleware/admin"
	"sgr/pkg/platform/middleware/metadata"
	"sgr/pkg/platform/middleware/request"
	"sgr/pkg/platform/middleware/requesttime"
	"sgr/pkg/platform/middleware/sessioncookie"
)

// Deps is everything the HTTP surface is built from.
type Deps struct {
	Sessions     *session.Registry
	Screens      *screens.Registry
	Views        *screens.Views
	Auth         Authenticator
	Backend      Backend
	Audit        audit.Publisher
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	MetricsToken string
	// Health reports the session store's reachability; nil means always healthy.
	Health func(context.Context) error
	Cookie sessioncookie.Config
	// LoginLimiter throttles credential posts per client IP; nil disables it.
	LoginLimiter *ratelimit.Limiter
	Logger       *slog.Logger
}

// NewRouter wires the public pages, the guarded screens and the operational
// endpoints behind one middleware chain.
func NewRouter(d Deps) http.Handler {
	h := NewHandler(d)
	g := guard.New(
		func(sid string) guard.Evaluator { return d.Sessions.State(sid) },
		deniedView{h},
		guard.WithMetrics(d.Metrics),
		guard.WithAudit(h.audit),
		guard.WithLogger(h.logger),
	)

	r := chi.NewRouter()
	r.Use(request.Recovery(h.logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(sessioncookie.Middleware(d.Cookie))
	r.Use(request.Logger(h.logger))
	r.Use(request.LatencyMiddleware(d.Metrics))
	r.Use(h.syncSession)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, homePath, http.StatusFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Health != nil {
			if err := d.Health(r.Context()); err != nil {
				h.logger.WarnContext(r.Context(), "health check failed", "error", err)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.With(admin.RequireBearerToken(d.MetricsToken, h.logger)).
			Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get(guard.LoginPath, h.handleLoginPage)
	if d.LoginLimiter != nil {
		r.With(ratelimit.Middleware(d.LoginLimiter, "login", h.loginThrottled, d.Metrics, h.logger)).
			Post(guard.LoginPath, h.handleLogin)
	} else {
		r.Post(guard.LoginPath, h.handleLogin)
	}
	r.Post(logoutPath, h.handleLogout)
	r.Get(confirmedPath, h.handleConfirmed)
	r.Get(notFoundPath, h.handleNotFound)
	r.Post(scorePath, h.handleScore)

	for _, screen := range d.Screens.Screens() {
		r.Group(func(r chi.Router) {
			r.Use(g.Require(screen))
			r.Get(screen.Path, h.handleScreen(screen))
			if screen.Path == homePath {
				return
			}
			if screen.Path == screens.RiskFormPath {
				r.Get(screen.Path+"/{id}", h.handleRiskForm)
				r.Post(screen.Path+"/{id}", h.handleRiskSubmit)
			}
			r.Get(screen.Path+"/*", h.handleScreen(screen))
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, notFoundPath, http.StatusFound)
	})
	return r
}
