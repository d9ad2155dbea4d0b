package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"sgr/internal/audit"
	"sgr/internal/auth/models"
	"sgr/internal/auth/session"
	"sgr/internal/platform/metrics"
	"sgr/internal/risk"
	"sgr/internal/screens"
	"sgr/pkg/platform/middleware/sessioncookie"
	"sgr/pkg/requestcontext"
)

const (
	homePath      = "/sgr"
	logoutPath    = "/sgr/logout"
	confirmedPath = "/sgr/confirmado"
	notFoundPath  = "/sgr/nao-encontrado"
	scorePath     = "/sgr/api/score"

	maxFormBytes = 1 << 20
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks

// Authenticator exchanges credentials for a login payload.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (models.LoginResponse, error)
}

// Backend is the part of the risk management API the pages call.
type Backend interface {
	Profile(ctx context.Context, bearer string) (*models.Profile, error)
	Risk(ctx context.Context, bearer, id string) (risk.Record, error)
	SubmitRisk(ctx context.Context, bearer, id string, rec risk.Record) (risk.Record, error)
}

// Handler serves the pages. Session state comes from the Registry; the
// backend only ever sees the bearer stored for the requesting session.
type Handler struct {
	sessions *session.Registry
	screens  *screens.Registry
	views    *screens.Views
	auth     Authenticator
	backend  Backend
	audit    audit.Publisher
	metrics  *metrics.Metrics
	cookie   sessioncookie.Config
	logger   *slog.Logger
}

func NewHandler(d Deps) *Handler {
	h := &Handler{
		sessions: d.Sessions,
		screens:  d.Screens,
		views:    d.Views,
		auth:     d.Auth,
		backend:  d.Backend,
		audit:    d.Audit,
		metrics:  d.Metrics,
		cookie:   d.Cookie,
		logger:   d.Logger,
	}
	if h.audit == nil {
		h.audit = audit.Discard{}
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}
	return h
}

// syncSession re-establishes the session's flags from its stored token
// before anything reads them. Signed-out contexts are dropped; the next Get
// rebuilds one from whatever the store still holds.
func (h *Handler) syncSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if sid := requestcontext.SessionID(ctx); sid != "" {
			h.sync(ctx, sid)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) sync(ctx context.Context, sid string) {
	c, err := h.sessions.Get(ctx, sid)
	if err != nil {
		h.logger.WarnContext(ctx, "session context unavailable",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	if snap := c.Sync(ctx); !snap.Authenticated {
		h.sessions.Forget(sid)
	}
	h.metrics.SetSessionContexts(h.sessions.Len())
}

// snapshot is the requesting session's published state, if any.
func (h *Handler) snapshot(ctx context.Context) (session.Snapshot, bool) {
	sid := requestcontext.SessionID(ctx)
	if sid == "" {
		return session.Snapshot{}, false
	}
	c, ok := h.sessions.Lookup(sid)
	if !ok {
		return session.Snapshot{}, false
	}
	return c.Snapshot(), true
}

func (h *Handler) chrome(ctx context.Context) screens.Chrome {
	snap, ok := h.snapshot(ctx)
	if !ok || !snap.Authenticated || snap.Claims == nil {
		return screens.Chrome{}
	}
	user := snap.Profile.DisplayName()
	if user == "" {
		user = snap.Claims.UserName
	}
	return screens.Chrome{
		Authenticated: true,
		User:          user,
		Navigation:    h.screens.Navigation(snap.Claims),
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	ctx := r.Context()
	err := h.views.Render(w, status, page, screens.Page{
		Title:     title,
		Chrome:    h.chrome(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Data:      data,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to render page",
			"page", page,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) publish(ctx context.Context, e audit.Event) {
	if err := h.audit.Publish(ctx, e); err != nil {
		h.logger.ErrorContext(ctx, "failed to publish audit event",
			"type", e.Type,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// handleScreen renders a screen placeholder; the guard has already admitted the request.
func (h *Handler) handleScreen(screen screens.Screen) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, screens.PageScreen, screen.Title, nil)
	}
}

func (h *Handler) handleConfirmed(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, screens.PageConfirmed, "Cadastro confirmado", nil)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, screens.PageNotFound, "Página não encontrada", nil)
}

// deniedView renders the access-denied page in place of the requested screen.
type deniedView struct{ h *Handler }

func (v deniedView) RenderDenied(w http.ResponseWriter, r *http.Request, screen screens.Screen) {
	v.h.render(w, r, http.StatusForbidden, screens.PageDenied, screen.Title, nil)
}
