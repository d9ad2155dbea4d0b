package httptransport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sgr/internal/audit"
	"sgr/internal/auth/guard"
	"sgr/internal/auth/models"
	"sgr/internal/auth/session"
	"sgr/internal/ratelimit"
	"sgr/internal/screens"
	dErrors "sgr/pkg/domain-errors"
	"sgr/pkg/platform/httputil"
	"sgr/pkg/platform/middleware/sessioncookie"
	"sgr/pkg/requestcontext"
)

const (
	loginTitle          = "Login"
	msgInvalidLogin     = "Usuário ou senha inválidos"
	msgLoginUnavailable = "Não foi possível entrar agora, tente novamente"
	msgLoginThrottled   = "Muitas tentativas de acesso. Tente novamente em %d segundos"
)

// handleLoginPage shows the login form, or sends an already signed-in
// visitor straight to where they were going.
func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if snap, ok := h.snapshot(r.Context()); ok && snap.Authenticated {
		http.Redirect(w, r, guard.SafeReturn(from, homePath), http.StatusFound)
		return
	}
	h.render(w, r, http.StatusOK, screens.PageLogin, loginTitle, screens.LoginForm{From: from})
}

// handleLogin exchanges the credentials for a token, stores it under a fresh
// session id and returns the visitor to the screen that sent them here.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, screens.PageLogin, loginTitle, screens.LoginForm{Error: msgInvalidLogin})
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	form := screens.LoginForm{Username: username, From: r.PostFormValue("from")}

	resp, err := h.auth.Login(ctx, username, password)
	if err != nil {
		h.loginFailed(w, r, form, err)
		return
	}

	var profile *models.Profile
	if h.backend != nil {
		profile, err = h.backend.Profile(ctx, resp.AccessToken)
		if err != nil {
			h.logger.WarnContext(ctx, "profile unavailable after login",
				"error", err,
				"request_id", requestID,
			)
			profile = nil
		}
	}

	previous := requestcontext.SessionID(ctx)
	sid := sessioncookie.NewID()
	c, err := h.sessions.Get(ctx, sid)
	if err == nil {
		err = c.Login(ctx, resp, profile)
	}
	if err != nil {
		h.sessions.Forget(sid)
		h.loginFailed(w, r, form, err)
		return
	}
	if previous != "" {
		h.endSession(r, previous)
	}

	sessioncookie.Set(w, h.cookie, sid)
	h.metrics.IncrementLogin("success")
	h.metrics.SetSessionContexts(h.sessions.Len())

	event := audit.NewEvent(ctx, audit.EventLogin)
	event.SessionID = sid
	if snap := c.Snapshot(); snap.Claims != nil {
		event.User = snap.Claims.UserName
	}
	h.publish(ctx, event)
	h.logger.InfoContext(ctx, "user logged in",
		"user", event.User,
		"request_id", requestID,
	)

	http.Redirect(w, r, guard.SafeReturn(form.From, homePath), http.StatusSeeOther)
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, form screens.LoginForm, err error) {
	ctx := r.Context()
	code := dErrors.CodeOf(err)
	status, msg := http.StatusUnauthorized, msgInvalidLogin
	switch {
	case errors.Is(err, session.ErrInvalidToken):
		status, msg = http.StatusBadGateway, msgLoginUnavailable
	case code == dErrors.CodeBadRequest:
		status = http.StatusBadRequest
		if m := httputil.Message(err); m != "" {
			msg = m
		}
	case code == dErrors.CodeUnauthorized:
	default:
		status, msg = dErrors.ToHTTPStatus(code), msgLoginUnavailable
	}
	form.Error = msg

	h.metrics.IncrementLogin("failure")
	event := audit.NewEvent(ctx, audit.EventLoginFailed)
	event.User = form.Username
	event.Reason = string(code)
	h.publish(ctx, event)
	h.logger.WarnContext(ctx, "login failed",
		"user", form.Username,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	h.render(w, r, status, screens.PageLogin, loginTitle, form)
}

// loginThrottled answers a credential post refused by the login limiter. The
// credentials are never forwarded to the identity provider.
func (h *Handler) loginThrottled(w http.ResponseWriter, r *http.Request, res ratelimit.Result) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	form := screens.LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		From:     r.PostFormValue("from"),
		Error:    fmt.Sprintf(msgLoginThrottled, res.RetryAfter(requestcontext.Now(ctx))),
	}

	event := audit.NewEvent(ctx, audit.EventLoginLimited)
	event.User = form.Username
	h.publish(ctx, event)
	h.render(w, r, http.StatusTooManyRequests, screens.PageLogin, loginTitle, form)
}

// handleLogout signs the session out and forgets the browser's cookie.
// Logging out twice, or without a session, still ends on the login page.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if sid := requestcontext.SessionID(ctx); sid != "" {
		event := audit.NewEvent(ctx, audit.EventLogout)
		if snap, ok := h.snapshot(ctx); ok && snap.Claims != nil {
			event.User = snap.Claims.UserName
		}
		h.endSession(r, sid)
		h.metrics.IncrementLogout()
		h.publish(ctx, event)
	}
	sessioncookie.Clear(w, h.cookie)
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

// endSession clears the persisted session and drops its Context.
func (h *Handler) endSession(r *http.Request, sid string) {
	ctx := r.Context()
	c, err := h.sessions.Get(ctx, sid)
	if err == nil {
		err = c.Logout(ctx)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to clear session",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	h.sessions.Forget(sid)
	h.metrics.SetSessionContexts(h.sessions.Len())
}
