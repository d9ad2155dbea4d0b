package audit

import (
	"context"
	"time"

	"sgr/pkg/requestcontext"
)

// EventType names a session lifecycle or access event.
type EventType string

const (
	EventLogin        EventType = "login"
	EventLoginFailed  EventType = "login_failed"
	EventLogout       EventType = "logout"
	EventAccessDenied EventType = "access_denied"
	EventLoginLimited EventType = "login_rate_limited"
)

// Event is emitted from the session and guard layers. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	User      string    `json:"user,omitempty"`
	Screen    string    `json:"screen,omitempty"`
	Path      string    `json:"path,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	At        time.Time `json:"at"`
}

// NewEvent stamps an event with the request-scoped ids and time in ctx.
func NewEvent(ctx context.Context, typ EventType) Event {
	return Event{
		Type:      typ,
		SessionID: requestcontext.SessionID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		At:        requestcontext.Now(ctx),
	}
}
