package audit

import (
	"context"
	"errors"
	"log/slog"
)

// Publisher delivers audit events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events as structured log lines.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	level := slog.LevelInfo
	if e.Type == EventAccessDenied || e.Type == EventLoginFailed {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "audit event",
		"type", string(e.Type),
		"session_id", e.SessionID,
		"user", e.User,
		"screen", e.Screen,
		"path", e.Path,
		"reason", e.Reason,
		"client_ip", e.ClientIP,
		"request_id", e.RequestID,
		"at", e.At,
	)
	return nil
}

// Multi publishes to every sink and joins their errors. One failing sink
// does not stop the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
