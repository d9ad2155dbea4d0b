package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Worker decouples request handling from slow sinks: Publish enqueues
// without blocking and Run drains the queue into the downstream publisher.
// When the queue is full the event is dropped and counted.
type Worker struct {
	next    Publisher
	inbox   chan Event
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewWorker(next Publisher, capacity int, logger *slog.Logger) *Worker {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Worker{next: next, inbox: make(chan Event, capacity), logger: logger}
}

func (w *Worker) Publish(_ context.Context, e Event) error {
	select {
	case w.inbox <- e:
	default:
		w.dropped.Add(1)
	}
	return nil
}

// Dropped reports events discarded because the queue was full.
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Run delivers queued events until ctx is done, then flushes what is left
// using a context detached from ctx's cancellation.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case event := <-w.inbox:
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case event := <-w.inbox:
			w.deliver(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, e Event) {
	if err := w.next.Publish(ctx, e); err != nil && w.logger != nil {
		w.logger.ErrorContext(ctx, "audit publish failed",
			"error", err,
			"type", string(e.Type),
			"request_id", e.RequestID,
		)
	}
}
