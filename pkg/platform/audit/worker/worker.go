package worker

import (
	"context"
	"log/slog"

	audit "purposepay/pkg/platform/audit"
)

// HandleFunc persists or forwards one event.
type HandleFunc func(ctx context.Context, event audit.Event) error

// Worker consumes audit events from a channel until the channel is closed or
// ctx is done. Handler failures are logged and do not stop the loop.
type Worker struct {
	handle HandleFunc
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(handle HandleFunc, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{handle: handle, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.handle(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit event delivery failed",
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
			}
		}
	}
}
