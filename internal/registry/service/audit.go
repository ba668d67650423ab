package service

import (
	"context"
	"log/slog"

	id "purposepay/pkg/domain"
	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/requestcontext"
)

// auditEmitter publishes registry events after commit. Publish failures are
// logged; the registry mutation has already happened.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

type auditRecord struct {
	action      audit.AuditEvent
	actor       id.Address
	subject     id.Address
	counterpart id.Address
	amount      *id.Amount
	reason      string
}

func (e *auditEmitter) emit(ctx context.Context, rec auditRecord) {
	requestID := requestcontext.RequestID(ctx)
	event := audit.Event{
		Action:    string(rec.action),
		Subject:   rec.subject.String(),
		Reason:    rec.reason,
		RequestID: requestID,
		Timestamp: requestcontext.Now(ctx),
	}
	if !rec.actor.IsZero() {
		event.Actor = rec.actor.String()
	}
	if !rec.counterpart.IsZero() {
		event.Counterpart = rec.counterpart.String()
	}
	if rec.amount != nil {
		event.Amount = rec.amount.String()
	}

	if e.logger != nil {
		e.logger.InfoContext(ctx, string(rec.action),
			"subject", event.Subject,
			"actor", event.Actor,
			"request_id", requestID,
		)
	}
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Emit(ctx, event); err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", rec.action,
			"subject", event.Subject,
			"error", err,
			"request_id", requestID,
		)
	}
}
