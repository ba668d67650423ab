// Package handler serves the stored audit trail to the administrator.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/platform/httputil"
	"purposepay/pkg/requestcontext"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Reader is the read side of the audit publisher.
type Reader interface {
	List(ctx context.Context, subject string) ([]audit.Event, error)
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

type Handler struct {
	reader Reader
	logger *slog.Logger
}

func New(reader Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

// RegisterAdmin mounts the audit read route behind admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/audit", h.HandleListEvents)
}

type EventListResponse struct {
	Events []audit.Event `json:"events"`
}

// HandleListEvents serves GET /admin/audit?subject=&limit=, newest first.
// Without subject it returns the most recent events across all identities.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(v, maxLimit)
	}

	var (
		events []audit.Event
		err    error
	)
	if raw := q.Get("subject"); raw != "" {
		subject, perr := id.ParseAddress(raw)
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		events, err = h.reader.List(ctx, subject.String())
		if len(events) > limit {
			events = events[:limit]
		}
	} else {
		events, err = h.reader.Recent(ctx, limit)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, &EventListResponse{Events: events})
}
