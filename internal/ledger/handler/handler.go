package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"purposepay/internal/ledger/models"
	"purposepay/internal/ledger/service"
	"purposepay/internal/pause"
	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
	"purposepay/pkg/platform/httputil"
	"purposepay/pkg/requestcontext"
)

// Service defines the ledger operations exposed over HTTP.
type Service interface {
	Distribute(ctx context.Context, caller, beneficiary id.Address, amount id.Amount) error
	Mint(ctx context.Context, caller, to id.Address, amount id.Amount) error
	Transfer(ctx context.Context, from, to id.Address, amount id.Amount) (*service.Receipt, error)
	BalanceOf(ctx context.Context, addr id.Address) (id.Amount, error)
	TotalSupply(ctx context.Context) (id.Amount, error)
	Pause(ctx context.Context, caller id.Address) error
	Unpause(ctx context.Context, caller id.Address) error
	PauseStatus(ctx context.Context) (map[pause.Module]bool, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public read routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ledger/balances/{address}", h.HandleBalance)
	r.Get("/ledger/supply", h.HandleSupply)
	r.Get("/ledger/pause", h.HandlePauseStatus)
}

// RegisterAdmin mounts issuance and pause control behind admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/ledger/distribute", h.HandleDistribute)
	r.Post("/admin/ledger/mint", h.HandleMint)
	r.Post("/admin/ledger/pause", h.HandlePause)
	r.Post("/admin/ledger/unpause", h.HandleUnpause)
}

// RegisterHolder mounts the transfer route behind bearer auth; the token
// subject is the sender.
func (h *Handler) RegisterHolder(r chi.Router) {
	r.Post("/ledger/transfer", h.HandleTransfer)
}

type supplyResponse struct {
	TotalSupply id.Amount `json:"total_supply"`
}

type pauseResponse struct {
	Modules map[pause.Module]bool `json:"modules"`
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "address is not valid"))
		return
	}
	balance, err := h.service.BalanceOf(r.Context(), addr)
	if err != nil {
		h.fail(r.Context(), w, "failed to read balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.Account{Address: addr, Balance: balance})
}

func (h *Handler) HandleSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.service.TotalSupply(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to read supply", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, supplyResponse{TotalSupply: supply})
}

func (h *Handler) HandlePauseStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.PauseStatus(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to read pause state", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pauseResponse{Modules: status})
}

func (h *Handler) HandleDistribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	caller, _ := requestcontext.Caller(ctx)
	if err := h.service.Distribute(ctx, caller, req.parsedTo, req.parsedAmount); err != nil {
		h.fail(ctx, w, "distribution failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	caller, _ := requestcontext.Caller(ctx)
	if err := h.service.Mint(ctx, caller, req.parsedTo, req.parsedAmount); err != nil {
		h.fail(ctx, w, "mint failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.Pause)
}

func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.Unpause)
}

func (h *Handler) togglePause(w http.ResponseWriter, r *http.Request, toggle func(context.Context, id.Address) error) {
	ctx := r.Context()
	caller, _ := requestcontext.Caller(ctx)
	if err := toggle(ctx, caller); err != nil {
		h.fail(ctx, w, "pause toggle failed", err)
		return
	}
	h.HandlePauseStatus(w, r)
}

func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from, ok := requestcontext.Caller(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	receipt, err := h.service.Transfer(ctx, from, req.parsedTo, req.parsedAmount)
	if err != nil {
		h.fail(ctx, w, "transfer failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelInfo
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	httputil.WriteError(w, err)
}
