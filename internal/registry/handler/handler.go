package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"purposepay/internal/authorizer"
	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
	"purposepay/pkg/platform/httputil"
	"purposepay/pkg/requestcontext"
)

// Service is the registry surface the handler needs.
type Service interface {
	AddBeneficiary(ctx context.Context, addr id.Address) (*models.Beneficiary, error)
	RemoveBeneficiary(ctx context.Context, addr id.Address) (*models.Beneficiary, error)
	AddMerchant(ctx context.Context, addr id.Address, category models.Category, name string) (*models.Merchant, error)
	RemoveMerchant(ctx context.Context, addr id.Address) (*models.Merchant, error)
	RecordTransfer(ctx context.Context, caller, from, to id.Address, amount id.Amount) (bool, error)
	RecordDistribution(ctx context.Context, caller, beneficiary id.Address, amount id.Amount) (bool, error)

	Decide(ctx context.Context, sender, recipient id.Address) (authorizer.Decision, error)
	ListBeneficiaries(ctx context.Context) ([]*models.Beneficiary, error)
	ListMerchants(ctx context.Context) ([]*models.Merchant, error)
	GetBeneficiary(ctx context.Context, addr id.Address) (*models.Beneficiary, error)
	GetMerchant(ctx context.Context, addr id.Address) (*models.Merchant, error)
	TransactionCount(ctx context.Context) (uint64, error)
	GetTransaction(ctx context.Context, index uint64) (*models.Transaction, error)
	RecentTransactions(ctx context.Context, n int) ([]*models.Transaction, error)
	ListTransactions(ctx context.Context, cursor uint64, limit int) (*models.Page, error)
	TransactionsBySender(ctx context.Context, sender id.Address) ([]*models.Transaction, error)
	TransactionsByMerchant(ctx context.Context, merchant id.Address) ([]*models.Transaction, error)
	Stats(ctx context.Context) (*models.Stats, error)
	CategoryName(code int) string
}

// Handler exposes the registry over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public read-only routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/authorize", h.HandleAuthorize)
	r.Get("/stats", h.HandleStats)
	r.Get("/categories/{code}", h.HandleCategoryName)

	r.Get("/beneficiaries", h.HandleListBeneficiaries)
	r.Get("/beneficiaries/{address}", h.HandleGetBeneficiary)
	r.Get("/beneficiaries/{address}/transactions", h.HandleTransactionsBySender)
	r.Get("/merchants", h.HandleListMerchants)
	r.Get("/merchants/{address}", h.HandleGetMerchant)
	r.Get("/merchants/{address}/transactions", h.HandleTransactionsByMerchant)

	r.Get("/transactions", h.HandleListTransactions)
	r.Get("/transactions/count", h.HandleTransactionCount)
	r.Get("/transactions/recent", h.HandleRecentTransactions)
	r.Get("/transactions/{index}", h.HandleGetTransaction)
}

// RegisterAdmin mounts whitelist management. The caller must already be
// bound on the request context by admin authentication.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/beneficiaries", h.HandleAddBeneficiary)
	r.Delete("/admin/beneficiaries/{address}", h.HandleRemoveBeneficiary)
	r.Post("/admin/merchants", h.HandleAddMerchant)
	r.Delete("/admin/merchants/{address}", h.HandleRemoveMerchant)
	r.Post("/admin/distributions", h.HandleRecordDistribution)
}

// RegisterLedger mounts the hook the token ledger calls after a committed
// transfer.
func (h *Handler) RegisterLedger(r chi.Router) {
	r.Post("/hooks/transfers", h.HandleRecordTransfer)
}

func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	from, err := parseRequiredAddress("from", q.Get("from"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := parseRequiredAddress("to", q.Get("to"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.service.Decide(ctx, from, to)
	if err != nil {
		h.fail(ctx, w, "authorization decision failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromDecision(from.String(), to.String(), decision))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to read stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleCategoryName never fails for integer codes; out-of-range codes map
// to "UNKNOWN".
func (h *Handler) HandleCategoryName(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "category code must be an integer"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CategoryResponse{Code: code, Name: h.service.CategoryName(code)})
}

func (h *Handler) HandleListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBeneficiaries(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to list beneficiaries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &BeneficiaryListResponse{Beneficiaries: emptyIfNil(list)})
}

func (h *Handler) HandleGetBeneficiary(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	b, err := h.service.GetBeneficiary(r.Context(), addr)
	if err != nil {
		h.fail(r.Context(), w, "failed to get beneficiary", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) HandleListMerchants(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMerchants(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to list merchants", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &MerchantListResponse{Merchants: emptyIfNil(list)})
}

func (h *Handler) HandleGetMerchant(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	m, err := h.service.GetMerchant(r.Context(), addr)
	if err != nil {
		h.fail(r.Context(), w, "failed to get merchant", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) HandleTransactionsBySender(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	list, err := h.service.TransactionsBySender(r.Context(), addr)
	if err != nil {
		h.fail(r.Context(), w, "failed to list transactions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &TransactionListResponse{Transactions: emptyIfNil(list)})
}

func (h *Handler) HandleTransactionsByMerchant(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	list, err := h.service.TransactionsByMerchant(r.Context(), addr)
	if err != nil {
		h.fail(r.Context(), w, "failed to list transactions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &TransactionListResponse{Transactions: emptyIfNil(list)})
}

// HandleListTransactions serves GET /transactions?cursor=&limit=.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var cursor uint64
	if raw := q.Get("cursor"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "cursor must be a non-negative integer"))
			return
		}
		cursor = v
	}
	limit, ok := intQuery(w, q.Get("limit"), "limit")
	if !ok {
		return
	}

	page, err := h.service.ListTransactions(r.Context(), cursor, limit)
	if err != nil {
		h.fail(r.Context(), w, "failed to list transactions", err)
		return
	}
	page.Transactions = emptyIfNil(page.Transactions)
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) HandleTransactionCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.TransactionCount(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to count transactions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CountResponse{Count: count})
}

// HandleRecentTransactions serves GET /transactions/recent?n=. n defaults to 10.
func (h *Handler) HandleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		raw = "10"
	}
	n, ok := intQuery(w, raw, "n")
	if !ok {
		return
	}
	list, err := h.service.RecentTransactions(r.Context(), n)
	if err != nil {
		h.fail(r.Context(), w, "failed to read recent transactions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &TransactionListResponse{Transactions: emptyIfNil(list)})
}

func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "index must be a non-negative integer"))
		return
	}
	tx, err := h.service.GetTransaction(r.Context(), index)
	if err != nil {
		h.fail(r.Context(), w, "failed to get transaction", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tx)
}

func (h *Handler) HandleAddBeneficiary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AddBeneficiaryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	b, err := h.service.AddBeneficiary(ctx, req.parsedAddress)
	if err != nil {
		h.fail(ctx, w, "failed to add beneficiary", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) HandleRemoveBeneficiary(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	b, err := h.service.RemoveBeneficiary(r.Context(), addr)
	if err != nil {
		h.fail(r.Context(), w, "failed to remove beneficiary", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) HandleAddMerchant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AddMerchantRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	m, err := h.service.AddMerchant(ctx, req.parsedAddress, req.parsedCategory, req.Name)
	if err != nil {
		h.fail(ctx, w, "failed to add merchant", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) HandleRemoveMerchant(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	m, err := h.service.RemoveMerchant(r.Context(), addr)
	if err != nil {
		h.fail(r.Context(), w, "failed to remove merchant", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) HandleRecordDistribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RecordDistributionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	caller, _ := requestcontext.Caller(ctx)
	recorded, err := h.service.RecordDistribution(ctx, caller, req.parsedBeneficiary, req.parsedAmount)
	if err != nil {
		h.fail(ctx, w, "failed to record distribution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &RecordResponse{Recorded: recorded})
}

func (h *Handler) HandleRecordTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RecordTransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	caller, _ := requestcontext.Caller(ctx)
	recorded, err := h.service.RecordTransfer(ctx, caller, req.parsedFrom, req.parsedTo, req.parsedAmount)
	if err != nil {
		h.fail(ctx, w, "failed to record transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &RecordResponse{Recorded: recorded})
}

// fail logs at error level only for server-side failures.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.InfoContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}

func addressParam(w http.ResponseWriter, r *http.Request) (id.Address, bool) {
	addr, err := parseRequiredAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.Address{}, false
	}
	return addr, true
}

func intQuery(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "%s must be an integer", name))
		return 0, false
	}
	return v, true
}
