package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "purposepay/internal/jwt_token"
	"purposepay/internal/registry/models"
	"purposepay/internal/registry/service"
	"purposepay/internal/registry/store/beneficiary"
	"purposepay/internal/registry/store/merchant"
	"purposepay/internal/registry/store/txlog"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/middleware/admin"
	"purposepay/pkg/platform/middleware/auth"
	"purposepay/pkg/testutil"
)

const adminToken = "secret-token"

var (
	adminAddr  = id.MustParseAddress("0xAd00000000000000000000000000000000000001")
	ledgerAddr = id.MustParseAddress("0x1ed0000000000000000000000000000000000001")
	benAddr    = "0xb100000000000000000000000000000000000001"
	merAddr    = "0x3100000000000000000000000000000000000001"
	jwtService = jwttoken.NewJWTService("test-signing-key", "purposepay", "registry")
)

func newRegistryRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := service.New(
		beneficiary.NewInMemoryBeneficiaryStore(),
		merchant.NewInMemoryMerchantStore(),
		txlog.NewInMemoryTransactionLog(),
		service.Roles{Admin: adminAddr, Ledger: ledgerAddr},
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, logger)

	r := chi.NewRouter()
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(adminToken, adminAddr, logger))
		h.RegisterAdmin(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireCaller(jwtService, logger))
		h.RegisterLedger(r)
	})
	return r
}

func do(t *testing.T, router http.Handler, method, path string, body any, opts ...testutil.RequestOption) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoRequest(router, testutil.NewJSONRequest(t, method, path, body, opts...))
}

func asAdmin() testutil.RequestOption {
	return testutil.WithAdminToken(adminToken)
}

func asCaller(t *testing.T, addr id.Address) testutil.RequestOption {
	t.Helper()
	token, err := jwtService.IssueCallerToken(addr, "ledger", time.Hour)
	require.NoError(t, err)
	return testutil.WithBearer(token)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func seed(t *testing.T, router http.Handler) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/admin/beneficiaries", map[string]string{"address": benAddr}, asAdmin())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodPost, "/admin/merchants",
		map[string]string{"address": merAddr, "category": "medical", "name": "Clinic"}, asAdmin())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := newRegistryRouter(t)
	rec := do(t, router, http.MethodPost, "/admin/beneficiaries", map[string]string{"address": benAddr})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/admin/beneficiaries", map[string]string{"address": benAddr},
		testutil.WithAdminToken("wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWhitelistManagement(t *testing.T) {
	router := newRegistryRouter(t)
	seed(t, router)

	t.Run("duplicate add is a conflict", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/admin/beneficiaries", map[string]string{"address": benAddr}, asAdmin())
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/admin/merchants",
			map[string]string{"address": "0x3100000000000000000000000000000000000009", "category": "LUXURY"}, asAdmin())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed address is rejected", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/admin/beneficiaries", map[string]string{"address": "nope"}, asAdmin())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("merchant is readable", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/merchants/"+merAddr, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		m := decode[models.Merchant](t, rec)
		assert.Equal(t, models.CategoryMedical, m.Category)
		assert.Equal(t, "Clinic", m.Name)
		assert.True(t, m.IsActive())
	})

	t.Run("remove then remove again", func(t *testing.T) {
		rec := do(t, router, http.MethodDelete, "/admin/merchants/"+merAddr, nil, asAdmin())
		require.Equal(t, http.StatusOK, rec.Code)
		rec = do(t, router, http.MethodDelete, "/admin/merchants/"+merAddr, nil, asAdmin())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lists keep removed records", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/merchants", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[MerchantListResponse](t, rec)
		require.Len(t, list.Merchants, 1)
		assert.False(t, list.Merchants[0].IsActive())
	})

	t.Run("unknown beneficiary is not found", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/beneficiaries/0xb100000000000000000000000000000000000002", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthorize(t *testing.T) {
	router := newRegistryRouter(t)
	seed(t, router)

	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
		reason  string
	}{
		{"beneficiary to merchant", benAddr, merAddr, true, "approved_merchant"},
		{"beneficiary elsewhere", benAddr, "0x0700000000000000000000000000000000000001", false, "recipient_not_merchant"},
		{"outsider", "0x0700000000000000000000000000000000000001", benAddr, true, "unrestricted_sender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, "/authorize?from="+tt.from+"&to="+tt.to, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode[DecisionResponse](t, rec)
			assert.Equal(t, tt.allowed, resp.Allowed)
			assert.Equal(t, tt.reason, resp.Reason)
		})
	}

	rec := do(t, router, http.MethodGet, "/authorize?from="+benAddr, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerHook(t *testing.T) {
	router := newRegistryRouter(t)
	seed(t, router)
	body := map[string]string{"from": benAddr, "to": merAddr, "amount": "40"}

	t.Run("missing token", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/hooks/transfers", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated non-ledger caller is forbidden", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/hooks/transfers", body, asCaller(t, adminAddr))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("ledger records transfer", func(t *testing.T) {
		rec := do(t, router, http.MethodPost, "/hooks/transfers", body, asCaller(t, ledgerAddr))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, decode[RecordResponse](t, rec).Recorded)
	})

	t.Run("non-whitelisted pair is a silent no-op", func(t *testing.T) {
		other := map[string]string{"from": merAddr, "to": benAddr, "amount": "1"}
		rec := do(t, router, http.MethodPost, "/hooks/transfers", other, asCaller(t, ledgerAddr))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decode[RecordResponse](t, rec).Recorded)
	})

	t.Run("log reflects only the recorded entry", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/transactions/count", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, uint64(1), decode[CountResponse](t, rec).Count)

		rec = do(t, router, http.MethodGet, "/transactions/0", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		tx := decode[models.Transaction](t, rec)
		assert.Equal(t, "40", tx.Amount.String())
		assert.Equal(t, models.CategoryMedical, tx.Category)

		rec = do(t, router, http.MethodGet, "/transactions/1", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(t, router, http.MethodGet, "/beneficiaries/"+benAddr+"/transactions", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[TransactionListResponse](t, rec).Transactions, 1)
	})
}

func TestDistributionAndStats(t *testing.T) {
	router := newRegistryRouter(t)
	seed(t, router)

	rec := do(t, router, http.MethodPost, "/admin/distributions",
		map[string]string{"beneficiary": benAddr, "amount": "500"}, asAdmin())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[RecordResponse](t, rec).Recorded)

	rec = do(t, router, http.MethodPost, "/admin/distributions",
		map[string]string{"beneficiary": benAddr, "amount": "-5"}, asAdmin())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/beneficiaries/"+benAddr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "500", decode[models.Beneficiary](t, rec).TotalReceived.String())

	rec = do(t, router, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.Stats](t, rec)
	assert.Equal(t, 1, stats.ActiveBeneficiaries)
	assert.Equal(t, 1, stats.ActiveMerchants)
	assert.Equal(t, uint64(0), stats.Transactions)
}

func TestTransactionQueries(t *testing.T) {
	router := newRegistryRouter(t)
	seed(t, router)
	for range 3 {
		rec := do(t, router, http.MethodPost, "/hooks/transfers",
			map[string]string{"from": benAddr, "to": merAddr, "amount": "1"}, asCaller(t, ledgerAddr))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(t, router, http.MethodGet, "/transactions/recent?n=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recent := decode[TransactionListResponse](t, rec).Transactions
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(1), recent[0].Index)

	rec = do(t, router, http.MethodGet, "/transactions/recent?n=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/transactions?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[models.Page](t, rec)
	assert.Len(t, page.Transactions, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, uint64(2), *page.NextCursor)

	rec = do(t, router, http.MethodGet, "/transactions?cursor=18446744073709551615", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[models.Page](t, rec)
	assert.Empty(t, page.Transactions)
	assert.Nil(t, page.NextCursor)

	rec = do(t, router, http.MethodGet, "/transactions?cursor=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryName(t *testing.T) {
	router := newRegistryRouter(t)
	for code, want := range map[string]string{"0": "FOOD", "2": "SHELTER", "9": "UNKNOWN", "-3": "UNKNOWN"} {
		rec := do(t, router, http.MethodGet, "/categories/"+code, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, decode[CategoryResponse](t, rec).Name)
	}
	rec := do(t, router, http.MethodGet, "/categories/food", nil)
	testutil.AssertError(t, rec, http.StatusBadRequest, "bad_request")
}

func TestMerchantNameLimit(t *testing.T) {
	router := newRegistryRouter(t)
	longest := strings.Repeat("n", models.MaxMerchantNameLength)

	rec := do(t, router, http.MethodPost, "/admin/merchants",
		map[string]string{"address": merAddr, "category": "food", "name": longest + "n"}, asAdmin())
	testutil.AssertError(t, rec, http.StatusBadRequest, "validation_error")

	rec = do(t, router, http.MethodPost, "/admin/merchants",
		map[string]string{"address": merAddr, "category": "food", "name": "  " + longest + "  "}, asAdmin())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, longest, decode[models.Merchant](t, rec).Name)
}
