package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithandler "purposepay/internal/audit/handler"
	jwttoken "purposepay/internal/jwt_token"
	ledgerhandler "purposepay/internal/ledger/handler"
	ledgerservice "purposepay/internal/ledger/service"
	ledgerstore "purposepay/internal/ledger/store"
	ratelimit "purposepay/internal/ratelimit/middleware"
	"purposepay/internal/ratelimit/models"
	"purposepay/internal/ratelimit/store/bucket"
	registryhandler "purposepay/internal/registry/handler"
	registryservice "purposepay/internal/registry/service"
	"purposepay/internal/registry/store/beneficiary"
	"purposepay/internal/registry/store/merchant"
	"purposepay/internal/registry/store/txlog"
	id "purposepay/pkg/domain"
	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/platform/audit/publisher"
	auditmemory "purposepay/pkg/platform/audit/store/memory"
	request "purposepay/pkg/platform/middleware/request"
	"purposepay/pkg/platform/tx"
	"purposepay/pkg/testutil"
)

var (
	adminAddr  = id.MustParseAddress("0xAd00000000000000000000000000000000000001")
	ledgerAddr = id.MustParseAddress("0x1ed0000000000000000000000000000000000001")
)

func newTestRouter(t *testing.T, health map[string]HealthCheck, opts ...func(*Deps)) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := tx.NewLockRunner()
	events := publisher.NewPublisher(auditmemory.NewInMemoryStore())
	reg := registryservice.New(
		beneficiary.NewInMemoryBeneficiaryStore(),
		merchant.NewInMemoryMerchantStore(),
		txlog.NewInMemoryTransactionLog(),
		registryservice.Roles{Admin: adminAddr, Ledger: ledgerAddr},
		registryservice.WithTx(runner),
		registryservice.WithAuditPublisher(events),
	)
	ledger := ledgerservice.New(ledgerstore.NewInMemoryBalanceStore(), reg,
		ledgerservice.Roles{Admin: adminAddr, Self: ledgerAddr}, ledgerservice.WithTx(runner))

	d := Deps{
		Registry:   registryhandler.New(reg, logger),
		Ledger:     ledgerhandler.New(ledger, logger),
		Audit:      audithandler.New(events, logger),
		AdminToken: "token",
		Admin:      adminAddr,
		Callers:    jwttoken.NewJWTService("key", "purposepay", "purposepay"),
		Logger:     logger,
		Health:     health,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return NewRouter(d)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(request.HeaderRequestID))

	degraded := newTestRouter(t, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	rr = testutil.DoRequest(degraded, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := testutil.UnmarshalResponse[healthResponse](t, rr)
	assert.Equal(t, "degraded", body.Status)
}

func TestRoutesAreMountedBehindAuth(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/stats"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/beneficiaries",
		map[string]string{"address": "0xb100000000000000000000000000000000000001"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/beneficiaries",
		map[string]string{"address": "0xb100000000000000000000000000000000000001"}, testutil.WithAdminToken("token")))
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/admin/audit?subject=0xb100000000000000000000000000000000000001", testutil.WithAdminToken("token")))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), string(audit.EventBeneficiaryAdded))

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/ledger/transfer",
		map[string]string{"to": "0xb100000000000000000000000000000000000001", "amount": "1"}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	router := newTestRouter(t, nil, func(d *Deps) {
		d.RateLimit = ratelimit.New(bucket.NewInMemoryBucketStore(), map[models.Class]models.Limit{
			models.ClassRead: {RequestsPerWindow: 1, Window: time.Minute},
		}, d.Logger)
	})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/stats"))
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/transactions/count"))
	testutil.AssertError(t, rr, http.StatusTooManyRequests, "rate_limit_exceeded")
	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/stats", testutil.WithRemoteAddr("198.51.100.7:4000")))
	assert.Equal(t, http.StatusOK, rr.Code, "limits are per client")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	assert.Equal(t, http.StatusOK, rr.Code, "health is never limited")
}
