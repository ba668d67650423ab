// Package httpapi assembles the HTTP surface: shared middleware, health and
// metrics endpoints, and each context's routes behind the right auth.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "purposepay/internal/audit/handler"
	ledgerhandler "purposepay/internal/ledger/handler"
	platformmetrics "purposepay/internal/platform/metrics"
	ratelimit "purposepay/internal/ratelimit/middleware"
	"purposepay/internal/ratelimit/models"
	registryhandler "purposepay/internal/registry/handler"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/httputil"
	"purposepay/pkg/platform/middleware/admin"
	"purposepay/pkg/platform/middleware/auth"
	request "purposepay/pkg/platform/middleware/request"
	"purposepay/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Registry   *registryhandler.Handler
	Ledger     *ledgerhandler.Handler
	Audit      *audithandler.Handler
	AdminToken string
	Admin      id.Address
	Callers    auth.TokenValidator
	Metrics    *platformmetrics.Metrics
	RateLimit  *ratelimit.Middleware
	Logger     *slog.Logger
	Health     map[string]HealthCheck
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", healthHandler(d.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(limit(d.RateLimit, models.ClassRead))
		d.Registry.Register(r)
		d.Ledger.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(limit(d.RateLimit, models.ClassWrite))
		r.Use(admin.RequireAdminToken(d.AdminToken, d.Admin, d.Logger))
		d.Registry.RegisterAdmin(r)
		d.Ledger.RegisterAdmin(r)
		if d.Audit != nil {
			d.Audit.RegisterAdmin(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(limit(d.RateLimit, models.ClassWrite))
		r.Use(auth.RequireCaller(d.Callers, d.Logger))
		d.Registry.RegisterLedger(r)
		d.Ledger.RegisterHolder(r)
	})
	return r
}

func limit(m *ratelimit.Middleware, class models.Class) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return m.RateLimit(class)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
