package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	audithandler "purposepay/internal/audit/handler"
	authmetrics "purposepay/internal/authorizer/metrics"
	httpapi "purposepay/internal/http"
	jwttoken "purposepay/internal/jwt_token"
	ledgerhandler "purposepay/internal/ledger/handler"
	ledgermetrics "purposepay/internal/ledger/metrics"
	ledgerservice "purposepay/internal/ledger/service"
	"purposepay/internal/pause"
	"purposepay/internal/platform/config"
	"purposepay/internal/platform/httpserver"
	"purposepay/internal/platform/logger"
	platformmetrics "purposepay/internal/platform/metrics"
	ratemetrics "purposepay/internal/ratelimit/metrics"
	ratelimit "purposepay/internal/ratelimit/middleware"
	"purposepay/internal/ratelimit/models"
	"purposepay/internal/ratelimit/store/bucket"
	registryhandler "purposepay/internal/registry/handler"
	registrymetrics "purposepay/internal/registry/metrics"
	"purposepay/internal/registry/seed"
	registryservice "purposepay/internal/registry/service"
	"purposepay/pkg/platform/audit/publisher"
)

// main loads config, wires services over the configured backends and runs the
// HTTP server until SIGINT/SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, logCloser := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	err = run(cfg, log)
	if err != nil {
		log.Error("server exited", "error", err)
	}
	_ = logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adminAddr, err := cfg.AdminAddress()
	if err != nil {
		return err
	}
	ledgerAddr, err := cfg.LedgerAddress()
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	auditPublisher := publisher.NewPublisher(b.auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithSinks(b.sinks...),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	pauses := pause.NewService(b.pauseStore, log)

	registry := registryservice.New(b.beneficiaries, b.merchants, b.txlog,
		registryservice.Roles{Admin: adminAddr, Ledger: ledgerAddr},
		registryservice.WithLogger(log),
		registryservice.WithAuditPublisher(auditPublisher),
		registryservice.WithMetrics(registrymetrics.New()),
		registryservice.WithAuthorizerMetrics(authmetrics.New()),
		registryservice.WithTx(b.tx),
		registryservice.WithPauseView(pauses),
	)
	ledger := ledgerservice.New(b.balances, registry,
		ledgerservice.Roles{Admin: adminAddr, Self: ledgerAddr},
		ledgerservice.WithLogger(log),
		ledgerservice.WithAuditPublisher(auditPublisher),
		ledgerservice.WithMetrics(ledgermetrics.New()),
		ledgerservice.WithTx(b.tx),
		ledgerservice.WithPauses(pauses),
	)

	if cfg.SeedFile != "" {
		file, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		res, err := file.Apply(ctx, registry, adminAddr)
		if err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		log.InfoContext(ctx, "seed applied",
			"beneficiaries", res.Beneficiaries,
			"merchants", res.Merchants,
			"skipped", res.Skipped,
		)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Registry:   registryhandler.New(registry, log),
		Ledger:     ledgerhandler.New(ledger, log),
		Audit:      audithandler.New(auditPublisher, log),
		AdminToken: cfg.Roles.AdminToken,
		Admin:      adminAddr,
		Callers:    jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience),
		Metrics:    platformmetrics.New(),
		RateLimit:  newRateLimiter(cfg.RateLimit, b.rateLimits, log),
		Logger:     log,
		Health:     b.health,
	})
	log.Info("starting purposepay", "backend", b.name)
	return httpserver.New(cfg.Server, router, log).Run(ctx)
}

// newRateLimiter uses the in-memory store as fallback so a Redis outage
// degrades limits to per-replica instead of dropping them.
func newRateLimiter(cfg config.RateLimit, primary ratelimit.BucketStore, log *slog.Logger) *ratelimit.Middleware {
	limits := map[models.Class]models.Limit{
		models.ClassRead:  {RequestsPerWindow: cfg.ReadRequests, Window: cfg.Window},
		models.ClassWrite: {RequestsPerWindow: cfg.WriteRequests, Window: cfg.Window},
	}
	return ratelimit.New(primary, limits, log,
		ratelimit.WithFallback(bucket.NewInMemoryBucketStore()),
		ratelimit.WithAllowlist(cfg.Allowlist...),
		ratelimit.WithMetrics(ratemetrics.New()),
		ratelimit.WithDisabled(!cfg.Enabled),
	)
}
