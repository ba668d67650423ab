package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	httpapi "purposepay/internal/http"
	ledgerservice "purposepay/internal/ledger/service"
	ledgerstore "purposepay/internal/ledger/store"
	"purposepay/internal/pause"
	pausestore "purposepay/internal/pause/store"
	"purposepay/internal/platform/config"
	"purposepay/internal/platform/postgres"
	"purposepay/internal/platform/redis"
	ratelimit "purposepay/internal/ratelimit/middleware"
	"purposepay/internal/ratelimit/store/bucket"
	registryservice "purposepay/internal/registry/service"
	"purposepay/internal/registry/store/beneficiary"
	"purposepay/internal/registry/store/merchant"
	"purposepay/internal/registry/store/txlog"
	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/platform/audit/publishers/kafka"
	auditmemory "purposepay/pkg/platform/audit/store/memory"
	auditpostgres "purposepay/pkg/platform/audit/store/postgres"
	"purposepay/pkg/platform/tx"
)

// backends groups the storage chosen at startup. Registry and ledger stores
// always share one tx runner so Distribute commits both sides together.
type backends struct {
	name string

	tx            tx.Runner
	beneficiaries registryservice.BeneficiaryStore
	merchants     registryservice.MerchantStore
	txlog         registryservice.TransactionLog
	balances      ledgerservice.BalanceStore
	auditStore    audit.Store
	pauseStore    pause.Store
	sinks         []audit.Sink
	rateLimits    ratelimit.BucketStore

	health  map[string]httpapi.HealthCheck
	closers []func() error
}

func openBackends(ctx context.Context, cfg config.Config, log *slog.Logger) (*backends, error) {
	b := &backends{health: map[string]httpapi.HealthCheck{}}
	ok := false
	defer func() {
		if !ok {
			b.Close()
		}
	}()

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		if err := postgres.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		b.usePostgres(db)
	} else {
		b.useMemory()
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if client != nil {
		b.closers = append(b.closers, client.Close)
		b.pauseStore = pausestore.NewRedisStore(client.Client)
		b.rateLimits = bucket.NewRedisBucketStore(client.Client)
		b.health["redis"] = client.Health
	} else {
		b.pauseStore = pausestore.NewInMemoryStore()
		b.rateLimits = bucket.NewInMemoryBucketStore()
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kcfg := kafka.Config{
			Brokers:           cfg.Kafka.Brokers,
			Topic:             cfg.Kafka.Topic,
			Partitions:        cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
		}
		if err := kafka.EnsureTopic(ctx, kcfg); err != nil {
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
		sink, err := kafka.NewSink(kcfg)
		if err != nil {
			return nil, err
		}
		// The audit publisher owns sinks and closes them.
		b.sinks = append(b.sinks, sink)
		b.health["kafka"] = sink.Ping
	}

	log.InfoContext(ctx, "backends ready",
		"store", b.name,
		"redis", client != nil,
		"kafka", len(b.sinks) > 0,
	)
	ok = true
	return b, nil
}

func (b *backends) usePostgres(db *sql.DB) {
	b.name = "postgres"
	b.tx = tx.NewPostgresRunner(db)
	b.beneficiaries = beneficiary.NewPostgres(db)
	b.merchants = merchant.NewPostgres(db)
	b.txlog = txlog.NewPostgres(db)
	b.balances = ledgerstore.NewPostgres(db)
	b.auditStore = auditpostgres.New(db)
	b.health["postgres"] = db.PingContext
}

func (b *backends) useMemory() {
	b.name = "memory"
	b.tx = tx.NewLockRunner()
	b.beneficiaries = beneficiary.NewInMemoryBeneficiaryStore()
	b.merchants = merchant.NewInMemoryMerchantStore()
	b.txlog = txlog.NewInMemoryTransactionLog()
	b.balances = ledgerstore.NewInMemoryBalanceStore()
	b.auditStore = auditmemory.NewInMemoryStore()
}

// Close releases backends in reverse order of acquisition.
func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
