package service

import (
	"context"
	"log/slog"

	"purposepay/internal/authorizer"
	authmetrics "purposepay/internal/authorizer/metrics"
	"purposepay/internal/pause"
	registrymetrics "purposepay/internal/registry/metrics"
	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/platform/tx"
)

type BeneficiaryStore interface {
	Create(ctx context.Context, b *models.Beneficiary) error
	FindByAddress(ctx context.Context, addr id.Address) (*models.Beneficiary, error)
	Execute(ctx context.Context, addr id.Address, validate func(*models.Beneficiary) error, mutate func(*models.Beneficiary) error) (*models.Beneficiary, error)
	List(ctx context.Context) ([]*models.Beneficiary, error)
	CountActive(ctx context.Context) (int, error)
}

type MerchantStore interface {
	Create(ctx context.Context, m *models.Merchant) error
	FindByAddress(ctx context.Context, addr id.Address) (*models.Merchant, error)
	Execute(ctx context.Context, addr id.Address, validate func(*models.Merchant) error, mutate func(*models.Merchant) error) (*models.Merchant, error)
	List(ctx context.Context) ([]*models.Merchant, error)
	CountActive(ctx context.Context) (int, error)
}

type TransactionLog interface {
	Append(ctx context.Context, tx *models.Transaction) (uint64, error)
	Get(ctx context.Context, index uint64) (*models.Transaction, error)
	Count(ctx context.Context) (uint64, error)
	Range(ctx context.Context, from uint64, limit int) ([]*models.Transaction, error)
	ListBySender(ctx context.Context, from id.Address) ([]*models.Transaction, error)
	ListByMerchant(ctx context.Context, to id.Address) ([]*models.Transaction, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Roles names the two privileged identities. Admin manages the whitelists
// and records distributions; Ledger is the only caller allowed to record
// transfers.
type Roles struct {
	Admin  id.Address
	Ledger id.Address
}

// Service owns the whitelists and the spending log. All mutations run inside
// one RunInTx so they are linearizable with each other and with Decide.
type Service struct {
	beneficiaries BeneficiaryStore
	merchants     MerchantStore
	log           TransactionLog
	roles         Roles
	tx            tx.Runner
	pauses        pause.View
	authorizer    *authorizer.Service
	auditEmitter  *auditEmitter
	logger        *slog.Logger
	metrics       *registrymetrics.Metrics
}

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *registrymetrics.Metrics
	authMetrics    *authmetrics.Metrics
	tx             tx.Runner
	pauses         pause.View
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithAuthorizerMetrics(m *authmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.authMetrics = m
	}
}

// WithTx sets the transaction runner. Share one runner between the registry
// and the ledger so ledger operations can join registry mutations.
func WithTx(runner tx.Runner) Option {
	return func(c *serviceConfig) {
		c.tx = runner
	}
}

// WithPauseView makes whitelist mutations fail while the whitelist module is
// paused.
func WithPauseView(v pause.View) Option {
	return func(c *serviceConfig) {
		c.pauses = v
	}
}

func New(beneficiaries BeneficiaryStore, merchants MerchantStore, log TransactionLog, roles Roles, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tx == nil {
		cfg.tx = tx.NewLockRunner()
	}

	s := &Service{
		beneficiaries: beneficiaries,
		merchants:     merchants,
		log:           log,
		roles:         roles,
		tx:            cfg.tx,
		pauses:        cfg.pauses,
		auditEmitter:  newAuditEmitter(cfg.logger, cfg.auditPublisher),
		logger:        cfg.logger,
		metrics:       cfg.metrics,
	}
	s.authorizer = authorizer.New(s,
		authorizer.WithLogger(cfg.logger),
		authorizer.WithMetrics(cfg.authMetrics),
	)
	return s
}

// Roles returns the configured privileged identities.
func (s *Service) Roles() Roles {
	return s.roles
}

func (s *Service) refreshActiveGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	beneficiaries, err := s.beneficiaries.CountActive(ctx)
	if err != nil {
		return
	}
	merchants, err := s.merchants.CountActive(ctx)
	if err != nil {
		return
	}
	s.metrics.SetActive(beneficiaries, merchants)
}
