// Package service implements the token ledger that sits in front of the
// registry: it moves balances, asks the registry whether a transfer is
// allowed, and reports committed beneficiary spending back to it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"purposepay/internal/authorizer"
	ledgermetrics "purposepay/internal/ledger/metrics"
	"purposepay/internal/pause"
	registry "purposepay/internal/registry/service"
	id "purposepay/pkg/domain"
	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/platform/tx"
	"purposepay/pkg/requestcontext"
)

type BalanceStore interface {
	BalanceOf(ctx context.Context, addr id.Address) (id.Amount, error)
	TotalSupply(ctx context.Context) (id.Amount, error)
	Mint(ctx context.Context, to id.Address, amount id.Amount) error
	Move(ctx context.Context, from, to id.Address, amount id.Amount) error
}

// Registry is the part of the registry the ledger consults and reports to.
type Registry interface {
	Decide(ctx context.Context, sender, recipient id.Address) (authorizer.Decision, error)
	IsActiveBeneficiary(ctx context.Context, addr id.Address) (bool, error)
	CreditDistribution(ctx context.Context, caller, beneficiary id.Address, amount id.Amount) error
	RecordTransfer(ctx context.Context, caller, from, to id.Address, amount id.Amount) (bool, error)
}

// PauseControl reads and flips pause flags.
type PauseControl interface {
	IsPaused(ctx context.Context, module pause.Module) (bool, error)
	Set(ctx context.Context, module pause.Module, paused bool) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Roles: Admin distributes, mints and pauses, and bypasses the transfer
// restriction. Self is the identity the ledger presents to the registry.
type Roles struct {
	Admin id.Address
	Self  id.Address
}

// Receipt describes a committed transfer. Recorded reports whether the
// registry appended a spending entry for it.
type Receipt struct {
	From     id.Address `json:"from"`
	To       id.Address `json:"to"`
	Amount   id.Amount  `json:"amount"`
	Recorded bool       `json:"recorded"`
}

type Service struct {
	balances  BalanceStore
	registry  Registry
	pauses    PauseControl
	roles     Roles
	tx        tx.Runner
	publisher AuditPublisher
	logger    *slog.Logger
	metrics   *ledgermetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTx must be given the runner the registry uses, so that Distribute and
// Transfer join the registry's transaction or lock.
func WithTx(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

func WithPauses(p PauseControl) Option {
	return func(s *Service) {
		s.pauses = p
	}
}

func New(balances BalanceStore, registry Registry, roles Roles, opts ...Option) *Service {
	s := &Service{
		balances: balances,
		registry: registry,
		roles:    roles,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tx == nil {
		s.tx = tx.NewLockRunner()
	}
	return s
}

// Distribute mints amount to an active beneficiary and credits the
// beneficiary's TotalReceived in the same transaction. Unlike
// RecordDistribution, an inactive beneficiary is an error. Both audit events
// are emitted only after the transaction commits.
func (s *Service) Distribute(ctx context.Context, caller, beneficiary id.Address, amount id.Amount) error {
	if err := s.requireAdmin(ctx, caller, "distribute"); err != nil {
		return err
	}
	if err := pause.Guard(ctx, s.pauseView(), pause.ModuleTransfers); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		active, err := s.registry.IsActiveBeneficiary(txCtx, beneficiary)
		if err != nil {
			return err
		}
		if !active {
			return registry.ErrIdentityNotFound
		}
		// Mint validates supply before writing; once it succeeds the credit
		// cannot overflow because TotalReceived never exceeds the supply.
		if err := s.balances.Mint(txCtx, beneficiary, amount); err != nil {
			return wrapStoreErr(err, "failed to mint")
		}
		return s.registry.CreditDistribution(txCtx, caller, beneficiary, amount)
	})
	if err != nil {
		return err
	}

	s.metrics.IncrementIssuance("distribute")
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventDistributionRecorded),
		Actor:   caller.String(),
		Subject: beneficiary.String(),
		Amount:  amount.String(),
	})
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventTokensDistributed),
		Actor:   caller.String(),
		Subject: beneficiary.String(),
		Amount:  amount.String(),
	})
	return nil
}

// Mint issues tokens with no registry accounting, e.g. to seed a merchant's
// float or an operator account.
func (s *Service) Mint(ctx context.Context, caller, to id.Address, amount id.Amount) error {
	if err := s.requireAdmin(ctx, caller, "mint"); err != nil {
		return err
	}
	if to.IsZero() {
		return ErrZeroRecipient
	}
	if err := pause.Guard(ctx, s.pauseView(), pause.ModuleTransfers); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return wrapStoreErr(s.balances.Mint(txCtx, to, amount), "failed to mint")
	})
	if err != nil {
		return err
	}

	s.metrics.IncrementIssuance("mint")
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventTokensMinted),
		Actor:   caller.String(),
		Subject: to.String(),
		Amount:  amount.String(),
	})
	return nil
}

// Transfer moves amount from from to to. Unless from is the administrator,
// the registry must allow the pair. Once the balances are committed the
// transfer is reported to the registry; a reporting failure is logged and
// does not undo the transfer.
func (s *Service) Transfer(ctx context.Context, from, to id.Address, amount id.Amount) (*Receipt, error) {
	start := time.Now()
	defer s.metrics.ObserveTransferDuration(start)

	if err := pause.Guard(ctx, s.pauseView(), pause.ModuleTransfers); err != nil {
		s.metrics.IncrementTransfer("paused")
		return nil, err
	}
	if to.IsZero() {
		return nil, ErrZeroRecipient
	}

	var denied authorizer.Decision
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if from != s.roles.Admin {
			decision, err := s.registry.Decide(txCtx, from, to)
			if err != nil {
				return err
			}
			if !decision.Allowed {
				denied = decision
				return ErrTransferRestricted
			}
		}
		return wrapStoreErr(s.balances.Move(txCtx, from, to, amount), "failed to move balance")
	})
	switch {
	case errors.Is(err, ErrTransferRestricted):
		s.metrics.IncrementTransfer("restricted")
		s.emit(ctx, audit.Event{
			Action:      string(audit.EventTransferDenied),
			Actor:       from.String(),
			Subject:     from.String(),
			Counterpart: to.String(),
			Amount:      amount.String(),
			Reason:      string(denied.Reason),
		})
		return nil, err
	case errors.Is(err, ErrInsufficientBalance):
		s.metrics.IncrementTransfer("insufficient")
		return nil, err
	case err != nil:
		s.metrics.IncrementTransfer("error")
		return nil, err
	}
	s.metrics.IncrementTransfer("committed")

	receipt := &Receipt{From: from, To: to, Amount: amount}
	recorded, err := s.registry.RecordTransfer(ctx, s.roles.Self, from, to, amount)
	if err != nil {
		s.metrics.IncrementRecordFailure()
		s.logger.ErrorContext(ctx, "committed transfer was not recorded",
			"from", from.String(),
			"to", to.String(),
			"amount", amount.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return receipt, nil
	}
	receipt.Recorded = recorded
	return receipt, nil
}

func (s *Service) BalanceOf(ctx context.Context, addr id.Address) (id.Amount, error) {
	balance, err := s.balances.BalanceOf(ctx, addr)
	if err != nil {
		return id.Amount{}, wrapStoreErr(err, "failed to read balance")
	}
	return balance, nil
}

func (s *Service) TotalSupply(ctx context.Context) (id.Amount, error) {
	supply, err := s.balances.TotalSupply(ctx)
	if err != nil {
		return id.Amount{}, wrapStoreErr(err, "failed to read supply")
	}
	return supply, nil
}

// Pause stops transfers, issuance and whitelist mutations.
func (s *Service) Pause(ctx context.Context, caller id.Address) error {
	return s.setPaused(ctx, caller, true)
}

func (s *Service) Unpause(ctx context.Context, caller id.Address) error {
	return s.setPaused(ctx, caller, false)
}

// PauseStatus reports each module's flag. Without pause control everything
// is running.
func (s *Service) PauseStatus(ctx context.Context) (map[pause.Module]bool, error) {
	status := make(map[pause.Module]bool, len(pause.Modules()))
	for _, m := range pause.Modules() {
		if s.pauses == nil {
			status[m] = false
			continue
		}
		paused, err := s.pauses.IsPaused(ctx, m)
		if err != nil {
			return nil, wrapStoreErr(err, "failed to read pause state")
		}
		status[m] = paused
	}
	return status, nil
}

func (s *Service) setPaused(ctx context.Context, caller id.Address, paused bool) error {
	operation, action := "pause", audit.EventLedgerPaused
	if !paused {
		operation, action = "unpause", audit.EventLedgerUnpaused
	}
	if err := s.requireAdmin(ctx, caller, operation); err != nil {
		return err
	}
	if s.pauses == nil {
		return ErrPauseUnavailable
	}
	for _, m := range pause.Modules() {
		if err := s.pauses.Set(ctx, m, paused); err != nil {
			return err
		}
	}
	s.emit(ctx, audit.Event{Action: string(action), Actor: caller.String(), Subject: caller.String()})
	return nil
}

func (s *Service) requireAdmin(ctx context.Context, caller id.Address, operation string) error {
	if caller == s.roles.Admin {
		return nil
	}
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventUnauthorizedCall),
		Subject: caller.String(),
		Reason:  operation,
	})
	return ErrUnauthorized
}

// pauseView avoids handing Guard a typed nil.
func (s *Service) pauseView() pause.View {
	if s.pauses == nil {
		return nil
	}
	return s.pauses
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	event.Timestamp = requestcontext.Now(ctx)
	s.logger.InfoContext(ctx, event.Action,
		"subject", event.Subject,
		"actor", event.Actor,
		"request_id", event.RequestID,
	)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}
