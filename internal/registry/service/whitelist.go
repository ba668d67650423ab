package service

import (
	"context"
	"errors"

	"purposepay/internal/pause"
	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/requestcontext"
)

// AddBeneficiary whitelists addr as an active beneficiary with zero
// accumulators. Any existing record, active or removed, is a conflict.
// The caller on ctx must be the administrator.
func (s *Service) AddBeneficiary(ctx context.Context, addr id.Address) (*models.Beneficiary, error) {
	caller, err := s.requireAdmin(ctx, "add_beneficiary")
	if err != nil {
		return nil, err
	}
	if err := pause.Guard(ctx, s.pauses, pause.ModuleWhitelist); err != nil {
		return nil, err
	}

	var created *models.Beneficiary
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		b, err := models.NewBeneficiary(addr, requestcontext.Now(txCtx))
		if err != nil {
			return toValidation(err)
		}
		if err := s.beneficiaries.Create(txCtx, b); err != nil {
			return wrapStoreErr(err, "failed to create beneficiary")
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementWhitelistChange("beneficiary", "added")
	s.refreshActiveGauges(ctx)
	s.auditEmitter.emit(ctx, auditRecord{action: audit.EventBeneficiaryAdded, actor: caller, subject: addr})
	return created, nil
}

// RemoveBeneficiary soft-deletes an active beneficiary. The record stays
// queryable and enumerable.
func (s *Service) RemoveBeneficiary(ctx context.Context, addr id.Address) (*models.Beneficiary, error) {
	caller, err := s.requireAdmin(ctx, "remove_beneficiary")
	if err != nil {
		return nil, err
	}
	if err := pause.Guard(ctx, s.pauses, pause.ModuleWhitelist); err != nil {
		return nil, err
	}

	var removed *models.Beneficiary
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		b, err := s.beneficiaries.Execute(txCtx, addr,
			func(b *models.Beneficiary) error {
				if b.CanRemove() != nil {
					return ErrIdentityNotFound
				}
				return nil
			},
			func(b *models.Beneficiary) error {
				b.ApplyRemoval(now)
				return nil
			},
		)
		if err != nil {
			return wrapStoreErr(err, "failed to remove beneficiary")
		}
		removed = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementWhitelistChange("beneficiary", "removed")
	s.refreshActiveGauges(ctx)
	s.auditEmitter.emit(ctx, auditRecord{action: audit.EventBeneficiaryRemoved, actor: caller, subject: addr})
	return removed, nil
}

// AddMerchant whitelists addr as an active merchant. Category and name are
// fixed for the life of the record.
func (s *Service) AddMerchant(ctx context.Context, addr id.Address, category models.Category, name string) (*models.Merchant, error) {
	caller, err := s.requireAdmin(ctx, "add_merchant")
	if err != nil {
		return nil, err
	}
	if err := pause.Guard(ctx, s.pauses, pause.ModuleWhitelist); err != nil {
		return nil, err
	}

	var created *models.Merchant
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		m, err := models.NewMerchant(addr, category, name, requestcontext.Now(txCtx))
		if err != nil {
			return toValidation(err)
		}
		if err := s.merchants.Create(txCtx, m); err != nil {
			return wrapStoreErr(err, "failed to create merchant")
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementWhitelistChange("merchant", "added")
	s.refreshActiveGauges(ctx)
	s.auditEmitter.emit(ctx, auditRecord{
		action:  audit.EventMerchantAdded,
		actor:   caller,
		subject: addr,
		reason:  created.Category.String(),
	})
	return created, nil
}

func (s *Service) RemoveMerchant(ctx context.Context, addr id.Address) (*models.Merchant, error) {
	caller, err := s.requireAdmin(ctx, "remove_merchant")
	if err != nil {
		return nil, err
	}
	if err := pause.Guard(ctx, s.pauses, pause.ModuleWhitelist); err != nil {
		return nil, err
	}

	var removed *models.Merchant
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		m, err := s.merchants.Execute(txCtx, addr,
			func(m *models.Merchant) error {
				if m.CanRemove() != nil {
					return ErrIdentityNotFound
				}
				return nil
			},
			func(m *models.Merchant) error {
				m.ApplyRemoval(now)
				return nil
			},
		)
		if err != nil {
			return wrapStoreErr(err, "failed to remove merchant")
		}
		removed = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementWhitelistChange("merchant", "removed")
	s.refreshActiveGauges(ctx)
	s.auditEmitter.emit(ctx, auditRecord{action: audit.EventMerchantRemoved, actor: caller, subject: addr})
	return removed, nil
}

// requireAdmin checks the authenticated caller on ctx.
func (s *Service) requireAdmin(ctx context.Context, operation string) (id.Address, error) {
	caller, ok := requestcontext.Caller(ctx)
	if !ok || caller != s.roles.Admin {
		s.rejectCaller(ctx, caller, operation)
		return id.Address{}, ErrUnauthorized
	}
	return caller, nil
}

func (s *Service) rejectCaller(ctx context.Context, caller id.Address, operation string) {
	s.metrics.IncrementUnauthorized(operation)
	s.auditEmitter.emit(ctx, auditRecord{
		action:  audit.EventUnauthorizedCall,
		subject: caller,
		reason:  operation,
	})
}

// toValidation turns constructor invariant failures into input errors.
func toValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return dErrors.New(dErrors.CodeValidation, de.Message)
		}
	}
	return err
}
