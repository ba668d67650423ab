package service

import (
	"context"
	"errors"
	"time"

	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/platform/sentinel"
	"purposepay/pkg/requestcontext"
)

// RecordTransfer appends a spending entry for a committed beneficiary ->
// merchant transfer. Only the ledger may call it.
//
// Any other pair is silently skipped: the call succeeds and reports false.
// On append, the sender's TotalSpent grows by amount and the entry carries the
// merchant's category at this moment.
func (s *Service) RecordTransfer(ctx context.Context, caller, from, to id.Address, amount id.Amount) (bool, error) {
	start := time.Now()
	defer s.metrics.ObserveRecordDuration(start)

	if caller != s.roles.Ledger {
		s.rejectCaller(ctx, caller, "record_transfer")
		return false, ErrUnauthorized
	}

	var entry *models.Transaction
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		merchant, err := s.merchants.FindByAddress(txCtx, to)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return errSkip
			}
			return wrapStoreErr(err, "failed to load merchant")
		}
		if !merchant.IsActive() {
			return errSkip
		}

		_, err = s.beneficiaries.Execute(txCtx, from,
			func(b *models.Beneficiary) error {
				if !b.IsActive() {
					return errSkip
				}
				return nil
			},
			func(b *models.Beneficiary) error {
				return b.CreditSpent(amount)
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return errSkip
			}
			return wrapStoreErr(err, "failed to update beneficiary")
		}

		entry = &models.Transaction{
			From:      from,
			To:        to,
			Amount:    amount,
			Category:  merchant.Category,
			Timestamp: requestcontext.Now(txCtx),
			Success:   true,
		}
		if _, err := s.log.Append(txCtx, entry); err != nil {
			return wrapStoreErr(err, "failed to append transaction")
		}
		return nil
	})
	if errors.Is(err, errSkip) {
		s.metrics.IncrementTransferRecord(false)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.metrics.IncrementTransferRecord(true)
	s.auditEmitter.emit(ctx, auditRecord{
		action:      audit.EventTransferRecorded,
		actor:       caller,
		subject:     from,
		counterpart: to,
		amount:      &amount,
		reason:      entry.Category.String(),
	})
	return true, nil
}

// RecordDistribution adds amount to an active beneficiary's TotalReceived.
// Only the administrator may call it. Inactive or unknown beneficiaries are
// silently skipped and false is returned.
func (s *Service) RecordDistribution(ctx context.Context, caller, beneficiary id.Address, amount id.Amount) (bool, error) {
	err := s.creditDistribution(ctx, caller, beneficiary, amount, "record_distribution")
	if errors.Is(err, ErrIdentityNotFound) {
		s.metrics.IncrementDistributionRecord(false)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.metrics.IncrementDistributionRecord(true)
	s.auditEmitter.emit(ctx, auditRecord{
		action:  audit.EventDistributionRecorded,
		actor:   caller,
		subject: beneficiary,
		amount:  &amount,
	})
	return true, nil
}

// CreditDistribution is RecordDistribution without the silent skip: an
// inactive or unknown beneficiary fails with ErrIdentityNotFound. The ledger
// calls it inside its own transaction so minting and accounting commit
// together. It emits no audit event; the caller reports the distribution
// once its transaction has committed.
func (s *Service) CreditDistribution(ctx context.Context, caller, beneficiary id.Address, amount id.Amount) error {
	if err := s.creditDistribution(ctx, caller, beneficiary, amount, "credit_distribution"); err != nil {
		return err
	}
	s.metrics.IncrementDistributionRecord(true)
	return nil
}

func (s *Service) creditDistribution(ctx context.Context, caller, beneficiary id.Address, amount id.Amount, operation string) error {
	if caller != s.roles.Admin {
		s.rejectCaller(ctx, caller, operation)
		return ErrUnauthorized
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		_, err := s.beneficiaries.Execute(txCtx, beneficiary,
			func(b *models.Beneficiary) error {
				if !b.IsActive() {
					return ErrIdentityNotFound
				}
				return nil
			},
			func(b *models.Beneficiary) error {
				return b.CreditReceived(amount)
			},
		)
		return wrapStoreErr(err, "failed to credit beneficiary")
	})
}
