package service

import (
	"context"
	"errors"

	"purposepay/internal/authorizer"
	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
	"purposepay/pkg/platform/sentinel"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// IsActiveBeneficiary implements the authorizer's whitelist view.
func (s *Service) IsActiveBeneficiary(ctx context.Context, addr id.Address) (bool, error) {
	b, err := s.beneficiaries.FindByAddress(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapStoreErr(err, "failed to load beneficiary")
	}
	return b.IsActive(), nil
}

// IsActiveMerchant implements the authorizer's whitelist view.
func (s *Service) IsActiveMerchant(ctx context.Context, addr id.Address) (bool, error) {
	m, err := s.merchants.FindByAddress(ctx, addr)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapStoreErr(err, "failed to load merchant")
	}
	return m.IsActive(), nil
}

// Decide runs the transfer rule against committed whitelist state.
func (s *Service) Decide(ctx context.Context, sender, recipient id.Address) (authorizer.Decision, error) {
	var decision authorizer.Decision
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		decision, err = s.authorizer.Decide(txCtx, sender, recipient)
		return err
	})
	return decision, err
}

// IsAllowed reports whether sender may pay recipient.
func (s *Service) IsAllowed(ctx context.Context, sender, recipient id.Address) (bool, error) {
	decision, err := s.Decide(ctx, sender, recipient)
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}

// ListBeneficiaries returns every beneficiary ever registered, in
// registration order.
func (s *Service) ListBeneficiaries(ctx context.Context) ([]*models.Beneficiary, error) {
	list, err := s.beneficiaries.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list beneficiaries")
	}
	return list, nil
}

func (s *Service) ListMerchants(ctx context.Context) ([]*models.Merchant, error) {
	list, err := s.merchants.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list merchants")
	}
	return list, nil
}

// GetBeneficiary returns the record for addr, active or removed.
func (s *Service) GetBeneficiary(ctx context.Context, addr id.Address) (*models.Beneficiary, error) {
	b, err := s.beneficiaries.FindByAddress(ctx, addr)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load beneficiary")
	}
	return b, nil
}

func (s *Service) GetMerchant(ctx context.Context, addr id.Address) (*models.Merchant, error) {
	m, err := s.merchants.FindByAddress(ctx, addr)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load merchant")
	}
	return m, nil
}

func (s *Service) TransactionCount(ctx context.Context) (uint64, error) {
	count, err := s.log.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count transactions")
	}
	return count, nil
}

// GetTransaction fails with ErrIndexOutOfRange when index >= count.
func (s *Service) GetTransaction(ctx context.Context, index uint64) (*models.Transaction, error) {
	tx, err := s.log.Get(ctx, index)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrIndexOutOfRange
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transaction")
	}
	return tx, nil
}

// RecentTransactions returns the last n entries, oldest first. n is clamped
// to the log length.
func (s *Service) RecentTransactions(ctx context.Context, n int) ([]*models.Transaction, error) {
	if n < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "count must not be negative")
	}
	var out []*models.Transaction
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := s.log.Count(txCtx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count transactions")
		}
		take := min(uint64(n), count)
		out, err = s.log.Range(txCtx, count-take, int(take))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read transactions")
		}
		return nil
	})
	return out, err
}

// ListTransactions pages through the log from cursor (an index). NextCursor
// is nil on the last page.
func (s *Service) ListTransactions(ctx context.Context, cursor uint64, limit int) (*models.Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	entries, err := s.log.Range(ctx, cursor, limit+1)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read transactions")
	}
	page := &models.Page{Transactions: entries}
	if len(entries) > limit {
		page.Transactions = entries[:limit]
		next := entries[limit].Index
		page.NextCursor = &next
	}
	return page, nil
}

// TransactionsBySender lists a beneficiary's spending, oldest first.
func (s *Service) TransactionsBySender(ctx context.Context, sender id.Address) ([]*models.Transaction, error) {
	list, err := s.log.ListBySender(ctx, sender)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read transactions")
	}
	return list, nil
}

// TransactionsByMerchant lists payments received by a merchant, oldest first.
func (s *Service) TransactionsByMerchant(ctx context.Context, merchant id.Address) ([]*models.Transaction, error) {
	list, err := s.log.ListByMerchant(ctx, merchant)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read transactions")
	}
	return list, nil
}

// Stats reads the three counters in one transaction.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if stats.ActiveBeneficiaries, err = s.beneficiaries.CountActive(txCtx); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count beneficiaries")
		}
		if stats.ActiveMerchants, err = s.merchants.CountActive(txCtx); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count merchants")
		}
		if stats.Transactions, err = s.log.Count(txCtx); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count transactions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// CategoryName maps a raw category code to its display name, or "UNKNOWN".
func (s *Service) CategoryName(code int) string {
	if code < 0 || code > 255 {
		return models.UnknownCategoryName
	}
	return models.CategoryName(models.Category(code))
}
