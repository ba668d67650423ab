package models

import (
	"time"

	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
)

// Beneficiary is a whitelisted recipient of relief funds.
//
// Invariants:
//   - TotalReceived and TotalSpent never decrease
//   - Status transitions: active -> removed only
//   - RegisteredAt is immutable after construction
//
// TotalReceived - TotalSpent is expected to match the ledger balance, but the
// registry does not enforce it.
type Beneficiary struct {
	Address       id.Address `json:"address"`
	Status        Status     `json:"status"`
	RegisteredAt  time.Time  `json:"registered_at"`
	RemovedAt     *time.Time `json:"removed_at,omitempty"`
	TotalReceived id.Amount  `json:"total_received"`
	TotalSpent    id.Amount  `json:"total_spent"`
}

func NewBeneficiary(addr id.Address, now time.Time) (*Beneficiary, error) {
	if addr.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "beneficiary address cannot be zero")
	}
	return &Beneficiary{
		Address:      addr,
		Status:       StatusActive,
		RegisteredAt: now,
	}, nil
}

func (b *Beneficiary) IsActive() bool {
	return b.Status == StatusActive
}

// CanRemove checks the active -> removed transition.
func (b *Beneficiary) CanRemove() error {
	if !b.Status.CanTransitionTo(StatusRemoved) {
		return dErrors.New(dErrors.CodeInvariantViolation, "beneficiary is not active")
	}
	return nil
}

// ApplyRemoval marks the beneficiary removed. Call CanRemove first.
func (b *Beneficiary) ApplyRemoval(now time.Time) {
	b.Status = StatusRemoved
	b.RemovedAt = &now
}

// CreditReceived adds to TotalReceived.
func (b *Beneficiary) CreditReceived(amount id.Amount) error {
	total, overflow := b.TotalReceived.Add(amount)
	if overflow {
		return dErrors.New(dErrors.CodeInvariantViolation, "total received overflows")
	}
	b.TotalReceived = total
	return nil
}

// CreditSpent adds to TotalSpent.
func (b *Beneficiary) CreditSpent(amount id.Amount) error {
	total, overflow := b.TotalSpent.Add(amount)
	if overflow {
		return dErrors.New(dErrors.CodeInvariantViolation, "total spent overflows")
	}
	b.TotalSpent = total
	return nil
}
