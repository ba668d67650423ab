package models

import (
	"strings"
	"time"

	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
)

// MaxMerchantNameLength bounds the trimmed display name, in bytes.
const MaxMerchantNameLength = 128

// Merchant is a vendor approved to receive beneficiary spending.
//
// Invariants:
//   - Category and Name are fixed at registration
//   - Status transitions: active -> removed only
type Merchant struct {
	Address      id.Address `json:"address"`
	Status       Status     `json:"status"`
	Category     Category   `json:"category"`
	Name         string     `json:"name"`
	RegisteredAt time.Time  `json:"registered_at"`
	RemovedAt    *time.Time `json:"removed_at,omitempty"`
}

func NewMerchant(addr id.Address, category Category, name string, now time.Time) (*Merchant, error) {
	if addr.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "merchant address cannot be zero")
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "merchant category is invalid")
	}
	name = strings.TrimSpace(name)
	if len(name) > MaxMerchantNameLength {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "merchant name must be %d characters or less", MaxMerchantNameLength)
	}
	return &Merchant{
		Address:      addr,
		Status:       StatusActive,
		Category:     category,
		Name:         name,
		RegisteredAt: now,
	}, nil
}

func (m *Merchant) IsActive() bool {
	return m.Status == StatusActive
}

// CanRemove checks the active -> removed transition.
func (m *Merchant) CanRemove() error {
	if !m.Status.CanTransitionTo(StatusRemoved) {
		return dErrors.New(dErrors.CodeInvariantViolation, "merchant is not active")
	}
	return nil
}

// ApplyRemoval marks the merchant removed. Call CanRemove first.
func (m *Merchant) ApplyRemoval(now time.Time) {
	m.Status = StatusRemoved
	m.RemovedAt = &now
}
