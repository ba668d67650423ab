package models

import (
	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
)

var (
	ErrInsufficientBalance = dErrors.New(dErrors.CodeConflict, "insufficient balance")
	ErrBalanceOverflow     = dErrors.New(dErrors.CodeInvariantViolation, "balance overflow")
	ErrSupplyOverflow      = dErrors.New(dErrors.CodeInvariantViolation, "total supply overflow")
)

// Account is an address with its token balance.
type Account struct {
	Address id.Address `json:"address"`
	Balance id.Amount  `json:"balance"`
}

// Debit returns balance - amount, or ErrInsufficientBalance.
func Debit(balance, amount id.Amount) (id.Amount, error) {
	next, underflow := balance.Sub(amount)
	if underflow {
		return id.Amount{}, ErrInsufficientBalance
	}
	return next, nil
}

// Credit returns balance + amount, or ErrBalanceOverflow.
func Credit(balance, amount id.Amount) (id.Amount, error) {
	next, overflow := balance.Add(amount)
	if overflow {
		return id.Amount{}, ErrBalanceOverflow
	}
	return next, nil
}

// GrowSupply returns supply + amount, or ErrSupplyOverflow. Every balance is
// bounded by the supply, so a mint that passes this check cannot overflow a
// balance.
func GrowSupply(supply, amount id.Amount) (id.Amount, error) {
	next, overflow := supply.Add(amount)
	if overflow {
		return id.Amount{}, ErrSupplyOverflow
	}
	return next, nil
}
