package domain

import (
	"strings"

	"github.com/holiman/uint256"

	dErrors "purposepay/pkg/domain-errors"
)

// Amount is a non-negative token quantity in the smallest unit.
// The zero value is zero. Amount is immutable: arithmetic returns new values.
type Amount struct {
	v uint256.Int
}

// NewAmount builds an Amount from a uint64.
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// ParseAmount parses a base-10 integer string.
//
// Errors: returns CodeInvalidInput when the input is empty, negative, not an
// integer or larger than 2^256-1.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be empty")
	}
	if s[0] == '-' || s[0] == '+' {
		return Amount{}, dErrors.New(dErrors.CodeInvalidInput, "amount must be an unsigned integer")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid amount")
	}
	return Amount{v: *v}, nil
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Add returns a+b and reports overflow.
func (a Amount) Add(b Amount) (Amount, bool) {
	var out Amount
	_, overflow := out.v.AddOverflow(&a.v, &b.v)
	return out, overflow
}

// Sub returns a-b and reports underflow.
func (a Amount) Sub(b Amount) (Amount, bool) {
	var out Amount
	_, underflow := out.v.SubOverflow(&a.v, &b.v)
	return out, underflow
}

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.v.Dec()
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
