package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "purposepay/pkg/domain-errors"
)

// Address is an account identity: a 20-byte, EVM-style address.
// Invariant: an Address obtained through ParseAddress is never the zero address.
//
// Usage: construct via ParseAddress at trust boundaries; direct conversion from
// common.Address is reserved for trusted sources (config, stores).
type Address common.Address

// ParseAddress parses a 0x-prefixed hex address.
//
// Errors: returns CodeInvalidInput when the input is empty, malformed or the
// zero address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if !common.IsHexAddress(s) {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "invalid address format")
	}
	addr := Address(common.HexToAddress(s))
	if addr.IsZero() {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "zero address is not allowed")
	}
	return addr, nil
}

// MustParseAddress panics on invalid input. Intended for tests and constants.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// String returns the EIP-55 checksummed hex form.
func (a Address) String() string {
	return common.Address(a).Hex()
}

// Key returns the lowercase hex form used as a storage key.
func (a Address) Key() string {
	return strings.ToLower(common.Address(a).Hex())
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
