package handler

import (
	"strings"

	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
)

// IssueRequest is the body of POST /admin/ledger/distribute and
// POST /admin/ledger/mint.
type IssueRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`

	parsedTo     id.Address
	parsedAmount id.Amount
}

func (r *IssueRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	to, amount, err := parseTarget(r.To, r.Amount)
	if err != nil {
		return err
	}
	r.parsedTo, r.parsedAmount = to, amount
	return nil
}

// TransferRequest is the body of POST /ledger/transfer. The sender is the
// authenticated caller.
type TransferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`

	parsedTo     id.Address
	parsedAmount id.Amount
}

func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	to, amount, err := parseTarget(r.To, r.Amount)
	if err != nil {
		return err
	}
	r.parsedTo, r.parsedAmount = to, amount
	return nil
}

func parseTarget(rawTo, rawAmount string) (id.Address, id.Amount, error) {
	rawTo = strings.TrimSpace(rawTo)
	if rawTo == "" {
		return id.Address{}, id.Amount{}, dErrors.New(dErrors.CodeValidation, "to is required")
	}
	to, err := id.ParseAddress(rawTo)
	if err != nil {
		return id.Address{}, id.Amount{}, dErrors.New(dErrors.CodeValidation, "to is not a valid address")
	}
	amount, err := id.ParseAmount(rawAmount)
	if err != nil {
		return id.Address{}, id.Amount{}, err
	}
	return to, amount, nil
}
