package handler

import (
	"strings"

	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
)

// AddBeneficiaryRequest is the body of POST /admin/beneficiaries.
type AddBeneficiaryRequest struct {
	Address string `json:"address"`

	parsedAddress id.Address
}

func (r *AddBeneficiaryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	addr, err := parseRequiredAddress("address", r.Address)
	if err != nil {
		return err
	}
	r.parsedAddress = addr
	return nil
}

// AddMerchantRequest is the body of POST /admin/merchants. Category accepts
// the enum name ("FOOD") case-insensitively.
type AddMerchantRequest struct {
	Address  string `json:"address"`
	Category string `json:"category"`
	Name     string `json:"name"`

	parsedAddress  id.Address
	parsedCategory models.Category
}

func (r *AddMerchantRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if len(r.Name) > models.MaxMerchantNameLength {
		return dErrors.Newf(dErrors.CodeValidation, "name must be %d characters or less", models.MaxMerchantNameLength)
	}
	addr, err := parseRequiredAddress("address", r.Address)
	if err != nil {
		return err
	}
	r.parsedAddress = addr

	r.Category = strings.TrimSpace(r.Category)
	if r.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required")
	}
	category, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	r.parsedCategory = category
	r.Name = strings.TrimSpace(r.Name)
	return nil
}

// AmountRequest is shared by the distribution and transfer hook bodies.
type AmountRequest struct {
	Amount string `json:"amount"`

	parsedAmount id.Amount
}

func (r *AmountRequest) parseAmount() error {
	r.Amount = strings.TrimSpace(r.Amount)
	if r.Amount == "" {
		return dErrors.New(dErrors.CodeValidation, "amount is required")
	}
	amount, err := id.ParseAmount(r.Amount)
	if err != nil {
		return err
	}
	r.parsedAmount = amount
	return nil
}

// RecordDistributionRequest is the body of POST /admin/distributions.
type RecordDistributionRequest struct {
	Beneficiary string `json:"beneficiary"`
	AmountRequest

	parsedBeneficiary id.Address
}

func (r *RecordDistributionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	addr, err := parseRequiredAddress("beneficiary", r.Beneficiary)
	if err != nil {
		return err
	}
	r.parsedBeneficiary = addr
	return r.parseAmount()
}

// RecordTransferRequest is the body of POST /hooks/transfers.
type RecordTransferRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	AmountRequest

	parsedFrom id.Address
	parsedTo   id.Address
}

func (r *RecordTransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	from, err := parseRequiredAddress("from", r.From)
	if err != nil {
		return err
	}
	to, err := parseRequiredAddress("to", r.To)
	if err != nil {
		return err
	}
	r.parsedFrom, r.parsedTo = from, to
	return r.parseAmount()
}

func parseRequiredAddress(field, raw string) (id.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return id.Address{}, dErrors.Newf(dErrors.CodeValidation, "%s is required", field)
	}
	addr, err := id.ParseAddress(raw)
	if err != nil {
		return id.Address{}, dErrors.Newf(dErrors.CodeValidation, "%s is not a valid address", field)
	}
	return addr, nil
}
