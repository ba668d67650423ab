package handler

import (
	"purposepay/internal/authorizer"
	"purposepay/internal/registry/models"
)

// DecisionResponse is returned by GET /authorize.
type DecisionResponse struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func fromDecision(from, to string, d authorizer.Decision) *DecisionResponse {
	return &DecisionResponse{From: from, To: to, Allowed: d.Allowed, Reason: string(d.Reason)}
}

// RecordResponse reports whether an accounting call changed registry state.
// Recorded is false when the call was a silent no-op.
type RecordResponse struct {
	Recorded bool `json:"recorded"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

type CategoryResponse struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type BeneficiaryListResponse struct {
	Beneficiaries []*models.Beneficiary `json:"beneficiaries"`
}

type MerchantListResponse struct {
	Merchants []*models.Merchant `json:"merchants"`
}

type TransactionListResponse struct {
	Transactions []*models.Transaction `json:"transactions"`
}

// emptyIfNil keeps list responses rendering as [] rather than null.
func emptyIfNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
