package authorizer

// Reason explains a transfer decision.
type Reason string

const (
	// ReasonUnrestrictedSender: the sender is not an active beneficiary, so
	// the whitelist does not apply.
	ReasonUnrestrictedSender Reason = "unrestricted_sender"
	// ReasonApprovedMerchant: beneficiary paying an active merchant.
	ReasonApprovedMerchant Reason = "approved_merchant"
	// ReasonRecipientNotMerchant: beneficiary paying anyone else.
	ReasonRecipientNotMerchant Reason = "recipient_not_merchant"
)

// Decision is the outcome of the transfer rule.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

// Facts are the whitelist memberships the rule depends on.
type Facts struct {
	SenderActiveBeneficiary bool
	RecipientActiveMerchant bool
}

// Evaluate applies the purpose-bound spending rule.
// Pure: no I/O, no clock, no caller identity.
//
// Rule priority:
//  1. Sender outside the beneficiary whitelist -> allow
//  2. Recipient an active merchant -> allow
//  3. Otherwise -> deny
func Evaluate(facts Facts) Decision {
	if !facts.SenderActiveBeneficiary {
		return Decision{Allowed: true, Reason: ReasonUnrestrictedSender}
	}
	if facts.RecipientActiveMerchant {
		return Decision{Allowed: true, Reason: ReasonApprovedMerchant}
	}
	return Decision{Allowed: false, Reason: ReasonRecipientNotMerchant}
}
