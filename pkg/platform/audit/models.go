package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers whitelist changes and value movements that a
	// relief program has to account for.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected or unauthorized attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	// Actor is the caller that triggered the action (admin, ledger, sender).
	Actor string `json:"actor,omitempty"`
	// Subject is the identity the action is about.
	Subject string `json:"subject"`
	// Counterpart is the other side of a transfer, when there is one.
	Counterpart string `json:"counterpart,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Reason      string `json:"reason,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

type AuditEvent string

const (
	// Whitelist events
	EventBeneficiaryAdded   AuditEvent = "beneficiary_added"
	EventBeneficiaryRemoved AuditEvent = "beneficiary_removed"
	EventMerchantAdded      AuditEvent = "merchant_added"
	EventMerchantRemoved    AuditEvent = "merchant_removed"

	// Accounting events
	EventTransferRecorded     AuditEvent = "transfer_recorded"
	EventDistributionRecorded AuditEvent = "distribution_recorded"

	// Ledger events
	EventTokensDistributed AuditEvent = "tokens_distributed"
	EventTokensMinted      AuditEvent = "tokens_minted"
	EventTransferDenied    AuditEvent = "transfer_denied"
	EventLedgerPaused      AuditEvent = "ledger_paused"
	EventLedgerUnpaused    AuditEvent = "ledger_unpaused"

	// Access events
	EventUnauthorizedCall AuditEvent = "unauthorized_call"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventBeneficiaryAdded:     CategoryCompliance,
	EventBeneficiaryRemoved:   CategoryCompliance,
	EventMerchantAdded:        CategoryCompliance,
	EventMerchantRemoved:      CategoryCompliance,
	EventDistributionRecorded: CategoryCompliance,
	EventTokensDistributed:    CategoryCompliance,
	EventTokensMinted:         CategoryCompliance,
	EventLedgerPaused:         CategoryCompliance,
	EventLedgerUnpaused:       CategoryCompliance,

	EventTransferDenied:   CategorySecurity,
	EventUnauthorizedCall: CategorySecurity,

	EventTransferRecorded: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink receives a copy of every event after it is stored, e.g. a message bus.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
