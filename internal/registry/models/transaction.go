package models

import (
	"time"

	id "purposepay/pkg/domain"
)

// Transaction is one entry of the append-only spending log.
// Category is a snapshot of the merchant's category when the entry was recorded.
// Entries are never mutated after append; Index is assigned by the store.
type Transaction struct {
	Index     uint64     `json:"index"`
	From      id.Address `json:"from"`
	To        id.Address `json:"to"`
	Amount    id.Amount  `json:"amount"`
	Category  Category   `json:"category"`
	Timestamp time.Time  `json:"timestamp"`
	Success   bool       `json:"success"`
}

// Stats summarizes registry size.
type Stats struct {
	ActiveBeneficiaries int    `json:"active_beneficiaries"`
	ActiveMerchants     int    `json:"active_merchants"`
	Transactions        uint64 `json:"transactions"`
}

// Page is a cursor-paginated slice of the transaction log.
type Page struct {
	Transactions []*Transaction `json:"transactions"`
	NextCursor   *uint64        `json:"next_cursor,omitempty"`
}
