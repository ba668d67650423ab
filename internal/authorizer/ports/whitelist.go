package ports

import (
	"context"

	id "purposepay/pkg/domain"
)

// WhitelistView answers the two membership questions the transfer rule needs.
// The registry implements it; the authorizer never sees registry records.
type WhitelistView interface {
	IsActiveBeneficiary(ctx context.Context, addr id.Address) (bool, error)
	IsActiveMerchant(ctx context.Context, addr id.Address) (bool, error)
}
