package authorizer

//go:generate mockgen -source=ports/whitelist.go -destination=ports/mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"purposepay/internal/authorizer/ports/mocks"
	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
	"purposepay/pkg/testutil"
)

var (
	beneficiary = id.MustParseAddress("0xb100000000000000000000000000000000000001")
	merchant    = id.MustParseAddress("0xb200000000000000000000000000000000000001")
	stranger    = id.MustParseAddress("0xb300000000000000000000000000000000000001")
)

func TestServiceDecide(t *testing.T) {
	ctx := context.Background()

	testutil.Given(t, "a sender that is not a beneficiary", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		view := mocks.NewMockWhitelistView(ctrl)
		view.EXPECT().IsActiveBeneficiary(gomock.Any(), stranger).Return(false, nil)
		svc := New(view)

		testutil.Then(t, "the transfer is allowed without a merchant lookup", func(t *testing.T) {
			decision, err := svc.Decide(ctx, stranger, beneficiary)
			require.NoError(t, err)
			assert.Equal(t, Decision{Allowed: true, Reason: ReasonUnrestrictedSender}, decision)
		})
	})

	testutil.Given(t, "an active beneficiary", func(t *testing.T) {
		testutil.When(t, "paying an active merchant", func(t *testing.T) {
			ctrl := gomock.NewController(t)
			view := mocks.NewMockWhitelistView(ctrl)
			view.EXPECT().IsActiveBeneficiary(gomock.Any(), beneficiary).Return(true, nil)
			view.EXPECT().IsActiveMerchant(gomock.Any(), merchant).Return(true, nil)

			allowed, err := New(view).IsAllowed(ctx, beneficiary, merchant)
			require.NoError(t, err)
			assert.True(t, allowed)
		})

		testutil.When(t, "paying an address that is not a merchant", func(t *testing.T) {
			ctrl := gomock.NewController(t)
			view := mocks.NewMockWhitelistView(ctrl)
			view.EXPECT().IsActiveBeneficiary(gomock.Any(), beneficiary).Return(true, nil)
			view.EXPECT().IsActiveMerchant(gomock.Any(), stranger).Return(false, nil)

			decision, err := New(view).Decide(ctx, beneficiary, stranger)
			require.NoError(t, err)
			assert.False(t, decision.Allowed)
			assert.Equal(t, ReasonRecipientNotMerchant, decision.Reason)
		})
	})

	testutil.Given(t, "a failing whitelist view", func(t *testing.T) {
		testutil.Then(t, "plain errors are wrapped as internal", func(t *testing.T) {
			ctrl := gomock.NewController(t)
			view := mocks.NewMockWhitelistView(ctrl)
			view.EXPECT().IsActiveBeneficiary(gomock.Any(), beneficiary).Return(false, errors.New("connection reset"))

			_, err := New(view).Decide(ctx, beneficiary, merchant)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
		})

		testutil.Then(t, "coded errors pass through", func(t *testing.T) {
			ctrl := gomock.NewController(t)
			view := mocks.NewMockWhitelistView(ctrl)
			view.EXPECT().IsActiveBeneficiary(gomock.Any(), beneficiary).Return(true, nil)
			view.EXPECT().IsActiveMerchant(gomock.Any(), merchant).
				Return(false, dErrors.New(dErrors.CodeUnavailable, "store unavailable"))

			allowed, err := New(view).IsAllowed(ctx, beneficiary, merchant)
			require.Error(t, err)
			assert.False(t, allowed)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		})
	})
}
