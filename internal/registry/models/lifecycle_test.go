package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "purposepay/pkg/domain"
	dErrors "purposepay/pkg/domain-errors"
)

var testAddr = id.MustParseAddress("0x00000000000000000000000000000000000000b1")

func TestBeneficiaryLifecycle(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	b, err := NewBeneficiary(testAddr, now)
	require.NoError(t, err)
	assert.True(t, b.IsActive())
	assert.True(t, b.TotalReceived.IsZero())
	assert.True(t, b.TotalSpent.IsZero())

	require.NoError(t, b.CanRemove())
	b.ApplyRemoval(now.Add(time.Hour))
	assert.False(t, b.IsActive())
	require.NotNil(t, b.RemovedAt)

	err = b.CanRemove()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestBeneficiaryAccumulatorsOnlyGrow(t *testing.T) {
	b, err := NewBeneficiary(testAddr, time.Now())
	require.NoError(t, err)

	require.NoError(t, b.CreditReceived(id.NewAmount(500)))
	require.NoError(t, b.CreditSpent(id.NewAmount(120)))
	require.NoError(t, b.CreditSpent(id.NewAmount(30)))

	assert.Equal(t, "500", b.TotalReceived.String())
	assert.Equal(t, "150", b.TotalSpent.String())
}

func TestNewMerchant(t *testing.T) {
	t.Run("rejects invalid category", func(t *testing.T) {
		_, err := NewMerchant(testAddr, Category(9), "Clinic", time.Now())
		require.Error(t, err)
	})

	t.Run("rejects zero address", func(t *testing.T) {
		_, err := NewMerchant(id.Address{}, CategoryFood, "Grocer", time.Now())
		require.Error(t, err)
	})

	t.Run("trims name", func(t *testing.T) {
		m, err := NewMerchant(testAddr, CategoryFood, "  Grocer  ", time.Now())
		require.NoError(t, err)
		assert.Equal(t, "Grocer", m.Name)
		assert.True(t, m.IsActive())
	})
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusActive.CanTransitionTo(StatusRemoved))
	assert.False(t, StatusRemoved.CanTransitionTo(StatusActive))
	assert.False(t, StatusActive.CanTransitionTo(StatusActive))
}
