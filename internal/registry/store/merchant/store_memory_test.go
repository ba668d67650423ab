package merchant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/sentinel"
)

func newMerchant(t *testing.T, hex string, category models.Category, name string) *models.Merchant {
	t.Helper()
	m, err := models.NewMerchant(id.MustParseAddress(hex), category, name, time.Unix(1_700_000_000, 0).UTC())
	require.NoError(t, err)
	return m
}

func TestInMemoryMerchantStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create find and duplicate", func(t *testing.T) {
		store := NewInMemoryMerchantStore()
		m := newMerchant(t, "0x6000000000000000000000000000000000000001", models.CategoryMedical, "Clinic")
		require.NoError(t, store.Create(ctx, m))

		found, err := store.FindByAddress(ctx, m.Address)
		require.NoError(t, err)
		assert.Equal(t, models.CategoryMedical, found.Category)
		assert.Equal(t, "Clinic", found.Name)

		assert.ErrorIs(t, store.Create(ctx, m), sentinel.ErrAlreadyUsed)
	})

	t.Run("removal keeps category and name", func(t *testing.T) {
		store := NewInMemoryMerchantStore()
		m := newMerchant(t, "0x6000000000000000000000000000000000000002", models.CategoryShelter, "Shelter A")
		require.NoError(t, store.Create(ctx, m))

		removed, err := store.Execute(ctx, m.Address,
			func(m *models.Merchant) error { return m.CanRemove() },
			func(m *models.Merchant) error { m.ApplyRemoval(time.Now()); return nil })
		require.NoError(t, err)
		assert.False(t, removed.IsActive())
		assert.Equal(t, models.CategoryShelter, removed.Category)
		assert.Equal(t, "Shelter A", removed.Name)

		count, err := store.CountActive(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		_, err = store.Execute(ctx, m.Address,
			func(m *models.Merchant) error { return m.CanRemove() },
			func(m *models.Merchant) error { return nil })
		assert.Error(t, err, "second removal fails validation")
	})

	t.Run("list in registration order", func(t *testing.T) {
		store := NewInMemoryMerchantStore()
		first := newMerchant(t, "0x6000000000000000000000000000000000000009", models.CategoryFood, "Grocer")
		second := newMerchant(t, "0x6000000000000000000000000000000000000003", models.CategoryUtilities, "Power Co")
		require.NoError(t, store.Create(ctx, first))
		require.NoError(t, store.Create(ctx, second))

		list, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.Address, list[0].Address)
		assert.Equal(t, second.Address, list[1].Address)
	})

	t.Run("unknown address", func(t *testing.T) {
		store := NewInMemoryMerchantStore()
		_, err := store.FindByAddress(ctx, id.MustParseAddress("0x6000000000000000000000000000000000000004"))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
