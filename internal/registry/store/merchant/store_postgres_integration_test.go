//go:build integration

package merchant_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"purposepay/internal/registry/models"
	"purposepay/internal/registry/store/merchant"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/sentinel"
	"purposepay/pkg/testutil/containers"
)

type PostgresMerchantStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *merchant.PostgresStore
}

func TestPostgresMerchantStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresMerchantStoreSuite))
}

func (s *PostgresMerchantStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = merchant.NewPostgres(s.postgres.DB)
}

func (s *PostgresMerchantStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "merchants"))
}

func (s *PostgresMerchantStoreSuite) TestCreateRemoveAndFind() {
	ctx := context.Background()
	addr := id.MustParseAddress("0x9000000000000000000000000000000000000001")
	m, err := models.NewMerchant(addr, models.CategoryEducation, "Books & Co", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, m))
	s.ErrorIs(s.store.Create(ctx, m), sentinel.ErrAlreadyUsed)

	_, err = s.store.Execute(ctx, addr,
		func(m *models.Merchant) error { return m.CanRemove() },
		func(m *models.Merchant) error { m.ApplyRemoval(time.Now()); return nil })
	s.Require().NoError(err)

	found, err := s.store.FindByAddress(ctx, addr)
	s.Require().NoError(err)
	s.False(found.IsActive())
	s.Equal(models.CategoryEducation, found.Category)
	s.Equal("Books & Co", found.Name)

	count, err := s.store.CountActive(ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *PostgresMerchantStoreSuite) TestFindUnknown() {
	_, err := s.store.FindByAddress(context.Background(), id.MustParseAddress("0x9000000000000000000000000000000000000002"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
