//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"purposepay/internal/ledger/models"
	"purposepay/internal/ledger/store"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/tx"
	"purposepay/pkg/testutil/containers"
)

var (
	alice = id.MustParseAddress("0xa11ce00000000000000000000000000000000001")
	bob   = id.MustParseAddress("0xb0b0000000000000000000000000000000000001")
)

type PostgresBalanceStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresBalanceStore
}

func TestPostgresBalanceStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresBalanceStoreSuite))
}

func (s *PostgresBalanceStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresBalanceStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "ledger_balances"))
}

func (s *PostgresBalanceStoreSuite) balance(addr id.Address) string {
	b, err := s.store.BalanceOf(context.Background(), addr)
	s.Require().NoError(err)
	return b.String()
}

func (s *PostgresBalanceStoreSuite) TestMintAndMove() {
	ctx := context.Background()
	s.Require().NoError(s.store.Mint(ctx, alice, id.NewAmount(100)))
	s.Require().NoError(s.store.Move(ctx, alice, bob, id.NewAmount(25)))

	s.Equal("75", s.balance(alice))
	s.Equal("25", s.balance(bob))
	supply, err := s.store.TotalSupply(ctx)
	s.Require().NoError(err)
	s.Equal("100", supply.String())

	s.ErrorIs(s.store.Move(ctx, bob, alice, id.NewAmount(26)), models.ErrInsufficientBalance)
	s.Equal("25", s.balance(bob))
}

func (s *PostgresBalanceStoreSuite) TestRollbackWithCallerTransaction() {
	runner := tx.NewPostgresRunner(s.postgres.DB)
	err := runner.RunInTx(context.Background(), func(txCtx context.Context) error {
		if err := s.store.Mint(txCtx, alice, id.NewAmount(10)); err != nil {
			return err
		}
		return s.store.Move(txCtx, alice, bob, id.NewAmount(11))
	})
	s.ErrorIs(err, models.ErrInsufficientBalance)
	s.Equal("0", s.balance(alice))
	supply, err := s.store.TotalSupply(context.Background())
	s.Require().NoError(err)
	s.True(supply.IsZero())
}

func (s *PostgresBalanceStoreSuite) TestConcurrentOppositeMoves() {
	ctx := context.Background()
	s.Require().NoError(s.store.Mint(ctx, alice, id.NewAmount(100)))
	s.Require().NoError(s.store.Mint(ctx, bob, id.NewAmount(100)))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				s.NoError(s.store.Move(ctx, alice, bob, id.NewAmount(1)))
			} else {
				s.NoError(s.store.Move(ctx, bob, alice, id.NewAmount(1)))
			}
		}()
	}
	wg.Wait()

	s.Equal("100", s.balance(alice))
	s.Equal("100", s.balance(bob))
}
