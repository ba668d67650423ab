package store

import (
	"context"
	"sync"

	"purposepay/internal/ledger/models"
	id "purposepay/pkg/domain"
)

// InMemoryBalanceStore keeps balances in a map keyed by lowercase address.
// Every mutation validates fully before writing, so a failed call changes
// nothing.
type InMemoryBalanceStore struct {
	mu       sync.RWMutex
	balances map[string]id.Amount
	supply   id.Amount
}

func NewInMemoryBalanceStore() *InMemoryBalanceStore {
	return &InMemoryBalanceStore{balances: make(map[string]id.Amount)}
}

func (s *InMemoryBalanceStore) BalanceOf(_ context.Context, addr id.Address) (id.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[addr.Key()], nil
}

func (s *InMemoryBalanceStore) TotalSupply(_ context.Context) (id.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.supply, nil
}

func (s *InMemoryBalanceStore) Mint(_ context.Context, to id.Address, amount id.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	supply, err := models.GrowSupply(s.supply, amount)
	if err != nil {
		return err
	}
	balance, err := models.Credit(s.balances[to.Key()], amount)
	if err != nil {
		return err
	}
	s.supply = supply
	s.balances[to.Key()] = balance
	return nil
}

func (s *InMemoryBalanceStore) Move(_ context.Context, from, to id.Address, amount id.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	debited, err := models.Debit(s.balances[from.Key()], amount)
	if err != nil {
		return err
	}
	if from.Key() == to.Key() {
		return nil
	}
	credited, err := models.Credit(s.balances[to.Key()], amount)
	if err != nil {
		return err
	}
	s.balances[from.Key()] = debited
	s.balances[to.Key()] = credited
	return nil
}
