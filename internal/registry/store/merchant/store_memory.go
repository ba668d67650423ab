package merchant

import (
	"context"
	"fmt"
	"sync"

	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/sentinel"
)

// InMemoryMerchantStore keeps merchant records in a map plus an
// insertion-ordered key slice for enumeration.
type InMemoryMerchantStore struct {
	mu      sync.RWMutex
	records map[string]*models.Merchant
	order   []string
	active  int
}

func NewInMemoryMerchantStore() *InMemoryMerchantStore {
	return &InMemoryMerchantStore{
		records: make(map[string]*models.Merchant),
	}
}

// Create stores a new record. Returns sentinel.ErrAlreadyUsed if the address
// has ever been registered.
func (s *InMemoryMerchantStore) Create(_ context.Context, m *models.Merchant) error {
	if m == nil {
		return fmt.Errorf("merchant is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.Address.Key()
	if _, exists := s.records[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	stored := *m
	s.records[key] = &stored
	s.order = append(s.order, key)
	if stored.IsActive() {
		s.active++
	}
	return nil
}

func (s *InMemoryMerchantStore) FindByAddress(_ context.Context, addr id.Address) (*models.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.records[addr.Key()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(m), nil
}

// Execute loads the record, runs validate, then mutate, and persists the
// result under one write lock. validate errors are returned unwrapped so
// callers can match their own domain errors.
func (s *InMemoryMerchantStore) Execute(_ context.Context, addr id.Address, validate func(*models.Merchant) error, mutate func(*models.Merchant) error) (*models.Merchant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[addr.Key()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(current)
	if err := validate(working); err != nil {
		return nil, err
	}
	wasActive := working.IsActive()
	if err := mutate(working); err != nil {
		return nil, err
	}
	switch {
	case wasActive && !working.IsActive():
		s.active--
	case !wasActive && working.IsActive():
		s.active++
	}
	s.records[addr.Key()] = working
	return clone(working), nil
}

// List returns every record, active or removed, in registration order.
func (s *InMemoryMerchantStore) List(_ context.Context) ([]*models.Merchant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Merchant, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, clone(s.records[key]))
	}
	return out, nil
}

func (s *InMemoryMerchantStore) CountActive(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, nil
}

func clone(m *models.Merchant) *models.Merchant {
	c := *m
	if m.RemovedAt != nil {
		t := *m.RemovedAt
		c.RemovedAt = &t
	}
	return &c
}
