package beneficiary

import (
	"context"
	"fmt"
	"sync"

	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/sentinel"
)

// InMemoryBeneficiaryStore keeps beneficiary records in a map plus an
// insertion-ordered key slice for enumeration.
type InMemoryBeneficiaryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Beneficiary
	order   []string
	active  int
}

func NewInMemoryBeneficiaryStore() *InMemoryBeneficiaryStore {
	return &InMemoryBeneficiaryStore{
		records: make(map[string]*models.Beneficiary),
	}
}

// Create stores a new record. Returns sentinel.ErrAlreadyUsed if the address
// has ever been registered.
func (s *InMemoryBeneficiaryStore) Create(_ context.Context, b *models.Beneficiary) error {
	if b == nil {
		return fmt.Errorf("beneficiary is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := b.Address.Key()
	if _, exists := s.records[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	stored := *b
	s.records[key] = &stored
	s.order = append(s.order, key)
	if stored.IsActive() {
		s.active++
	}
	return nil
}

func (s *InMemoryBeneficiaryStore) FindByAddress(_ context.Context, addr id.Address) (*models.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.records[addr.Key()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(b), nil
}

// Execute loads the record, runs validate, then mutate, and persists the
// result under one write lock. validate errors are returned unwrapped so
// callers can match their own domain errors.
func (s *InMemoryBeneficiaryStore) Execute(_ context.Context, addr id.Address, validate func(*models.Beneficiary) error, mutate func(*models.Beneficiary) error) (*models.Beneficiary, error) {
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
func (s *InMemoryBeneficiaryStore) List(_ context.Context) ([]*models.Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Beneficiary, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, clone(s.records[key]))
	}
	return out, nil
}

func (s *InMemoryBeneficiaryStore) CountActive(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, nil
}

func clone(b *models.Beneficiary) *models.Beneficiary {
	c := *b
	if b.RemovedAt != nil {
		t := *b.RemovedAt
		c.RemovedAt = &t
	}
	return &c
}
