package txlog

import (
	"context"
	"fmt"
	"sync"

	"purposepay/internal/registry/models"
	id "purposepay/pkg/domain"
	"purposepay/pkg/platform/sentinel"
)

// InMemoryTransactionLog is an append-only slice; the slice position is the
// transaction index.
type InMemoryTransactionLog struct {
	mu      sync.RWMutex
	entries []models.Transaction
}

func NewInMemoryTransactionLog() *InMemoryTransactionLog {
	return &InMemoryTransactionLog{}
}

// Append assigns the next index to tx and stores a copy.
func (l *InMemoryTransactionLog) Append(_ context.Context, tx *models.Transaction) (uint64, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	tx.Index = uint64(len(l.entries))
	l.entries = append(l.entries, *tx)
	return tx.Index, nil
}

func (l *InMemoryTransactionLog) Get(_ context.Context, index uint64) (*models.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index >= uint64(len(l.entries)) {
		return nil, sentinel.ErrNotFound
	}
	entry := l.entries[index]
	return &entry, nil
}

func (l *InMemoryTransactionLog) Count(_ context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.entries)), nil
}

// Range returns up to limit entries starting at index from, oldest first.
func (l *InMemoryTransactionLog) Range(_ context.Context, from uint64, limit int) ([]*models.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := uint64(len(l.entries))
	if from >= total || limit <= 0 {
		return []*models.Transaction{}, nil
	}
	end := min(from+uint64(limit), total)
	out := make([]*models.Transaction, 0, end-from)
	for i := from; i < end; i++ {
		entry := l.entries[i]
		out = append(out, &entry)
	}
	return out, nil
}

func (l *InMemoryTransactionLog) ListBySender(_ context.Context, from id.Address) ([]*models.Transaction, error) {
	return l.filter(func(tx *models.Transaction) bool { return tx.From == from }), nil
}

func (l *InMemoryTransactionLog) ListByMerchant(_ context.Context, to id.Address) ([]*models.Transaction, error) {
	return l.filter(func(tx *models.Transaction) bool { return tx.To == to }), nil
}

func (l *InMemoryTransactionLog) filter(keep func(*models.Transaction) bool) []*models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := []*models.Transaction{}
	for i := range l.entries {
		entry := l.entries[i]
		if keep(&entry) {
			out = append(out, &entry)
		}
	}
	return out
}
