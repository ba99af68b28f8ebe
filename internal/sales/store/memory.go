// Package store persists transaction ledger entries. Both backends expose
// the same surface, including an Execute method that runs a validate and a
// mutate callback while holding the record's lock, so state transitions and
// their preconditions cannot interleave with concurrent writers.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"till/internal/sales/models"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
)

// ListFilter narrows List results. Zero-valued fields match everything.
type ListFilter struct {
	Status     models.Status
	EmployeeID id.UserID
	StoreID    id.StoreID
	From       time.Time
	To         time.Time
	Limit      int
}

func (f ListFilter) matches(t *models.Transaction) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if !f.EmployeeID.IsNil() && t.EmployeeID != f.EmployeeID {
		return false
	}
	if !f.StoreID.IsNil() && t.StoreID != f.StoreID {
		return false
	}
	if !f.From.IsZero() && t.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.CreatedAt.After(f.To) {
		return false
	}
	return true
}

// InMemory keeps transactions in a mutex-guarded map. All reads and writes
// operate on deep copies so callers never share slice storage with the map.
type InMemory struct {
	mu           sync.RWMutex
	transactions map[id.TransactionID]*models.Transaction
}

func NewInMemory() *InMemory {
	return &InMemory{transactions: make(map[id.TransactionID]*models.Transaction)}
}

func (m *InMemory) Create(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[tx.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	m.transactions[tx.ID] = tx.Clone()
	return nil
}

func (m *InMemory) FindByID(_ context.Context, txID id.TransactionID) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return tx.Clone(), nil
}

// List returns matching transactions newest first.
func (m *InMemory) List(_ context.Context, filter ListFilter) ([]*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Transaction, 0, len(m.transactions))
	for _, tx := range m.transactions {
		if filter.matches(tx) {
			result = append(result, tx.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Execute atomically applies a state transition: it holds the store lock
// while validate and mutate run, so no concurrent Execute can observe or
// change the record in between. Validate runs against a working copy; the
// copy replaces the stored record only if validate succeeds, so a validate
// callback with side effects cannot leave a half-applied record behind.
func (m *InMemory) Execute(_ context.Context, txID id.TransactionID,
	validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.transactions[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := stored.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	m.transactions[txID] = working
	return working.Clone(), nil
}
