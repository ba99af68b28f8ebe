package stock

import (
	"context"
	"sync"

	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded quantity map. The single lock is what makes
// DecrementAll atomic: validation and mutation happen without interleaving
// with other batches.
type InMemory struct {
	mu         sync.RWMutex
	quantities map[id.ProductID]int
}

func NewInMemory() *InMemory {
	return &InMemory{quantities: make(map[id.ProductID]int)}
}

// Available returns the current quantity. Unknown products report zero
// stock rather than an error; the catalog decides whether a product exists.
func (s *InMemory) Available(_ context.Context, productID id.ProductID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quantities[productID], nil
}

func (s *InMemory) Set(_ context.Context, productID id.ProductID, quantity int) error {
	if quantity < 0 {
		quantity = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quantities[productID] = quantity
	return nil
}

func (s *InMemory) Remove(_ context.Context, productID id.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quantities, productID)
	return nil
}

// DecrementAll validates the whole batch before touching anything, so a
// shortage on the last line leaves the first untouched.
func (s *InMemory) DecrementAll(_ context.Context, movements []Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range movements {
		if s.quantities[m.ProductID] < m.Quantity {
			return sentinel.ErrInsufficientStock
		}
	}
	for _, m := range movements {
		s.quantities[m.ProductID] -= m.Quantity
	}
	return nil
}

func (s *InMemory) IncrementAll(_ context.Context, movements []Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range movements {
		s.quantities[m.ProductID] += m.Quantity
	}
	return nil
}
