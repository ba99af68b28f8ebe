// Package store provides catalog persistence: an in-memory implementation
// for tests and single-node deployments, and a Postgres implementation.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"till/internal/catalog/models"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
)

// InMemory keeps products in a map guarded by a RWMutex. It favors clarity
// over performance.
type InMemory struct {
	mu       sync.RWMutex
	products map[id.ProductID]models.Product
}

func NewInMemory() *InMemory {
	return &InMemory{products: make(map[id.ProductID]models.Product)}
}

func (s *InMemory) Create(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.products[product.ID] = *product
	return nil
}

func (s *InMemory) Update(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.products[product.ID] = *product
	return nil
}

func (s *InMemory) Delete(_ context.Context, productID id.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, productID id.ProductID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.products[productID]; ok {
		return &p, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(models.Product) bool { return true }), nil
}

func (s *InMemory) ListByCategory(_ context.Context, category string) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(p models.Product) bool {
		return strings.EqualFold(p.Category, category)
	}), nil
}

// Search matches the query case-insensitively against name and barcode.
func (s *InMemory) Search(_ context.Context, query string) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	return s.collect(func(p models.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) || p.Barcode == query
	}), nil
}

// collect must be called while holding at least the read lock. Results are
// sorted by ID for stable listings.
func (s *InMemory) collect(keep func(models.Product) bool) []*models.Product {
	out := make([]*models.Product, 0)
	for _, p := range s.products {
		if keep(p) {
			copied := p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
