//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"till/internal/catalog/models"
	"till/internal/catalog/store"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
	"till/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(s.postgres.Apply(context.Background(), store.Schema))
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "products"))
}

func newTestProduct(productID, name, category, barcode string) *models.Product {
	product, err := models.New(id.ProductID(productID), name, category, barcode,
		decimal.RequireFromString("9.99"), decimal.RequireFromString("7.5"), time.Now().UTC())
	if err != nil {
		panic(err)
	}
	return product
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	product := newTestProduct("p-coffee", "Americano", "drinks", "100")
	s.Require().NoError(s.store.Create(ctx, product))

	found, err := s.store.FindByID(ctx, product.ID)
	s.Require().NoError(err)
	s.Equal(product.ID, found.ID)
	s.Equal("Americano", found.Name)
	s.Equal("drinks", found.Category)
	s.Equal("100", found.Barcode)
	s.True(found.Price.Equal(product.Price), "price survived: %s", found.Price)
	s.True(found.TaxRatePercent.Equal(product.TaxRatePercent))
}

func (s *PostgresStoreSuite) TestConcurrentDuplicateID() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newTestProduct("p-dup", "Americano", "drinks", ""))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyExists):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should win")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	product := newTestProduct("p-1", "Latte", "drinks", "")
	s.Require().NoError(s.store.Create(ctx, product))

	product.Name = "Flat White"
	product.Price = decimal.RequireFromString("11.50")
	s.Require().NoError(s.store.Update(ctx, product))

	found, err := s.store.FindByID(ctx, product.ID)
	s.Require().NoError(err)
	s.Equal("Flat White", found.Name)
	s.True(found.Price.Equal(decimal.RequireFromString("11.50")))

	s.Require().NoError(s.store.Delete(ctx, product.ID))
	_, err = s.store.FindByID(ctx, product.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Update(ctx, product), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, product.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestQueries() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newTestProduct("p-1", "Latte", "Drinks", "100")))
	s.Require().NoError(s.store.Create(ctx, newTestProduct("p-2", "Americano", "drinks", "200")))
	s.Require().NoError(s.store.Create(ctx, newTestProduct("p-3", "Bagel", "food", "300")))

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(all, 3)

	s.Run("category matching is case-insensitive", func() {
		drinks, err := s.store.ListByCategory(ctx, "DRINKS")
		s.Require().NoError(err)
		s.Len(drinks, 2)
	})

	s.Run("search matches name substrings case-insensitively", func() {
		found, err := s.store.Search(ctx, "lat")
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal("Latte", found[0].Name)
	})

	s.Run("search matches exact barcodes", func() {
		found, err := s.store.Search(ctx, "300")
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal("Bagel", found[0].Name)
	})
}
