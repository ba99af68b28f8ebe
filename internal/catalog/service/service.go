// Package service orchestrates catalog operations and keeps the HTTP layer
// free of business rules.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"till/internal/audit"
	"till/internal/catalog/models"
	"till/internal/stock"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/platform/sentinel"
	"till/pkg/requestcontext"
)

// Store is the persistence port the catalog service needs.
type Store interface {
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, productID id.ProductID) error
	FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error)
	List(ctx context.Context) ([]*models.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*models.Product, error)
	Search(ctx context.Context, query string) ([]*models.Product, error)
}

// CreateProductInput carries everything needed to add a product. An absent
// ID gets one derived from the barcode or name is not attempted; callers
// must supply an explicit ID (barcodes make natural ones).
type CreateProductInput struct {
	ID             id.ProductID
	Name           string
	Category       string
	Barcode        string
	Price          decimal.Decimal
	TaxRatePercent decimal.Decimal
	InitialStock   int
}

// UpdateProductInput carries replacement field values for a product.
type UpdateProductInput struct {
	Name           string
	Category       string
	Barcode        string
	Price          decimal.Decimal
	TaxRatePercent decimal.Decimal
}

type Service struct {
	store   Store
	ledger  stock.Ledger
	logger  *slog.Logger
	auditor *audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(a *audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func New(store Store, ledger stock.Ledger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger is required")
	}
	svc := &Service{store: store, ledger: ledger, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create validates, persists, and seeds the stock ledger with the initial
// quantity.
func (s *Service) Create(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	productID, err := id.ParseProductID(in.ID.String())
	if err != nil {
		return nil, err
	}
	if in.InitialStock < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "initial stock must not be negative")
	}

	product, err := models.New(productID, in.Name, in.Category, in.Barcode,
		in.Price, in.TaxRatePercent, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, product); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "product %s already exists", productID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create product")
	}

	if err := s.ledger.Set(ctx, productID, in.InitialStock); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed stock")
	}

	s.emit(ctx, audit.ActionProductCreated, productID.String(), product.Name)
	return product, nil
}

func (s *Service) Update(ctx context.Context, productID id.ProductID, in UpdateProductInput) (*models.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := product.Update(in.Name, in.Category, in.Barcode, in.Price, in.TaxRatePercent, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, product); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "product %s not found", productID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update product")
	}
	s.emit(ctx, audit.ActionProductUpdated, productID.String(), product.Name)
	return product, nil
}

// Delete removes the product and drops its stock row. Past transactions
// keep their line snapshots; deleting a product never rewrites history.
func (s *Service) Delete(ctx context.Context, productID id.ProductID) error {
	if err := s.store.Delete(ctx, productID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "product %s not found", productID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete product")
	}
	if err := s.ledger.Remove(ctx, productID); err != nil {
		s.logger.WarnContext(ctx, "orphaned stock row after product delete",
			"product_id", productID.String(),
			"error", err,
		)
	}
	s.emit(ctx, audit.ActionProductDeleted, productID.String(), "")
	return nil
}

func (s *Service) Get(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	product, err := s.store.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "product %s not found", productID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
	}
	return product, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Product, error) {
	products, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
	}
	return products, nil
}

func (s *Service) ListByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	if strings.TrimSpace(category) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "category must not be empty")
	}
	products, err := s.store.ListByCategory(ctx, category)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products by category")
	}
	return products, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]*models.Product, error) {
	if strings.TrimSpace(query) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "search query must not be empty")
	}
	products, err := s.store.Search(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search products")
	}
	return products, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, subject, detail string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, action, subject, detail); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", string(action),
			"subject", subject,
			"error", err,
		)
	}
}

// Available exposes the ledger quantity for a known product.
func (s *Service) Available(ctx context.Context, productID id.ProductID) (int, error) {
	if _, err := s.Get(ctx, productID); err != nil {
		return 0, err
	}
	qty, err := s.ledger.Available(ctx, productID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read stock")
	}
	return qty, nil
}
