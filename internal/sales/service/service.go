// Package service orchestrates the transaction lifecycle: drafting a
// pending entry from a cart, recording payments, and driving the
// pending/completed/voided state machine.
//
// State transitions run through the store's Execute callback so the
// precondition check and the mutation happen under the record's lock. Stock
// movements ride inside the validate callback: a completion only commits if
// the ledger accepts the whole batch decrement.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"till/internal/audit"
	"till/internal/cart"
	"till/internal/platform/metrics"
	"till/internal/sales/models"
	"till/internal/sales/store"
	"till/internal/stock"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/platform/sentinel"
	"till/pkg/requestcontext"
)

// Store is the persistence port the sales service needs.
type Store interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.Transaction, error)
	Execute(ctx context.Context, txID id.TransactionID,
		validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error)
}

// CheckoutLine is one requested cart line.
type CheckoutLine struct {
	ProductID             string  `json:"product_id"`
	Quantity              int     `json:"quantity"`
	RecognitionMethod     string  `json:"recognition_method"`
	RecognitionConfidence float64 `json:"recognition_confidence"`
}

// CheckoutInput carries a whole cart to be drafted into a transaction.
type CheckoutInput struct {
	Lines      []CheckoutLine
	Discount   decimal.Decimal
	CustomerID string
	Notes      string
}

// PaymentInput is one tender against a pending transaction.
type PaymentInput struct {
	Type      string
	Amount    decimal.Decimal
	Reference string
}

// UpdateInput carries the fields that may change while a transaction is
// still pending.
type UpdateInput struct {
	CustomerID *string
	Notes      *string
}

type Service struct {
	transactions Store
	catalog      cart.Catalog
	ledger       stock.Ledger
	storeID      id.StoreID
	metrics      *metrics.Metrics
	auditor      *audit.Publisher
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a *audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func New(transactions Store, catalog cart.Catalog, ledger stock.Ledger, storeID id.StoreID, opts ...Option) (*Service, error) {
	if transactions == nil {
		return nil, fmt.Errorf("transaction store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger is required")
	}
	if storeID.IsNil() {
		return nil, fmt.Errorf("store id is required")
	}
	svc := &Service{
		transactions: transactions,
		catalog:      catalog,
		ledger:       ledger,
		storeID:      storeID,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Checkout replays the requested lines through a fresh cart accumulator and
// persists the resulting pending transaction. The accumulator does the heavy
// lifting: product lookups, advisory stock checks, merge semantics, and the
// rounded totals.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*models.Transaction, error) {
	accumulator := cart.New(s.catalog, s.ledger)
	for _, line := range in.Lines {
		productID, err := id.ParseProductID(line.ProductID)
		if err != nil {
			return nil, err
		}
		method, err := id.ParseRecognitionMethod(line.RecognitionMethod)
		if err != nil {
			return nil, err
		}
		if err := accumulator.AddLine(ctx, productID, line.Quantity, method, line.RecognitionConfidence); err != nil {
			return nil, err
		}
	}
	if !in.Discount.IsZero() {
		if err := accumulator.ApplyDiscount(in.Discount); err != nil {
			return nil, err
		}
	}
	accumulator.SetCustomer(in.CustomerID)
	accumulator.SetNotes(in.Notes)

	tx, err := accumulator.CheckoutDraft(ctx, requestcontext.UserID(ctx), s.storeID)
	if err != nil {
		return nil, err
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist transaction")
	}

	s.count(func(m *metrics.Metrics) { m.TransactionsCreated.Inc() })
	s.emit(ctx, audit.ActionTransactionCreated, tx.ID.String(),
		fmt.Sprintf("total %s, %d lines", tx.Total.StringFixed(2), len(tx.Items)))
	return tx, nil
}

func (s *Service) Get(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	tx, err := s.transactions.FindByID(ctx, txID)
	if err != nil {
		return nil, wrapTxErr(err, txID)
	}
	return tx, nil
}

func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]*models.Transaction, error) {
	result, err := s.transactions.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transactions")
	}
	return result, nil
}

// AddPayment appends a tender entry to a pending transaction.
func (s *Service) AddPayment(ctx context.Context, txID id.TransactionID, in PaymentInput) (*models.Transaction, error) {
	entry := models.PaymentEntry{
		Type:      in.Type,
		Amount:    in.Amount,
		Reference: in.Reference,
		Timestamp: requestcontext.Now(ctx),
	}
	tx, err := s.transactions.Execute(ctx, txID,
		func(t *models.Transaction) error {
			return t.CanAddPayment(entry)
		},
		func(t *models.Transaction) {
			t.ApplyPayment(entry)
		},
	)
	if err != nil {
		return nil, wrapTxErr(err, txID)
	}

	s.count(func(m *metrics.Metrics) { m.PaymentsRecorded.Inc() })
	s.emit(ctx, audit.ActionPaymentRecorded, txID.String(),
		fmt.Sprintf("%s %s", in.Type, in.Amount.StringFixed(2)))
	return tx, nil
}

// Complete transitions a pending, fully paid transaction to completed and
// commits its stock movements. The ledger decrement runs inside the validate
// callback: if any product lacks stock the whole batch is refused, nothing
// is decremented, and the transaction stays pending.
func (s *Service) Complete(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	now := requestcontext.Now(ctx)
	tx, err := s.transactions.Execute(ctx, txID,
		func(t *models.Transaction) error {
			if err := t.CanComplete(); err != nil {
				return err
			}
			if err := s.ledger.DecrementAll(ctx, t.Movements()); err != nil {
				if errors.Is(err, sentinel.ErrInsufficientStock) {
					s.count(func(m *metrics.Metrics) { m.StockRejections.Inc() })
					return dErrors.Wrap(err, dErrors.CodeConflict, "insufficient stock")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit stock movements")
			}
			return nil
		},
		func(t *models.Transaction) {
			t.ApplyCompletion(now)
		},
	)
	if err != nil {
		return nil, wrapTxErr(err, txID)
	}

	s.count(func(m *metrics.Metrics) { m.TransactionsCompleted.Inc() })
	s.emit(ctx, audit.ActionTransactionCompleted, txID.String(),
		fmt.Sprintf("total %s, paid %s", tx.Total.StringFixed(2), tx.PaidTotal().StringFixed(2)))
	return tx, nil
}

// Void cancels a pending or completed transaction. Voiding a completed sale
// restores its stock movements; a pending one never decremented stock, so
// there is nothing to restore. The restore runs inside the validate callback
// so stock and status change under the same record lock.
func (s *Service) Void(ctx context.Context, txID id.TransactionID, reason string) (*models.Transaction, error) {
	now := requestcontext.Now(ctx)
	tx, err := s.transactions.Execute(ctx, txID,
		func(t *models.Transaction) error {
			if err := t.CanVoid(); err != nil {
				return err
			}
			if t.Status == models.StatusCompleted {
				if err := s.ledger.IncrementAll(ctx, t.Movements()); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore stock")
				}
			}
			return nil
		},
		func(t *models.Transaction) {
			t.ApplyVoid(reason, now)
		},
	)
	if err != nil {
		return nil, wrapTxErr(err, txID)
	}

	s.count(func(m *metrics.Metrics) { m.TransactionsVoided.Inc() })
	s.emit(ctx, audit.ActionTransactionVoided, txID.String(), reason)
	return tx, nil
}

// Update changes the mutable annotations of a pending transaction. Totals,
// lines, and payments are not reachable from here.
func (s *Service) Update(ctx context.Context, txID id.TransactionID, in UpdateInput) (*models.Transaction, error) {
	tx, err := s.transactions.Execute(ctx, txID,
		func(t *models.Transaction) error {
			if t.Status != models.StatusPending {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot update a %s transaction", t.Status)
			}
			return nil
		},
		func(t *models.Transaction) {
			if in.CustomerID != nil {
				t.CustomerID = *in.CustomerID
			}
			if in.Notes != nil {
				t.Notes = *in.Notes
			}
		},
	)
	if err != nil {
		return nil, wrapTxErr(err, txID)
	}
	return tx, nil
}

func (s *Service) count(inc func(*metrics.Metrics)) {
	if s.metrics != nil {
		inc(s.metrics)
	}
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

func wrapTxErr(err error, txID id.TransactionID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "transaction %s not found", txID)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "transaction operation failed")
}
