package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"till/internal/audit"
	catalogservice "till/internal/catalog/service"
	catalogstore "till/internal/catalog/store"
	"till/internal/platform/metrics"
	"till/internal/sales/models"
	"till/internal/sales/store"
	"till/internal/stock"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/requestcontext"
)

type SalesServiceSuite struct {
	suite.Suite
	svc      *Service
	catalog  *catalogservice.Service
	ledger   *stock.InMemory
	sink     *audit.MemorySink
	ctx      context.Context
	cashier  id.UserID
	now      time.Time
}

func TestSalesServiceSuite(t *testing.T) {
	suite.Run(t, new(SalesServiceSuite))
}

func (s *SalesServiceSuite) SetupTest() {
	s.ledger = stock.NewInMemory()
	s.sink = audit.NewMemorySink()
	s.cashier = id.UserID(uuid.New())
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.catalog, err = catalogservice.New(catalogstore.NewInMemory(), s.ledger)
	s.Require().NoError(err)

	s.svc, err = New(store.NewInMemory(), s.catalog, s.ledger, "store-001",
		WithMetrics(metrics.NewForTest()),
		WithAuditor(audit.NewPublisher(s.sink, "store-001")),
	)
	s.Require().NoError(err)

	ctx := requestcontext.WithUserID(context.Background(), s.cashier)
	s.ctx = requestcontext.WithTime(ctx, s.now)
}

func (s *SalesServiceSuite) seedProduct(productID string, price, taxRate float64, stockQty int) {
	_, err := s.catalog.Create(s.ctx, catalogservice.CreateProductInput{
		ID:             id.ProductID(productID),
		Name:           "Product " + productID,
		Category:       "test",
		Price:          decimal.NewFromFloat(price),
		TaxRatePercent: decimal.NewFromFloat(taxRate),
		InitialStock:   stockQty,
	})
	s.Require().NoError(err)
}

func (s *SalesServiceSuite) checkout(lines ...CheckoutLine) *models.Transaction {
	tx, err := s.svc.Checkout(s.ctx, CheckoutInput{Lines: lines})
	s.Require().NoError(err)
	return tx
}

func (s *SalesServiceSuite) line(productID string, qty int) CheckoutLine {
	return CheckoutLine{
		ProductID:             productID,
		Quantity:              qty,
		RecognitionMethod:     "manual",
		RecognitionConfidence: 1,
	}
}

func (s *SalesServiceSuite) pay(txID id.TransactionID, amount float64) *models.Transaction {
	tx, err := s.svc.AddPayment(s.ctx, txID, PaymentInput{
		Type: "cash", Amount: decimal.NewFromFloat(amount),
	})
	s.Require().NoError(err)
	return tx
}

func (s *SalesServiceSuite) available(productID string) int {
	qty, err := s.ledger.Available(s.ctx, id.ProductID(productID))
	s.Require().NoError(err)
	return qty
}

func (s *SalesServiceSuite) TestCheckout() {
	s.seedProduct("p-1", 9.99, 7.5, 10)

	s.Run("drafts a pending transaction with rounded totals", func() {
		tx := s.checkout(s.line("p-1", 3))

		s.Equal(models.StatusPending, tx.Status)
		s.Equal(s.cashier, tx.EmployeeID)
		s.Equal(id.StoreID("store-001"), tx.StoreID)
		s.True(tx.Total.Equal(decimal.NewFromFloat(32.22)), "total %s", tx.Total)
		s.Equal(10, s.available("p-1"), "drafting must not decrement stock")

		found, err := s.svc.Get(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Equal(tx.ID, found.ID)
	})

	s.Run("rejects an empty cart", func() {
		_, err := s.svc.Checkout(s.ctx, CheckoutInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects unknown products", func() {
		_, err := s.svc.Checkout(s.ctx, CheckoutInput{Lines: []CheckoutLine{s.line("ghost", 1)}})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects quantities above available stock", func() {
		_, err := s.svc.Checkout(s.ctx, CheckoutInput{Lines: []CheckoutLine{s.line("p-1", 999)}})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("applies a cart discount", func() {
		tx, err := s.svc.Checkout(s.ctx, CheckoutInput{
			Lines:    []CheckoutLine{s.line("p-1", 3)},
			Discount: decimal.NewFromInt(10),
		})
		s.Require().NoError(err)
		s.True(tx.Total.Equal(decimal.NewFromFloat(22.22)), "total %s", tx.Total)
	})

	s.Run("emits an audit event", func() {
		before := len(s.sink.Events())
		tx := s.checkout(s.line("p-1", 1))

		events := s.sink.Events()
		s.Require().Greater(len(events), before)
		last := events[len(events)-1]
		s.Equal(audit.ActionTransactionCreated, last.Action)
		s.Equal(tx.ID.String(), last.Subject)
		s.Equal(s.cashier, last.ActorID)
	})
}

func (s *SalesServiceSuite) TestPaymentAndCompletion() {
	s.seedProduct("p-1", 9.99, 7.5, 10)

	s.Run("completion is refused until payments cover the total", func() {
		tx := s.checkout(s.line("p-1", 3)) // total 32.22
		s.pay(tx.ID, 20)

		_, err := s.svc.Complete(s.ctx, tx.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "insufficient payment")

		found, findErr := s.svc.Get(s.ctx, tx.ID)
		s.Require().NoError(findErr)
		s.Equal(models.StatusPending, found.Status, "failed completion must not change status")
		s.Equal(10, s.available("p-1"), "failed completion must not touch stock")

		s.pay(tx.ID, 12.22)
		completed, err := s.svc.Complete(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, completed.Status)
		s.Equal(7, s.available("p-1"))
	})

	s.Run("payments on a completed transaction are refused", func() {
		tx := s.checkout(s.line("p-1", 1))
		s.pay(tx.ID, 100)
		_, err := s.svc.Complete(s.ctx, tx.ID)
		s.Require().NoError(err)

		_, err = s.svc.AddPayment(s.ctx, tx.ID, PaymentInput{Type: "cash", Amount: decimal.NewFromInt(1)})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unknown transaction is not found", func() {
		_, err := s.svc.Complete(s.ctx, id.TransactionID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// Two pending transactions compete for stock that only covers one of them.
// The first completion wins; the second is refused at its own completion
// time and stays pending with stock unchanged.
func (s *SalesServiceSuite) TestCompetingCompletions() {
	s.seedProduct("p-1", 5, 0, 5)

	first := s.checkout(s.line("p-1", 4))
	second := s.checkout(s.line("p-1", 4))
	s.pay(first.ID, 100)
	s.pay(second.ID, 100)

	_, err := s.svc.Complete(s.ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(1, s.available("p-1"))

	_, err = s.svc.Complete(s.ctx, second.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	found, findErr := s.svc.Get(s.ctx, second.ID)
	s.Require().NoError(findErr)
	s.Equal(models.StatusPending, found.Status)
	s.Equal(1, s.available("p-1"), "refused completion must not decrement anything")
}

func (s *SalesServiceSuite) TestVoid() {
	s.seedProduct("p-1", 5, 0, 10)

	s.Run("voiding a pending transaction leaves stock alone", func() {
		tx := s.checkout(s.line("p-1", 3))

		voided, err := s.svc.Void(s.ctx, tx.ID, "customer walked out")
		s.Require().NoError(err)
		s.Equal(models.StatusVoided, voided.Status)
		s.Contains(voided.Notes, "customer walked out")
		s.Equal(10, s.available("p-1"))
	})

	s.Run("voiding a completed transaction restores stock", func() {
		tx := s.checkout(s.line("p-1", 3))
		s.pay(tx.ID, 100)
		_, err := s.svc.Complete(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Equal(7, s.available("p-1"))

		voided, err := s.svc.Void(s.ctx, tx.ID, "refund")
		s.Require().NoError(err)
		s.Equal(models.StatusVoided, voided.Status)
		s.Equal(10, s.available("p-1"))
	})

	s.Run("voided is terminal", func() {
		tx := s.checkout(s.line("p-1", 1))
		_, err := s.svc.Void(s.ctx, tx.ID, "first")
		s.Require().NoError(err)

		_, err = s.svc.Void(s.ctx, tx.ID, "second")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = s.svc.Complete(s.ctx, tx.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *SalesServiceSuite) TestUpdate() {
	s.seedProduct("p-1", 5, 0, 10)

	s.Run("updates annotations on a pending transaction", func() {
		tx := s.checkout(s.line("p-1", 1))

		customer := "cust-42"
		notes := "paper bag"
		updated, err := s.svc.Update(s.ctx, tx.ID, UpdateInput{CustomerID: &customer, Notes: &notes})
		s.Require().NoError(err)
		s.Equal("cust-42", updated.CustomerID)
		s.Equal("paper bag", updated.Notes)
	})

	s.Run("nil fields are left unchanged", func() {
		tx := s.checkout(s.line("p-1", 1))
		customer := "cust-1"
		_, err := s.svc.Update(s.ctx, tx.ID, UpdateInput{CustomerID: &customer})
		s.Require().NoError(err)

		updated, err := s.svc.Update(s.ctx, tx.ID, UpdateInput{})
		s.Require().NoError(err)
		s.Equal("cust-1", updated.CustomerID)
	})

	s.Run("refuses updates once completed", func() {
		tx := s.checkout(s.line("p-1", 1))
		s.pay(tx.ID, 100)
		_, err := s.svc.Complete(s.ctx, tx.ID)
		s.Require().NoError(err)

		notes := "too late"
		_, err = s.svc.Update(s.ctx, tx.ID, UpdateInput{Notes: &notes})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *SalesServiceSuite) TestList() {
	s.seedProduct("p-1", 5, 0, 100)

	pending := s.checkout(s.line("p-1", 1))
	completed := s.checkout(s.line("p-1", 1))
	s.pay(completed.ID, 100)
	_, err := s.svc.Complete(s.ctx, completed.ID)
	s.Require().NoError(err)

	all, err := s.svc.List(s.ctx, store.ListFilter{})
	s.Require().NoError(err)
	s.Len(all, 2)

	pendingOnly, err := s.svc.List(s.ctx, store.ListFilter{Status: models.StatusPending})
	s.Require().NoError(err)
	s.Require().Len(pendingOnly, 1)
	s.Equal(pending.ID, pendingOnly[0].ID)
}
