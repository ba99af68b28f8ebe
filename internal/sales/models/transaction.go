// Package models holds the sales aggregate: the durable transaction ledger
// entry a cart turns into at checkout.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"till/internal/stock"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
)

// Status is the transaction lifecycle state.
//
// Transitions: pending → completed, pending → voided, completed → voided.
// Voided is terminal; completed only ever moves to voided (a refund), never
// back to pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusVoided    Status = "voided"
)

// LineSnapshot freezes a cart line at checkout. Later price or tax changes
// on the product never retroactively affect a transaction.
type LineSnapshot struct {
	ProductID             id.ProductID         `json:"product_id"`
	Name                  string               `json:"name"`
	PriceAtSale           decimal.Decimal      `json:"price_at_sale"`
	TaxRateAtSale         decimal.Decimal      `json:"tax_rate_at_sale"`
	Quantity              int                  `json:"quantity"`
	RecognitionMethod     id.RecognitionMethod `json:"recognition_method"`
	RecognitionConfidence float64              `json:"recognition_confidence"`
}

// PaymentEntry is one tender against the transaction total. Split payments
// append multiple entries.
type PaymentEntry struct {
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Transaction is the immutable-once-terminal record of a sale. It is
// mutated only through its own state-machine methods; stores hand out
// copies, never shared pointers into their maps.
type Transaction struct {
	ID             id.TransactionID `json:"id"`
	Items          []LineSnapshot   `json:"items"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	TaxAmount      decimal.Decimal  `json:"tax_amount"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	Total          decimal.Decimal  `json:"total"`
	Status         Status           `json:"status"`
	Payments       []PaymentEntry   `json:"payments"`
	EmployeeID     id.UserID        `json:"employee_id"`
	StoreID        id.StoreID       `json:"store_id"`
	CustomerID     string           `json:"customer_id,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	VoidedAt       *time.Time       `json:"voided_at,omitempty"`
}

// Totals carries the three rounded monetary figures plus the discount they
// were computed with.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// NewTransaction builds a pending entry from a cart snapshot.
//
// Invariants enforced here:
//   - at least one line (EmptyCart)
//   - employee and store are required
func NewTransaction(txID id.TransactionID, items []LineSnapshot, totals Totals,
	employeeID id.UserID, storeID id.StoreID, customerID, notes string, now time.Time) (*Transaction, error) {
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "cart has no lines")
	}
	if employeeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "employee id is required")
	}
	if storeID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "store id is required")
	}
	return &Transaction{
		ID:             txID,
		Items:          items,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		DiscountAmount: totals.DiscountAmount,
		Total:          totals.Total,
		Status:         StatusPending,
		Payments:       []PaymentEntry{},
		EmployeeID:     employeeID,
		StoreID:        storeID,
		CustomerID:     customerID,
		Notes:          notes,
		CreatedAt:      now,
	}, nil
}

// CanAddPayment checks that a tender entry may be appended: the entry is
// positive and the transaction is still pending.
func (t *Transaction) CanAddPayment(entry PaymentEntry) error {
	if t.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot add payment to a %s transaction", t.Status)
	}
	if !entry.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "payment amount must be positive")
	}
	return nil
}

// ApplyPayment appends the entry. Call CanAddPayment first.
func (t *Transaction) ApplyPayment(entry PaymentEntry) {
	t.Payments = append(t.Payments, entry)
}

// AddPayment validates and appends in one step for callers outside the
// store's Execute callback.
func (t *Transaction) AddPayment(entry PaymentEntry) error {
	if err := t.CanAddPayment(entry); err != nil {
		return err
	}
	t.ApplyPayment(entry)
	return nil
}

// PaidTotal sums the payment entries.
func (t *Transaction) PaidTotal() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range t.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// CanComplete checks the completion preconditions: the entry is pending and
// payments cover the total. Stock is the sales service's concern; use with
// ApplyCompletion inside the store's Execute callback so the check and the
// transition run under the record lock.
func (t *Transaction) CanComplete() error {
	switch t.Status {
	case StatusCompleted:
		return dErrors.New(dErrors.CodeInvariantViolation, "transaction is already completed")
	case StatusVoided:
		return dErrors.New(dErrors.CodeInvariantViolation, "transaction has been voided")
	}
	if t.PaidTotal().LessThan(t.Total) {
		return dErrors.Newf(dErrors.CodeConflict,
			"insufficient payment: paid %s of %s", t.PaidTotal().StringFixed(2), t.Total.StringFixed(2))
	}
	return nil
}

// ApplyCompletion transitions to completed. Call CanComplete first.
func (t *Transaction) ApplyCompletion(now time.Time) {
	t.Status = StatusCompleted
	t.CompletedAt = &now
}

// CanVoid checks the void precondition: voided is terminal.
func (t *Transaction) CanVoid() error {
	if t.Status == StatusVoided {
		return dErrors.New(dErrors.CodeInvariantViolation, "transaction is already voided")
	}
	return nil
}

// ApplyVoid transitions to voided and appends the reason to the notes.
// Call CanVoid first; whether stock must be restored is decided by the
// status before this call (only a completed sale decremented stock).
func (t *Transaction) ApplyVoid(reason string, now time.Time) {
	t.Status = StatusVoided
	t.VoidedAt = &now
	reason = strings.TrimSpace(reason)
	if reason != "" {
		if t.Notes != "" {
			t.Notes += "\n"
		}
		t.Notes += "void: " + reason
	}
}

// Movements maps the line snapshots to stock ledger movements.
func (t *Transaction) Movements() []stock.Movement {
	movements := make([]stock.Movement, len(t.Items))
	for i, item := range t.Items {
		movements[i] = stock.Movement{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return movements
}

// Clone returns a deep copy so stores never leak shared slices.
func (t *Transaction) Clone() *Transaction {
	copied := *t
	copied.Items = append([]LineSnapshot(nil), t.Items...)
	copied.Payments = append([]PaymentEntry(nil), t.Payments...)
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		copied.CompletedAt = &at
	}
	if t.VoidedAt != nil {
		at := *t.VoidedAt
		copied.VoidedAt = &at
	}
	return &copied
}
