// Package cart implements the pre-transaction line-item accumulator.
//
// An Accumulator belongs to a single checkout session and is not safe for
// concurrent use. Its availability checks against the stock ledger are
// advisory: stock is only committed when the drafted transaction completes,
// and the ledger's atomic batch decrement is the final authority.
package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogmodels "till/internal/catalog/models"
	salesmodels "till/internal/sales/models"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/requestcontext"
)

// Catalog resolves product metadata for cart lines. Unknown products fail
// with CodeNotFound.
type Catalog interface {
	Get(ctx context.Context, productID id.ProductID) (*catalogmodels.Product, error)
}

// Availability reports current stock for the advisory cart-time check.
type Availability interface {
	Available(ctx context.Context, productID id.ProductID) (int, error)
}

// Line is one product's entry in the cart. Lines are keyed by product:
// adding a product twice merges quantities.
type Line struct {
	ProductID             id.ProductID         `json:"product_id"`
	Name                  string               `json:"name"`
	UnitPrice             decimal.Decimal      `json:"unit_price"`
	TaxRatePercent        decimal.Decimal      `json:"tax_rate_percent"`
	Quantity              int                  `json:"quantity"`
	RecognitionMethod     id.RecognitionMethod `json:"recognition_method"`
	RecognitionConfidence float64              `json:"recognition_confidence"`
}

// Accumulator collects lines and maintains rounded monetary totals.
type Accumulator struct {
	catalog Catalog
	stock   Availability

	lines      []Line
	discount   decimal.Decimal
	customerID string
	notes      string

	subtotal  decimal.Decimal
	taxAmount decimal.Decimal
	total     decimal.Decimal
}

func New(catalog Catalog, stock Availability) *Accumulator {
	return &Accumulator{
		catalog:  catalog,
		stock:    stock,
		discount: decimal.Zero,
	}
}

// AddLine validates the product and requested quantity, then merges into an
// existing line or appends a new one. The stock check runs against the
// line's new total quantity using current ledger state; nothing is reserved.
func (a *Accumulator) AddLine(ctx context.Context, productID id.ProductID, quantity int,
	method id.RecognitionMethod, confidence float64) error {
	if quantity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity must be positive")
	}
	if _, err := id.ParseRecognitionMethod(method.String()); err != nil {
		return err
	}
	if !id.ValidConfidence(confidence) {
		return dErrors.New(dErrors.CodeValidation, "recognition confidence must be between 0 and 1")
	}

	product, err := a.catalog.Get(ctx, productID)
	if err != nil {
		return err
	}

	requested := quantity
	if existing := a.find(productID); existing != nil {
		requested += existing.Quantity
	}
	if err := a.checkStock(ctx, productID, requested); err != nil {
		return err
	}

	if existing := a.find(productID); existing != nil {
		existing.Quantity = requested
		existing.RecognitionMethod = method
		existing.RecognitionConfidence = confidence
	} else {
		a.lines = append(a.lines, Line{
			ProductID:             productID,
			Name:                  product.Name,
			UnitPrice:             product.Price,
			TaxRatePercent:        product.TaxRatePercent,
			Quantity:              quantity,
			RecognitionMethod:     method,
			RecognitionConfidence: confidence,
		})
	}

	a.recompute()
	return nil
}

// RemoveLine drops a product's line entirely.
func (a *Accumulator) RemoveLine(productID id.ProductID) error {
	for i, line := range a.lines {
		if line.ProductID == productID {
			a.lines = append(a.lines[:i], a.lines[i+1:]...)
			a.recompute()
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeNotFound, "no cart line for product %s", productID)
}

// SetQuantity replaces a line's quantity. Zero or negative removes the line.
func (a *Accumulator) SetQuantity(ctx context.Context, productID id.ProductID, quantity int) error {
	if quantity <= 0 {
		return a.RemoveLine(productID)
	}
	line := a.find(productID)
	if line == nil {
		return dErrors.Newf(dErrors.CodeNotFound, "no cart line for product %s", productID)
	}
	if err := a.checkStock(ctx, productID, quantity); err != nil {
		return err
	}
	line.Quantity = quantity
	a.recompute()
	return nil
}

// ApplyDiscount sets the whole-cart discount. The discount may never exceed
// the current subtotal.
func (a *Accumulator) ApplyDiscount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return dErrors.New(dErrors.CodeValidation, "discount must not be negative")
	}
	if amount.GreaterThan(a.subtotal) {
		return dErrors.Newf(dErrors.CodeValidation,
			"discount %s exceeds subtotal %s", amount.StringFixed(2), a.subtotal.StringFixed(2))
	}
	a.discount = amount
	a.recompute()
	return nil
}

// SetCustomer attaches an optional customer reference.
func (a *Accumulator) SetCustomer(customerID string) {
	a.customerID = customerID
}

// SetNotes attaches free-text notes carried onto the transaction.
func (a *Accumulator) SetNotes(notes string) {
	a.notes = notes
}

// Clear resets to the empty state unconditionally.
func (a *Accumulator) Clear() {
	a.lines = nil
	a.discount = decimal.Zero
	a.customerID = ""
	a.notes = ""
	a.recompute()
}

// Lines returns a copy of the current lines.
func (a *Accumulator) Lines() []Line {
	return append([]Line(nil), a.lines...)
}

// IsEmpty reports whether the cart has no lines.
func (a *Accumulator) IsEmpty() bool {
	return len(a.lines) == 0
}

// Totals returns the current rounded totals.
func (a *Accumulator) Totals() salesmodels.Totals {
	return salesmodels.Totals{
		Subtotal:       a.subtotal,
		TaxAmount:      a.taxAmount,
		DiscountAmount: a.discount,
		Total:          a.total,
	}
}

// CheckoutDraft freezes the cart into a pending transaction. Stock is not
// touched here; it is committed (or refused) at completion time.
func (a *Accumulator) CheckoutDraft(ctx context.Context, employeeID id.UserID, storeID id.StoreID) (*salesmodels.Transaction, error) {
	items := make([]salesmodels.LineSnapshot, len(a.lines))
	for i, line := range a.lines {
		items[i] = salesmodels.LineSnapshot{
			ProductID:             line.ProductID,
			Name:                  line.Name,
			PriceAtSale:           line.UnitPrice,
			TaxRateAtSale:         line.TaxRatePercent,
			Quantity:              line.Quantity,
			RecognitionMethod:     line.RecognitionMethod,
			RecognitionConfidence: line.RecognitionConfidence,
		}
	}
	return salesmodels.NewTransaction(
		id.TransactionID(uuid.New()), items, a.Totals(),
		employeeID, storeID, a.customerID, a.notes,
		requestcontext.Now(ctx),
	)
}

func (a *Accumulator) find(productID id.ProductID) *Line {
	for i := range a.lines {
		if a.lines[i].ProductID == productID {
			return &a.lines[i]
		}
	}
	return nil
}

func (a *Accumulator) checkStock(ctx context.Context, productID id.ProductID, requested int) error {
	available, err := a.stock.Available(ctx, productID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read stock")
	}
	if available < requested {
		return dErrors.New(dErrors.CodeConflict, fmt.Sprintf(
			"insufficient stock for product %s: requested %d, available %d",
			productID, requested, available))
	}
	return nil
}

// recompute rebuilds subtotal, tax, and total from full-precision sums over
// the surviving lines, then rounds each of the three independently to two
// decimals (half up). Rounding from scratch every time keeps repeated
// mutations from compounding rounding error.
func (a *Accumulator) recompute() {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range a.lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		lineAmount := line.UnitPrice.Mul(qty)
		subtotal = subtotal.Add(lineAmount)
		tax = tax.Add(lineAmount.Mul(line.TaxRatePercent).Div(decimal.NewFromInt(100)))
	}

	// A shrinking cart may leave a previously valid discount above the new
	// subtotal; clamp so the discount invariant holds at every observation
	// point.
	if a.discount.GreaterThan(subtotal) {
		a.discount = subtotal.Round(2)
	}

	a.subtotal = subtotal.Round(2)
	a.taxAmount = tax.Round(2)
	a.total = subtotal.Add(tax).Sub(a.discount).Round(2)
}
