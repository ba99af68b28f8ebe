// Package models holds the catalog aggregate: the products a till can sell.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
)

// Product is a sellable catalog entry.
//
// Invariants:
//   - Price >= 0, TaxRatePercent >= 0
//   - Name is non-empty and at most 200 characters
//
// Price and tax rate are copied into a transaction's line snapshots at
// checkout; editing a product never retroactively changes past sales.
type Product struct {
	ID             id.ProductID    `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Barcode        string          `json:"barcode,omitempty"`
	Price          decimal.Decimal `json:"price"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// New validates and builds a Product. The message lists every violated rule.
func New(productID id.ProductID, name, category, barcode string, price, taxRate decimal.Decimal, now time.Time) (*Product, error) {
	if err := validate(name, price, taxRate); err != nil {
		return nil, err
	}
	return &Product{
		ID:             productID,
		Name:           strings.TrimSpace(name),
		Category:       strings.TrimSpace(category),
		Barcode:        strings.TrimSpace(barcode),
		Price:          price,
		TaxRatePercent: taxRate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Update applies new field values after validation.
func (p *Product) Update(name, category, barcode string, price, taxRate decimal.Decimal, now time.Time) error {
	if err := validate(name, price, taxRate); err != nil {
		return err
	}
	p.Name = strings.TrimSpace(name)
	p.Category = strings.TrimSpace(category)
	p.Barcode = strings.TrimSpace(barcode)
	p.Price = price
	p.TaxRatePercent = taxRate
	p.UpdatedAt = now
	return nil
}

func validate(name string, price, taxRate decimal.Decimal) error {
	var violations []string
	if strings.TrimSpace(name) == "" {
		violations = append(violations, "name must not be empty")
	}
	if len(name) > 200 {
		violations = append(violations, "name must be 200 characters or less")
	}
	if price.IsNegative() {
		violations = append(violations, "price must not be negative")
	}
	if taxRate.IsNegative() {
		violations = append(violations, "tax rate must not be negative")
	}
	if len(violations) > 0 {
		return dErrors.New(dErrors.CodeValidation, strings.Join(violations, "; "))
	}
	return nil
}
