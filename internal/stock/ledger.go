// Package stock tracks per-product available quantity.
//
// The ledger is the sole authority for insufficient-stock rejection: cart
// time availability checks are advisory (stock can change between adding a
// line and completing the sale), and only DecrementAll, applied atomically
// at completion, decides whether a sale goes through.
package stock

import (
	"context"

	id "till/pkg/domain"
)

// Movement is one product's quantity delta in a batch.
type Movement struct {
	ProductID id.ProductID `json:"product_id"`
	Quantity  int          `json:"quantity"`
}

// Ledger is the stock collaborator used by the catalog and sales services.
//
// DecrementAll is all-or-nothing: if any product's available quantity is
// below the requested amount, the whole batch fails with
// sentinel.ErrInsufficientStock and no quantity is changed. This closes the
// check-then-act gap between the cart's availability check and completion;
// there is never a partial decrement to roll back.
type Ledger interface {
	Available(ctx context.Context, productID id.ProductID) (int, error)
	Set(ctx context.Context, productID id.ProductID, quantity int) error
	Remove(ctx context.Context, productID id.ProductID) error
	DecrementAll(ctx context.Context, movements []Movement) error
	IncrementAll(ctx context.Context, movements []Movement) error
}
