// Package sentinel defines store-level sentinel errors shared by all storage
// implementations. Services translate these into domain errors so handlers
// never depend on a concrete store.
package sentinel

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrInsufficientStock is returned by the stock ledger when a batch
	// decrement would drive any line's quantity below zero. The batch is
	// all-or-nothing: nothing was mutated.
	ErrInsufficientStock = errors.New("insufficient stock")
)
