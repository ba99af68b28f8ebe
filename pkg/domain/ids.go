// Package domain holds shared domain primitives: typed identifiers and the
// permission vocabulary. Typed IDs prevent cross-type assignment at compile
// time; Parse helpers enforce validity at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "till/pkg/domain-errors"
)

// UUID-backed identifiers for records the service owns.
type (
	UserID        uuid.UUID
	SessionID     uuid.UUID
	TransactionID uuid.UUID
)

// ProductID identifies a catalog product. Products keep string IDs so
// barcode values and SKU-style identifiers can be used directly.
type ProductID string

// StoreID identifies the physical store a sale was rung up in.
type StoreID string

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id SessionID) String() string     { return uuid.UUID(id).String() }
func (id TransactionID) String() string { return uuid.UUID(id).String() }
func (id ProductID) String() string     { return string(id) }
func (id StoreID) String() string       { return string(id) }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TransactionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) IsNil() bool     { return id == "" }
func (id StoreID) IsNil() bool       { return id == "" }

// MarshalText renders UUID-backed IDs as canonical UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id TransactionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SessionID(u)
	return nil
}

func (id *TransactionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = TransactionID(u)
	return nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseSessionID validates and returns a SessionID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(u), nil
}

// ParseTransactionID validates and returns a TransactionID.
func ParseTransactionID(s string) (TransactionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionID(u), nil
}

// ParseProductID validates and returns a ProductID.
func ParseProductID(s string) (ProductID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "product id must not be empty")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeValidation, "product id must be 64 characters or less")
	}
	return ProductID(s), nil
}
