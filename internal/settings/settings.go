// Package settings holds store-level configuration editable at runtime:
// display name, currency, and the receipt footer. One record per store.
package settings

import (
	"context"
	"strings"
	"sync"
	"time"

	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
)

// Settings is the single editable configuration record for a store.
type Settings struct {
	StoreID       id.StoreID `json:"store_id"`
	StoreName     string     `json:"store_name"`
	Currency      string     `json:"currency"`
	ReceiptFooter string     `json:"receipt_footer,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Input carries replacement values for a PUT.
type Input struct {
	StoreName     string `json:"store_name"`
	Currency      string `json:"currency"`
	ReceiptFooter string `json:"receipt_footer"`
}

func (in Input) validate() error {
	var violations []string
	if strings.TrimSpace(in.StoreName) == "" {
		violations = append(violations, "store name must not be empty")
	}
	if len(in.Currency) != 3 {
		violations = append(violations, "currency must be a 3-letter ISO code")
	}
	if len(in.ReceiptFooter) > 500 {
		violations = append(violations, "receipt footer must be 500 characters or less")
	}
	if len(violations) > 0 {
		return dErrors.New(dErrors.CodeValidation, strings.Join(violations, "; "))
	}
	return nil
}

// Store persists the settings record.
type Store interface {
	Get(ctx context.Context) (*Settings, error)
	Put(ctx context.Context, settings *Settings) error
}

// Defaults is what a store starts with before anyone saves settings.
func Defaults(storeID id.StoreID) *Settings {
	return &Settings{
		StoreID:   storeID,
		StoreName: "Store " + storeID.String(),
		Currency:  "USD",
	}
}

// InMemory keeps the single record under a mutex.
type InMemory struct {
	mu      sync.RWMutex
	current *Settings
}

func NewInMemory(storeID id.StoreID) *InMemory {
	return &InMemory{current: Defaults(storeID)}
}

func (m *InMemory) Get(_ context.Context) (*Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	copied := *m.current
	return &copied, nil
}

func (m *InMemory) Put(_ context.Context, settings *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *settings
	m.current = &copied
	return nil
}
