package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "till/pkg/domain"
)

// Postgres keeps the settings row keyed by store ID. Get falls back to
// defaults when nothing has been saved yet, matching the in-memory store.
type Postgres struct {
	pool    *pgxpool.Pool
	storeID id.StoreID
}

func NewPostgres(pool *pgxpool.Pool, storeID id.StoreID) *Postgres {
	return &Postgres{pool: pool, storeID: storeID}
}

// Schema is applied by integration tests and deploy tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS settings (
	store_id       TEXT PRIMARY KEY,
	store_name     TEXT NOT NULL,
	currency       TEXT NOT NULL,
	receipt_footer TEXT NOT NULL DEFAULT '',
	updated_at     TIMESTAMPTZ NOT NULL
);`

func (s *Postgres) Get(ctx context.Context) (*Settings, error) {
	var settings Settings
	var rawStore string
	err := s.pool.QueryRow(ctx, `
		SELECT store_id, store_name, currency, receipt_footer, updated_at
		FROM settings WHERE store_id = $1`, s.storeID.String(),
	).Scan(&rawStore, &settings.StoreName, &settings.Currency, &settings.ReceiptFooter, &settings.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(s.storeID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	settings.StoreID = id.StoreID(rawStore)
	return &settings, nil
}

func (s *Postgres) Put(ctx context.Context, settings *Settings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (store_id, store_name, currency, receipt_footer, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (store_id) DO UPDATE
		SET store_name = $2, currency = $3, receipt_footer = $4, updated_at = $5`,
		settings.StoreID.String(), settings.StoreName, settings.Currency,
		settings.ReceiptFooter, settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
