package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
)

// Postgres keeps quantities in the `stock_levels` table. Batch mutations run
// in a single transaction with guarded UPDATEs, so a shortage anywhere rolls
// the whole batch back.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const Schema = `
CREATE TABLE IF NOT EXISTS stock_levels (
	product_id TEXT PRIMARY KEY,
	quantity   INTEGER NOT NULL CHECK (quantity >= 0)
);`

func (s *Postgres) Available(ctx context.Context, productID id.ProductID) (int, error) {
	var quantity int
	err := s.pool.QueryRow(ctx,
		`SELECT quantity FROM stock_levels WHERE product_id = $1`, productID.String(),
	).Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}
	return quantity, nil
}

func (s *Postgres) Set(ctx context.Context, productID id.ProductID, quantity int) error {
	if quantity < 0 {
		quantity = 0
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stock_levels (product_id, quantity) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		productID.String(), quantity,
	)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	return nil
}

func (s *Postgres) Remove(ctx context.Context, productID id.ProductID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM stock_levels WHERE product_id = $1`, productID.String())
	if err != nil {
		return fmt.Errorf("remove stock: %w", err)
	}
	return nil
}

// DecrementAll issues one guarded UPDATE per movement inside a transaction.
// The `quantity >= $2` predicate makes each row a compare-and-decrement; a
// miss anywhere aborts the transaction, so nothing is applied partially.
func (s *Postgres) DecrementAll(ctx context.Context, movements []Movement) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, m := range movements {
			tag, err := tx.Exec(ctx, `
				UPDATE stock_levels SET quantity = quantity - $2
				WHERE product_id = $1 AND quantity >= $2`,
				m.ProductID.String(), m.Quantity,
			)
			if err != nil {
				return fmt.Errorf("decrement stock for %s: %w", m.ProductID, err)
			}
			if tag.RowsAffected() == 0 {
				return sentinel.ErrInsufficientStock
			}
		}
		return nil
	})
}

func (s *Postgres) IncrementAll(ctx context.Context, movements []Movement) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, m := range movements {
			_, err := tx.Exec(ctx, `
				INSERT INTO stock_levels (product_id, quantity) VALUES ($1, $2)
				ON CONFLICT (product_id) DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity`,
				m.ProductID.String(), m.Quantity,
			)
			if err != nil {
				return fmt.Errorf("increment stock for %s: %w", m.ProductID, err)
			}
		}
		return nil
	})
}
