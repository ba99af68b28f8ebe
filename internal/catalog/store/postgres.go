package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"till/internal/catalog/models"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
)

// Postgres persists products in the `products` table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Schema is applied by integration tests and deploy tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	barcode          TEXT NOT NULL DEFAULT '',
	price            NUMERIC(12,2) NOT NULL CHECK (price >= 0),
	tax_rate_percent NUMERIC(6,3) NOT NULL CHECK (tax_rate_percent >= 0),
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);`

const productColumns = "id, name, category, barcode, price, tax_rate_percent, created_at, updated_at"

func (s *Postgres) Create(ctx context.Context, product *models.Product) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		product.ID.String(), product.Name, product.Category, product.Barcode,
		product.Price, product.TaxRatePercent, product.CreatedAt, product.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sentinel.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, product *models.Product) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, category = $3, barcode = $4, price = $5, tax_rate_percent = $6, updated_at = $7
		WHERE id = $1`,
		product.ID.String(), product.Name, product.Category, product.Barcode,
		product.Price, product.TaxRatePercent, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, productID id.ProductID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID.String())
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, productID.String())
	return scanProduct(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.Product, error) {
	return s.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

func (s *Postgres) ListByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	return s.query(ctx,
		`SELECT `+productColumns+` FROM products WHERE lower(category) = lower($1) ORDER BY id`,
		category)
}

func (s *Postgres) Search(ctx context.Context, query string) ([]*models.Product, error) {
	return s.query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE name ILIKE '%' || $1 || '%' OR barcode = $1 ORDER BY id`,
		query)
}

func (s *Postgres) query(ctx context.Context, sql string, args ...any) ([]*models.Product, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	var rawID string
	err := row.Scan(&rawID, &p.Name, &p.Category, &p.Barcode, &p.Price, &p.TaxRatePercent, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.ID = id.ProductID(rawID)
	return &p, nil
}
