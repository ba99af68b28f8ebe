package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"till/internal/sales/models"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
)

// Postgres persists transactions in the `transactions` table. Line and
// payment snapshots are stored as JSONB: they are written once and read
// whole, never queried field by field.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Schema is applied by integration tests and deploy tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id              UUID PRIMARY KEY,
	items           JSONB NOT NULL,
	subtotal        NUMERIC(12,2) NOT NULL,
	tax_amount      NUMERIC(12,2) NOT NULL,
	discount_amount NUMERIC(12,2) NOT NULL,
	total           NUMERIC(12,2) NOT NULL,
	status          TEXT NOT NULL,
	payments        JSONB NOT NULL,
	employee_id     UUID NOT NULL,
	store_id        TEXT NOT NULL,
	customer_id     TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ,
	voided_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS transactions_created_at_idx ON transactions (created_at DESC);
CREATE INDEX IF NOT EXISTS transactions_status_idx ON transactions (status);`

const transactionColumns = `id, items, subtotal, tax_amount, discount_amount, total,
	status, payments, employee_id, store_id, customer_id, notes,
	created_at, completed_at, voided_at`

func (s *Postgres) Create(ctx context.Context, tx *models.Transaction) error {
	items, payments, err := marshalSnapshots(tx)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		uuid.UUID(tx.ID), items, tx.Subtotal, tx.TaxAmount, tx.DiscountAmount, tx.Total,
		string(tx.Status), payments, uuid.UUID(tx.EmployeeID), tx.StoreID.String(),
		tx.CustomerID, tx.Notes, tx.CreatedAt, tx.CompletedAt, tx.VoidedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sentinel.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, uuid.UUID(txID))
	return scanTransaction(row)
}

// List returns matching transactions newest first.
func (s *Postgres) List(ctx context.Context, filter ListFilter) ([]*models.Transaction, error) {
	sql := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		sql += ` AND status = ` + arg(string(filter.Status))
	}
	if !filter.EmployeeID.IsNil() {
		sql += ` AND employee_id = ` + arg(uuid.UUID(filter.EmployeeID))
	}
	if !filter.StoreID.IsNil() {
		sql += ` AND store_id = ` + arg(filter.StoreID.String())
	}
	if !filter.From.IsZero() {
		sql += ` AND created_at >= ` + arg(filter.From)
	}
	if !filter.To.IsZero() {
		sql += ` AND created_at <= ` + arg(filter.To)
	}
	sql += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		sql += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// Execute loads the record with SELECT FOR UPDATE, runs validate and mutate,
// and writes the result back, all inside one database transaction. The row
// lock gives the same exclusivity the in-memory store's mutex does.
func (s *Postgres) Execute(ctx context.Context, txID id.TransactionID,
	validate func(*models.Transaction) error, mutate func(*models.Transaction)) (*models.Transaction, error) {
	var result *models.Transaction
	err := pgx.BeginFunc(ctx, s.pool, func(dbTx pgx.Tx) error {
		row := dbTx.QueryRow(ctx,
			`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`,
			uuid.UUID(txID))
		record, err := scanTransaction(row)
		if err != nil {
			return err
		}
		if err := validate(record); err != nil {
			return err
		}
		mutate(record)

		// Line snapshots are frozen at creation; only the mutable columns
		// are written back.
		payments, err := json.Marshal(record.Payments)
		if err != nil {
			return fmt.Errorf("marshal payments: %w", err)
		}
		_, err = dbTx.Exec(ctx, `
			UPDATE transactions
			SET status = $2, payments = $3, customer_id = $4, notes = $5,
			    completed_at = $6, voided_at = $7
			WHERE id = $1`,
			uuid.UUID(record.ID), string(record.Status), payments,
			record.CustomerID, record.Notes, record.CompletedAt, record.VoidedAt,
		)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func marshalSnapshots(tx *models.Transaction) (items, payments []byte, err error) {
	items, err = json.Marshal(tx.Items)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal items: %w", err)
	}
	payments, err = json.Marshal(tx.Payments)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payments: %w", err)
	}
	return items, payments, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tx           models.Transaction
		rawID        uuid.UUID
		rawItems     []byte
		rawPayments  []byte
		rawStatus    string
		rawEmployee  uuid.UUID
		rawStore     string
		completedAt  *time.Time
		voidedAt     *time.Time
	)
	err := row.Scan(&rawID, &rawItems, &tx.Subtotal, &tx.TaxAmount, &tx.DiscountAmount, &tx.Total,
		&rawStatus, &rawPayments, &rawEmployee, &rawStore, &tx.CustomerID, &tx.Notes,
		&tx.CreatedAt, &completedAt, &voidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if err := json.Unmarshal(rawItems, &tx.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(rawPayments, &tx.Payments); err != nil {
		return nil, fmt.Errorf("unmarshal payments: %w", err)
	}
	tx.ID = id.TransactionID(rawID)
	tx.Status = models.Status(rawStatus)
	tx.EmployeeID = id.UserID(rawEmployee)
	tx.StoreID = id.StoreID(rawStore)
	tx.CompletedAt = completedAt
	tx.VoidedAt = voidedAt
	return &tx, nil
}
