package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"till/internal/auth/models"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
)

// Postgres persists users in the `users` table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Schema is applied by integration tests and deploy tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id                UUID PRIMARY KEY,
	username          TEXT NOT NULL,
	name              TEXT NOT NULL,
	role              TEXT NOT NULL,
	password_hash     BYTEA NOT NULL,
	extra_permissions TEXT[] NOT NULL DEFAULT '{}',
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_idx ON users (lower(username));`

const userColumns = "id, username, name, role, password_hash, extra_permissions, active, created_at, updated_at"

func (s *Postgres) Create(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(user.ID), user.Username, user.Name, string(user.Role),
		user.PasswordHash, permissionStrings(user.ExtraPermissions), user.Active,
		user.CreatedAt, user.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sentinel.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, user *models.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET username = $2, name = $3, role = $4, password_hash = $5,
		    extra_permissions = $6, active = $7, updated_at = $8
		WHERE id = $1`,
		uuid.UUID(user.ID), user.Username, user.Name, string(user.Role),
		user.PasswordHash, permissionStrings(user.ExtraPermissions), user.Active,
		user.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sentinel.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, userID id.UserID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *Postgres) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
	return scanUser(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY lower(username)`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func permissionStrings(perms []id.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = p.String()
	}
	return out
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user     models.User
		rawID    uuid.UUID
		rawRole  string
		rawPerms []string
	)
	err := row.Scan(&rawID, &user.Username, &user.Name, &rawRole, &user.PasswordHash,
		&rawPerms, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.ID = id.UserID(rawID)
	user.Role = id.Role(rawRole)
	user.ExtraPermissions = make([]id.Permission, len(rawPerms))
	for i, raw := range rawPerms {
		user.ExtraPermissions[i] = id.Permission(raw)
	}
	return &user, nil
}
