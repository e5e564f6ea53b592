package siteuser

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/tendant/siteuser/pkg/errors"
)

const pgUniqueViolation = "23505"

const pgUserColumns = `
	id, external_id, email, password, is_staff, is_superuser, is_active,
	site_id, date_joined, last_login, created_at, modified_at`

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool  *pgxpool.Pool
	owned bool
}

// NewPostgresRepository wraps an existing pool. Close leaves the pool open.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// OpenPostgres connects to dsn. Close shuts the pool down.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return &PostgresRepository{pool: pool, owned: true}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO site_users (
			external_id, email, password, is_staff, is_superuser, is_active,
			site_id, date_joined, last_login, created_at, modified_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		) RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		u.ExternalID,
		u.Email,
		u.Password,
		u.IsStaff,
		u.IsSuperuser,
		u.IsActive,
		u.SiteID,
		u.DateJoined,
		u.LastLogin,
		u.CreatedAt,
		u.ModifiedAt,
	).Scan(&u.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperrors.AlreadyExists("user", fmt.Sprintf("%s@site %d", u.ExternalID, u.SiteID))
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByNaturalKey(ctx context.Context, externalID string, siteID int64) (*User, error) {
	query := `SELECT` + pgUserColumns + `
		FROM site_users
		WHERE external_id = $1 AND site_id = $2
	`
	u, err := scanPgUser(r.pool.QueryRow(ctx, query, externalID, siteID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user", fmt.Sprintf("%s@site %d", externalID, siteID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string, siteID int64) (*User, error) {
	query := `SELECT` + pgUserColumns + `
		FROM site_users
		WHERE lower(email) = lower($1) AND site_id = $2
		ORDER BY id
		LIMIT 1
	`
	u, err := scanPgUser(r.pool.QueryRow(ctx, query, email, siteID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE site_users
		SET password = $2, is_staff = $3, is_superuser = $4, is_active = $5,
			last_login = $6, modified_at = $7
		WHERE id = $1
	`
	return r.exec(ctx, query, u.ID, u.Password, u.IsStaff, u.IsSuperuser, u.IsActive, u.LastLogin, u.ModifiedAt)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, encoded string, at time.Time) error {
	return r.exec(ctx, `UPDATE site_users SET password = $2, modified_at = $3 WHERE id = $1`, id, encoded, at)
}

func (r *PostgresRepository) UpdateEmail(ctx context.Context, id int64, email string, at time.Time) error {
	return r.exec(ctx, `UPDATE site_users SET email = $2, modified_at = $3 WHERE id = $1`, id, email, at)
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, `UPDATE site_users SET last_login = $2 WHERE id = $1`, id, at)
}

func (r *PostgresRepository) Close() error {
	if r.owned {
		r.pool.Close()
	}
	return nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, id int64, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user", fmt.Sprintf("id %d", id))
	}
	return nil
}

func scanPgUser(row pgx.Row) (*User, error) {
	u := &User{}
	var lastLogin sql.NullTime

	err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Email,
		&u.Password,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.IsActive,
		&u.SiteID,
		&u.DateJoined,
		&lastLogin,
		&u.CreatedAt,
		&u.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return u, nil
}
