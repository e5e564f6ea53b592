package siteuser

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/tendant/siteuser/pkg/errors"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

const sqliteUserColumns = `
	id, external_id, email, password, is_staff, is_superuser, is_active,
	site_id, date_joined, last_login, created_at, modified_at`

// SQLiteRepository implements Repository over a single SQLite file.
// Timestamps are stored as UTC unix milliseconds.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens path (":memory:" for a private in-memory database) and
// creates the schema if needed.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func (r *SQLiteRepository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO site_users (
			external_id, email, password, is_staff, is_superuser, is_active,
			site_id, date_joined, last_login, created_at, modified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var lastLogin sql.NullInt64
	if u.LastLogin != nil {
		lastLogin = sql.NullInt64{Int64: toMillis(*u.LastLogin), Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		u.ExternalID,
		u.Email,
		u.Password,
		u.IsStaff,
		u.IsSuperuser,
		u.IsActive,
		u.SiteID,
		toMillis(u.DateJoined),
		lastLogin,
		toMillis(u.CreatedAt),
		toMillis(u.ModifiedAt),
	).Scan(&u.ID)

	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return apperrors.AlreadyExists("user", fmt.Sprintf("%s@site %d", u.ExternalID, u.SiteID))
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByNaturalKey(ctx context.Context, externalID string, siteID int64) (*User, error) {
	query := `SELECT` + sqliteUserColumns + ` FROM site_users WHERE external_id = ? AND site_id = ?`
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, externalID, siteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user", fmt.Sprintf("%s@site %d", externalID, siteID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string, siteID int64) (*User, error) {
	query := `SELECT` + sqliteUserColumns + `
		FROM site_users
		WHERE email = ? COLLATE NOCASE AND site_id = ?
		ORDER BY id
		LIMIT 1`
	u, err := scanSQLiteUser(r.db.QueryRowContext(ctx, query, email, siteID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, u *User) error {
	var lastLogin sql.NullInt64
	if u.LastLogin != nil {
		lastLogin = sql.NullInt64{Int64: toMillis(*u.LastLogin), Valid: true}
	}
	query := `
		UPDATE site_users
		SET password = ?, is_staff = ?, is_superuser = ?, is_active = ?,
			last_login = ?, modified_at = ?
		WHERE id = ?`
	return r.exec(ctx, u.ID, query, u.Password, u.IsStaff, u.IsSuperuser, u.IsActive, lastLogin, toMillis(u.ModifiedAt), u.ID)
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, id int64, encoded string, at time.Time) error {
	return r.exec(ctx, id, `UPDATE site_users SET password = ?, modified_at = ? WHERE id = ?`, encoded, toMillis(at), id)
}

func (r *SQLiteRepository) UpdateEmail(ctx context.Context, id int64, email string, at time.Time) error {
	return r.exec(ctx, id, `UPDATE site_users SET email = ?, modified_at = ? WHERE id = ?`, email, toMillis(at), id)
}

func (r *SQLiteRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, id, `UPDATE site_users SET last_login = ? WHERE id = ?`, toMillis(at), id)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) exec(ctx context.Context, id int64, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if n == 0 {
		return apperrors.NotFound("user", fmt.Sprintf("id %d", id))
	}
	return nil
}

func scanSQLiteUser(row *sql.Row) (*User, error) {
	u := &User{}
	var dateJoined, createdAt, modifiedAt int64
	var lastLogin sql.NullInt64

	err := row.Scan(
		&u.ID,
		&u.ExternalID,
		&u.Email,
		&u.Password,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.IsActive,
		&u.SiteID,
		&dateJoined,
		&lastLogin,
		&createdAt,
		&modifiedAt,
	)
	if err != nil {
		return nil, err
	}

	u.DateJoined = fromMillis(dateJoined)
	u.CreatedAt = fromMillis(createdAt)
	u.ModifiedAt = fromMillis(modifiedAt)
	if lastLogin.Valid {
		t := fromMillis(lastLogin.Int64)
		u.LastLogin = &t
	}
	return u, nil
}
