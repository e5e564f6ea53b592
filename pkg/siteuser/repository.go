package siteuser

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Repository persists local users.
type Repository interface {
	// Create inserts u and fills in its ID. A duplicate natural key is AlreadyExists.
	Create(ctx context.Context, u *User) error
	GetByNaturalKey(ctx context.Context, externalID string, siteID int64) (*User, error)
	GetByEmail(ctx context.Context, email string, siteID int64) (*User, error)
	// Update writes every mutable column except email.
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id int64, encoded string, at time.Time) error
	UpdateEmail(ctx context.Context, id int64, email string, at time.Time) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	Close() error
}

// Open returns the repository for dsn: "postgres://..." or "postgresql://..."
// for PostgreSQL, "sqlite://<path>" or "sqlite::memory:" for SQLite, "memory://"
// for a process-local store.
func Open(ctx context.Context, dsn string) (Repository, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"))
	case dsn == "memory://":
		return NewInMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", redact(dsn))
	}
}

func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return "<invalid>"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***" + rest[at:]
	}
	return scheme + "://" + rest
}
