package profile

import (
	"context"
	"log/slog"
	"time"

	"github.com/tendant/siteuser/pkg/auth0"
	apperrors "github.com/tendant/siteuser/pkg/errors"
)

const keyPrefix = "auth0user.userprofile."

// CacheKey is the cache key of a remote user.
func CacheKey(externalID string) string {
	return keyPrefix + externalID
}

// UserSource is the part of the identity provider client the store needs.
type UserSource interface {
	GetUser(ctx context.Context, externalID string) (*auth0.User, error)
	UpdateUser(ctx context.Context, externalID string, upd auth0.UserUpdate) (*auth0.User, error)
}

// Store reads profiles through the cache and writes them back to the provider.
type Store struct {
	source UserSource
	cache  Cache
	ttl    time.Duration
}

func NewStore(source UserSource, cache Cache, ttl time.Duration) *Store {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Store{source: source, cache: cache, ttl: ttl}
}

// Get returns the profile of externalID. It never fails: a missing remote user, an
// unreachable provider or an empty id all yield the empty default profile.
func (s *Store) Get(ctx context.Context, externalID string) *Profile {
	if externalID == "" {
		return Empty()
	}

	key := CacheKey(externalID)
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("Profile cache read failed", "key", key, "err", err)
	}
	if ok {
		return fromUser(cached)
	}

	u, err := s.source.GetUser(ctx, externalID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			slog.Error("Remote user does not exist", "external_id", externalID)
		} else {
			slog.Error("Failed to fetch remote user", "external_id", externalID, "err", err)
		}
		return Empty()
	}

	s.Put(ctx, u)
	return fromUser(u)
}

// Put overwrites the cache entry for u and restarts its TTL.
func (s *Store) Put(ctx context.Context, u *auth0.User) {
	if u == nil || u.UserID == "" {
		return
	}
	if err := s.cache.Set(ctx, CacheKey(u.UserID), u, s.ttl); err != nil {
		slog.Warn("Profile cache write failed", "external_id", u.UserID, "err", err)
	}
}

// Save pushes the changed fields of p, including a pending password, and
// refreshes the cache with the provider's answer. Unbacked profiles are ignored.
// A NotFound error means the remote user has gone.
func (s *Store) Save(ctx context.Context, p *Profile) error {
	if p == nil || !p.Backed() {
		return nil
	}

	upd, changed := p.changes()
	if !changed {
		snapshot := p.Snapshot()
		s.Put(ctx, &snapshot)
		return nil
	}

	u, err := s.source.UpdateUser(ctx, p.ExternalID(), upd)
	if err != nil {
		return err
	}

	p.password = ""
	p.load(u)
	s.Put(ctx, u)
	return nil
}
