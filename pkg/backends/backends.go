// Package backends holds the strategies that turn a verified remote identity into
// a local user. They are tried in order and the first one that accepts wins.
package backends

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/tendant/siteuser/pkg/errors"
	"github.com/tendant/siteuser/pkg/siteuser"
)

const (
	ModelBackendName         = "siteuser.ModelBackend"
	AllowAllUsersBackendName = "siteuser.AllowAllUsersBackend"
)

// Backend resolves an external id to a local user. It returns a NotFound error
// when it does not know or does not admit the user.
type Backend interface {
	Name() string
	TryAuthenticate(ctx context.Context, externalID string, siteID int64) (*siteuser.User, error)
}

// UserFinder looks users up by natural key.
type UserFinder interface {
	GetByNaturalKey(ctx context.Context, externalID string, siteID int64) (*siteuser.User, error)
}

// ModelBackend admits active users only.
type ModelBackend struct {
	users UserFinder
}

func NewModelBackend(users UserFinder) *ModelBackend {
	return &ModelBackend{users: users}
}

func (b *ModelBackend) Name() string { return ModelBackendName }

func (b *ModelBackend) TryAuthenticate(ctx context.Context, externalID string, siteID int64) (*siteuser.User, error) {
	u, err := b.users.GetByNaturalKey(ctx, externalID, siteID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperrors.NotFound("active user", externalID)
	}
	return u, nil
}

// AllowAllUsersBackend admits inactive users as well.
type AllowAllUsersBackend struct {
	users UserFinder
}

func NewAllowAllUsersBackend(users UserFinder) *AllowAllUsersBackend {
	return &AllowAllUsersBackend{users: users}
}

func (b *AllowAllUsersBackend) Name() string { return AllowAllUsersBackendName }

func (b *AllowAllUsersBackend) TryAuthenticate(ctx context.Context, externalID string, siteID int64) (*siteuser.User, error) {
	return b.users.GetByNaturalKey(ctx, externalID, siteID)
}

// Authenticator walks an ordered list of backends.
type Authenticator struct {
	backends []Backend
}

func NewAuthenticator(backends ...Backend) *Authenticator {
	return &Authenticator{backends: backends}
}

// Authenticate returns the user from the first backend that accepts externalID
// and records that backend's name on it. When none accepts, the result is
// PermissionDenied. Any failure other than NotFound stops the walk.
func (a *Authenticator) Authenticate(ctx context.Context, externalID string, siteID int64) (*siteuser.User, error) {
	for _, backend := range a.backends {
		u, err := backend.TryAuthenticate(ctx, externalID, siteID)
		if apperrors.IsNotFound(err) {
			slog.Debug("Backend declined", "backend", backend.Name(), "external_id", externalID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", backend.Name(), err)
		}
		u.SetBackend(backend.Name())
		return u, nil
	}

	slog.Warn("No backend accepted user", "external_id", externalID, "site_id", siteID)
	return nil, apperrors.PermissionDenied("no local user for this identity")
}

// Lookup returns the backend registered under name.
func (a *Authenticator) Lookup(name string) (Backend, bool) {
	for _, backend := range a.backends {
		if backend.Name() == name {
			return backend, true
		}
	}
	return nil, false
}
