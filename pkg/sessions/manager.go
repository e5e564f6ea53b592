package sessions

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"github.com/tendant/siteuser/pkg/backends"
	"github.com/tendant/siteuser/pkg/config"
	apperrors "github.com/tendant/siteuser/pkg/errors"
	"github.com/tendant/siteuser/pkg/siteuser"
)

// UserStore is what the manager needs from the local user service.
type UserStore interface {
	RecordLogin(ctx context.Context, u *siteuser.User) error
	SessionAuthHash(u *siteuser.User) string
}

// BackendResolver finds the backend a session was established with.
type BackendResolver interface {
	Lookup(name string) (backends.Backend, bool)
}

// Manager issues and reads HS256 signed session cookies.
type Manager struct {
	ja       *jwtauth.JWTAuth
	cookie   cookieSetter
	ttl      time.Duration
	users    UserStore
	resolver BackendResolver
	now      func() time.Time
}

type Option func(*Manager)

// WithUserValidation makes Middleware reload the user through the backend that
// authenticated it. Sessions of users the backend no longer admits are dropped, as
// are sessions started before a password change.
func WithUserValidation(resolver BackendResolver) Option {
	return func(m *Manager) {
		m.resolver = resolver
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(cfg config.SessionConfig, users UserStore, opts ...Option) *Manager {
	m := &Manager{
		ja: jwtauth.New("HS256", []byte(cfg.Secret), nil),
		cookie: cookieSetter{
			Name:     cfg.CookieName,
			Path:     "/",
			HttpOnly: cfg.HTTPOnly,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		},
		ttl:   cfg.TTL,
		users: users,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login records the login on u and sets a fresh session cookie. u must have been
// returned by a backend.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, u *siteuser.User) (*Session, error) {
	if u.Backend() == "" {
		return nil, apperrors.New(apperrors.ErrCodeInternal, "user was not authenticated by a backend")
	}
	if err := m.users.RecordLogin(r.Context(), u); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	now := m.now().UTC().Truncate(time.Second)
	s := &Session{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		ExternalID: u.ExternalID,
		SiteID:     u.SiteID,
		Backend:    u.Backend(),
		AuthHash:   m.users.SessionAuthHash(u),
		IssuedAt:   now,
		ExpiresAt:  now.Add(m.ttl),
	}

	_, token, err := m.ja.Encode(map[string]interface{}{
		claimSessionID:  s.ID,
		claimSubject:    s.ExternalID,
		claimUserID:     strconv.FormatInt(s.UserID, 10),
		claimSiteID:     strconv.FormatInt(s.SiteID, 10),
		claimBackend:    s.Backend,
		claimAuthHash:   s.AuthHash,
		claimIssuedAt:   s.IssuedAt.Unix(),
		claimExpiration: s.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	m.cookie.set(w, token, s.ExpiresAt)
	slog.Info("User logged in", "session", s)
	return s, nil
}

// FromRequest returns the session of r. Inside Middleware the already checked
// session is used; elsewhere the cookie is verified on the spot.
func (m *Manager) FromRequest(r *http.Request) (*Session, bool) {
	if s, ok := r.Context().Value(sessionKey).(*Session); ok {
		return s, true
	}
	if r.Context().Value(checkedKey) != nil {
		return nil, false
	}
	s, err := m.decode(r)
	if err != nil {
		return nil, false
	}
	return s, true
}

// IsAuthenticated reports whether r carries a valid session.
func (m *Manager) IsAuthenticated(r *http.Request) bool {
	_, ok := m.FromRequest(r)
	return ok
}

func (m *Manager) decode(r *http.Request) (*Session, error) {
	token, err := jwtauth.VerifyRequest(m.ja, r, m.cookie.token)
	if err != nil {
		return nil, err
	}
	claims, err := token.AsMap(r.Context())
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         stringClaim(claims, claimSessionID),
		ExternalID: stringClaim(claims, claimSubject),
		Backend:    stringClaim(claims, claimBackend),
		AuthHash:   stringClaim(claims, claimAuthHash),
		IssuedAt:   token.IssuedAt(),
		ExpiresAt:  token.Expiration(),
	}
	if s.UserID, err = strconv.ParseInt(stringClaim(claims, claimUserID), 10, 64); err != nil {
		return nil, errors.New("session has no user id")
	}
	if s.SiteID, err = strconv.ParseInt(stringClaim(claims, claimSiteID), 10, 64); err != nil {
		return nil, errors.New("session has no site id")
	}
	if s.ID == "" || s.ExternalID == "" || s.Backend == "" {
		return nil, errors.New("incomplete session")
	}
	return s, nil
}

// validate reloads the session's user through its backend.
func (m *Manager) validate(ctx context.Context, s *Session) (*siteuser.User, error) {
	backend, ok := m.resolver.Lookup(s.Backend)
	if !ok {
		return nil, fmt.Errorf("unknown backend %q", s.Backend)
	}
	u, err := backend.TryAuthenticate(ctx, s.ExternalID, s.SiteID)
	if err != nil {
		return nil, err
	}
	if u.ID != s.UserID {
		return nil, errors.New("session user id mismatch")
	}
	if !hmac.Equal([]byte(m.users.SessionAuthHash(u)), []byte(s.AuthHash)) {
		return nil, errors.New("password changed since login")
	}
	u.SetBackend(s.Backend)
	return u, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
