package sessions_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/siteuser/pkg/auth0/auth0test"
	"github.com/tendant/siteuser/pkg/backends"
	"github.com/tendant/siteuser/pkg/config"
	"github.com/tendant/siteuser/pkg/profile"
	"github.com/tendant/siteuser/pkg/sessions"
	"github.com/tendant/siteuser/pkg/siteuser"
)

const cookieName = "siteuser_session"

type fixture struct {
	repo    *siteuser.InMemoryRepository
	service *siteuser.Service
	auth    *backends.Authenticator
	cfg     config.SessionConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := auth0test.NewServer()
	t.Cleanup(srv.Close)

	client := srv.Client()
	repo := siteuser.NewInMemoryRepository()
	service := siteuser.NewService(repo, client, profile.NewStore(client, profile.NewMemoryCache(), time.Minute),
		siteuser.WithSessionSecret("0123456789abcdef0123456789abcdef"))

	return &fixture{
		repo:    repo,
		service: service,
		auth:    backends.NewAuthenticator(backends.NewModelBackend(repo)),
		cfg: config.SessionConfig{
			Secret:     "fedcba9876543210fedcba9876543210",
			CookieName: cookieName,
			TTL:        time.Hour,
			Secure:     true,
			HTTPOnly:   true,
		},
	}
}

func (f *fixture) seed(t *testing.T, externalID string) *siteuser.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, &siteuser.User{
		ExternalID: externalID,
		Email:      "user@example.com",
		Password:   "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		SiteID:     1,
		IsActive:   true,
	}))
	u, err := f.auth.Authenticate(ctx, externalID, 1)
	require.NoError(t, err)
	return u
}

func login(t *testing.T, m *sessions.Manager, u *siteuser.User) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	_, err := m.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil), u)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func requestWith(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/me", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func TestLoginSetsCookieAndRecordsLogin(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "auth0|ada")
	m := sessions.NewManager(f.cfg, f.service)

	rec := httptest.NewRecorder()
	s, err := m.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil), u)
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, u.ID, s.UserID)
	assert.Equal(t, backends.ModelBackendName, s.Backend)
	assert.Equal(t, time.Hour, s.ExpiresAt.Sub(s.IssuedAt))

	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, cookieName, cookie.Name)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	stored, err := f.repo.GetByNaturalKey(context.Background(), "auth0|ada", 1)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
}

func TestLoginRequiresBackend(t *testing.T) {
	f := newFixture(t)
	m := sessions.NewManager(f.cfg, f.service)

	_, err := m.Login(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/login", nil), &siteuser.User{ID: 1})
	assert.Error(t, err)
}

func TestFromRequestRoundTrip(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "auth0|ada")
	m := sessions.NewManager(f.cfg, f.service)
	cookie := login(t, m, u)

	s, ok := m.FromRequest(requestWith(cookie))
	require.True(t, ok)
	assert.Equal(t, "auth0|ada", s.ExternalID)
	assert.Equal(t, u.ID, s.UserID)
	assert.Equal(t, int64(1), s.SiteID)

	assert.False(t, m.IsAuthenticated(requestWith(nil)))
}

func TestFromRequestRejectsForeignSignature(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "auth0|ada")

	other := f.cfg
	other.Secret = "another-secret-another-secret-xx"
	cookie := login(t, sessions.NewManager(other, f.service), u)

	m := sessions.NewManager(f.cfg, f.service)
	assert.False(t, m.IsAuthenticated(requestWith(cookie)))
}

func TestFromRequestRejectsExpiredSession(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "auth0|ada")
	m := sessions.NewManager(f.cfg, f.service, sessions.WithClock(func() time.Time {
		return time.Now().Add(-3 * time.Hour)
	}))
	cookie := login(t, m, u)

	assert.False(t, m.IsAuthenticated(requestWith(cookie)))
}

func TestMiddlewareValidatesUser(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "auth0|ada")
	m := sessions.NewManager(f.cfg, f.service, sessions.WithUserValidation(f.auth))
	cookie := login(t, m, u)

	var seen *siteuser.User
	var authenticated bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = sessions.UserFromContext(r.Context())
		authenticated = m.IsAuthenticated(r)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(cookie))
	require.True(t, authenticated)
	require.NotNil(t, seen)
	assert.Equal(t, u.ID, seen.ID)
	assert.Equal(t, backends.ModelBackendName, seen.Backend())

	// deactivated users lose their session
	ctx := context.Background()
	stored, err := f.repo.GetByNaturalKey(ctx, "auth0|ada", 1)
	require.NoError(t, err)
	stored.IsActive = false
	require.NoError(t, f.repo.Update(ctx, stored))

	seen = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(cookie))
	assert.False(t, authenticated)
	assert.Nil(t, seen)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestMiddlewareDropsSessionAfterPasswordChange(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "auth0|ada")
	m := sessions.NewManager(f.cfg, f.service, sessions.WithUserValidation(f.auth))
	cookie := login(t, m, u)

	require.NoError(t, f.repo.UpdatePassword(context.Background(), u.ID, "$argon2id$v=19$m=1024,t=1,p=1$bmV3$bmV3", time.Now()))

	var authenticated bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticated = m.IsAuthenticated(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), requestWith(cookie))
	assert.False(t, authenticated)
}

func TestRequireSession(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "auth0|ada")
	m := sessions.NewManager(f.cfg, f.service)
	cookie := login(t, m, u)

	h := m.Middleware(m.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessions.SessionFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(s.ExternalID))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(cookie))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth0|ada", rec.Body.String())
}
