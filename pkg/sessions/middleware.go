package sessions

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/siteuser/pkg/siteuser"
)

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "sessions context value " + k.name
}

var (
	sessionKey = &contextKey{"Session"}
	userKey    = &contextKey{"User"}
	checkedKey = &contextKey{"Checked"}
)

// Middleware reads the session cookie once per request. A missing or invalid
// session leaves the request anonymous; an invalid cookie is cleared.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), checkedKey, true)

		if m.cookie.token(r) == "" {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		s, err := m.decode(r)
		if err != nil {
			slog.Debug("Ignoring invalid session cookie", "err", err)
			m.cookie.clear(w)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if m.resolver != nil {
			u, err := m.validate(r.Context(), s)
			if err != nil {
				slog.Info("Session no longer valid", "session", s, "err", err)
				m.cookie.clear(w)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			ctx = context.WithValue(ctx, userKey, u)
		}

		ctx = context.WithValue(ctx, sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSession answers 401 for anonymous requests. Use after Middleware.
func (m *Manager) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.IsAuthenticated(r) {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"code": "UNAUTHENTICATED", "message": "login required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext returns the user loaded by Middleware with user validation.
func UserFromContext(ctx context.Context) (*siteuser.User, bool) {
	u, ok := ctx.Value(userKey).(*siteuser.User)
	return u, ok
}

// SessionFromContext returns the session stored by Middleware.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok
}
