package auth0

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "auth0 context value " + k.name
}

var connectionKey = &contextKey{"ConnectionParams"}

// ConnectionParams is what a login page needs to start the hosted login.
type ConnectionParams struct {
	ClientID     string `json:"client_id"`
	Domain       string `json:"domain"`
	RedirectHost string `json:"redirect_host"`
}

func (p ConnectionParams) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_id", p.ClientID),
		slog.String("domain", p.Domain),
		slog.String("redirect_host", p.RedirectHost),
	)
}

// AuthenticatedFunc reports whether a request already carries a logged-in user.
type AuthenticatedFunc func(r *http.Request) bool

// ConnectionMiddleware attaches ConnectionParams to every request that is not
// authenticated. Authenticated requests pass through untouched.
func ConnectionMiddleware(clientID, domain string, isAuthenticated AuthenticatedFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isAuthenticated != nil && isAuthenticated(r) {
				next.ServeHTTP(w, r)
				return
			}

			params := ConnectionParams{
				ClientID:     clientID,
				Domain:       domain,
				RedirectHost: RedirectHost(r),
			}
			next.ServeHTTP(w, r.WithContext(WithConnection(r.Context(), params)))
		})
	}
}

// WithConnection stores params in ctx.
func WithConnection(ctx context.Context, params ConnectionParams) context.Context {
	return context.WithValue(ctx, connectionKey, params)
}

// ConnectionFromContext returns the params attached by ConnectionMiddleware.
func ConnectionFromContext(ctx context.Context) (ConnectionParams, bool) {
	params, ok := ctx.Value(connectionKey).(ConnectionParams)
	return params, ok
}

// RedirectHost is scheme://host for r, honouring X-Forwarded-Proto.
func RedirectHost(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return scheme + "://" + r.Host
}
