package auth0_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tendant/siteuser/pkg/auth0"
)

func TestConnectionMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		configure     func(r *http.Request)
		wantAttached  bool
		wantHost      string
	}{
		{
			name:         "plain http",
			wantAttached: true,
			wantHost:     "http://app.example.com",
		},
		{
			name:         "tls",
			configure:    func(r *http.Request) { r.TLS = &tls.ConnectionState{} },
			wantAttached: true,
			wantHost:     "https://app.example.com",
		},
		{
			name:         "behind proxy",
			configure:    func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https, http") },
			wantAttached: true,
			wantHost:     "https://app.example.com",
		},
		{
			name:          "authenticated request is untouched",
			authenticated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got auth0.ConnectionParams
			var attached bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, attached = auth0.ConnectionFromContext(r.Context())
			})

			isAuth := func(*http.Request) bool { return tt.authenticated }
			handler := auth0.ConnectionMiddleware("client-1", "tenant.auth0.com", isAuth)(next)

			req := httptest.NewRequest(http.MethodGet, "http://app.example.com/admin/", nil)
			if tt.configure != nil {
				tt.configure(req)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantAttached, attached)
			if tt.wantAttached {
				assert.Equal(t, auth0.ConnectionParams{
					ClientID:     "client-1",
					Domain:       "tenant.auth0.com",
					RedirectHost: tt.wantHost,
				}, got)
			}
		})
	}
}
