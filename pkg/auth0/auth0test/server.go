// Package auth0test provides an in-process fake of the Auth0 endpoints used by
// siteuser, for tests.
package auth0test

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/tendant/siteuser/pkg/auth0"
	"github.com/tendant/siteuser/pkg/config"
)

const ManagementToken = "test-management-token"

// Server is a fake tenant. Its zero state has no users and no codes.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*auth0.User
	codes    map[string]string // authorization code -> access token
	tokens   map[string]string // access token -> user id
	calls    map[string]int
	failures map[string]int
	nextID   int

	LastTokenRequest map[string]string
	LastCreate       map[string]any
	LastPatch        map[string]any
}

// NewServer starts a fake tenant. It is closed with t.Cleanup by the caller.
func NewServer() *Server {
	s := &Server{
		users:    make(map[string]*auth0.User),
		codes:    make(map[string]string),
		tokens:   make(map[string]string),
		calls:    make(map[string]int),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", s.handleToken)
	mux.HandleFunc("GET /userinfo", s.handleUserInfo)
	mux.HandleFunc("GET /api/v2/users-by-email", s.management(s.handleUsersByEmail))
	mux.HandleFunc("POST /api/v2/users", s.management(s.handleCreate))
	mux.HandleFunc("GET /api/v2/users/{id}", s.management(s.handleGet))
	mux.HandleFunc("PATCH /api/v2/users/{id}", s.management(s.handlePatch))
	s.Server = httptest.NewServer(mux)
	return s
}

// Config returns a configuration pointing at the tenant domain.
func (s *Server) Config() config.Auth0Config {
	return config.Auth0Config{
		Domain:        strings.TrimPrefix(s.URL, "http://"),
		ClientID:      "test-client",
		ClientSecret:  "test-secret",
		ManagementJWT: ManagementToken,
		Connection:    "Username-Password-Authentication",
	}
}

// Client returns a client wired to the fake tenant.
func (s *Server) Client(opts ...auth0.Option) *auth0.Client {
	opts = append([]auth0.Option{auth0.WithBaseURL(s.URL), auth0.WithHTTPClient(s.Server.Client())}, opts...)
	return auth0.NewClient(s.Config(), opts...)
}

// AddUser registers u and returns a copy of it.
func (s *Server) AddUser(u auth0.User) auth0.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.UserID == "" {
		s.nextID++
		u.UserID = fmt.Sprintf("auth0|seed%d", s.nextID)
	}
	stored := cloneUser(u)
	s.users[u.UserID] = &stored
	return u
}

// User returns the stored record for id.
func (s *Server) User(id string) (auth0.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth0.User{}, false
	}
	return cloneUser(*u), true
}

func cloneUser(u auth0.User) auth0.User {
	u.UserMetadata = maps.Clone(u.UserMetadata)
	u.AppMetadata = maps.Clone(u.AppMetadata)
	return u
}

// AddCode makes code exchangeable for an access token that identifies userID.
func (s *Server) AddCode(code, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "at-" + code
	s.codes[code] = token
	s.tokens[token] = userID
}

// FailNext makes the next n calls to route answer 500. Routes are
// "token", "userinfo", "get", "by-email", "create" and "patch".
func (s *Server) FailNext(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = n
}

// Calls returns how often route was hit.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Server) hit(route string, w http.ResponseWriter) bool {
	s.calls[route]++
	if s.failures[route] > 0 {
		s.failures[route]--
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return false
	}
	return true
}

func (s *Server) management(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+ManagementToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hit("token", w) {
		return
	}

	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	s.LastTokenRequest = body

	token, ok := s.codes[body["code"]]
	if !ok || body["grant_type"] != "authorization_code" {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid_grant"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access_token": token, "token_type": "Bearer", "expires_in": 86400})
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hit("userinfo", w) {
		return
	}

	id, ok := s.tokens[r.URL.Query().Get("access_token")]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}
	info := map[string]any{"sub": id, "user_id": id}
	if u, ok := s.users[id]; ok {
		info["email"] = u.Email
		info["email_verified"] = u.EmailVerified
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleUsersByEmail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hit("by-email", w) {
		return
	}

	email := r.URL.Query().Get("email")
	found := []auth0.User{}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			found = append(found, *u)
		}
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hit("create", w) {
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	s.LastCreate = body

	s.nextID++
	u := &auth0.User{UserID: fmt.Sprintf("auth0|%d", s.nextID)}
	u.Email, _ = body["email"].(string)
	u.EmailVerified, _ = body["email_verified"].(bool)
	if md, ok := body["user_metadata"].(map[string]any); ok {
		u.UserMetadata = md
	}
	s.users[u.UserID] = u
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hit("get", w) {
		return
	}

	u, ok := s.users[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found", "message": "The user does not exist."})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hit("patch", w) {
		return
	}

	u, ok := s.users[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
		return
	}

	data, err := io.ReadAll(r.Body)
	var upd auth0.UserUpdate
	raw := map[string]any{}
	if err == nil {
		err = json.Unmarshal(data, &raw)
	}
	if err == nil {
		err = json.Unmarshal(data, &upd)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	s.LastPatch = raw

	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
	if upd.GivenName != nil {
		u.GivenName = upd.GivenName
	}
	if upd.FamilyName != nil {
		u.FamilyName = upd.FamilyName
	}
	if upd.UserMetadata != nil {
		if u.UserMetadata == nil {
			u.UserMetadata = map[string]any{}
		}
		for k, v := range upd.UserMetadata {
			u.UserMetadata[k] = v
		}
	}
	if upd.AppMetadata != nil {
		if u.AppMetadata == nil {
			u.AppMetadata = map[string]any{}
		}
		for k, v := range upd.AppMetadata {
			u.AppMetadata[k] = v
		}
	}
	writeJSON(w, http.StatusOK, u)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
