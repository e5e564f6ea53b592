package auth0

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/siteuser/pkg/config"
	apperrors "github.com/tendant/siteuser/pkg/errors"
)

const maxResponseBytes = 1 << 20

// Client talks to one Auth0 tenant: the authentication API for the login flow and
// the management API for user records. It holds no state besides configuration and
// is safe for concurrent use.
type Client struct {
	clientID        string
	clientSecret    string
	managementToken string
	connection      string
	baseURL         string
	timeout         time.Duration
	httpClient      *http.Client
}

// Option is a function that configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client for provider calls
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL overrides https://{domain}, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the per-call deadline
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a client for the tenant described by cfg.
func NewClient(cfg config.Auth0Config, opts ...Option) *Client {
	c := &Client{
		clientID:        cfg.ClientID,
		clientSecret:    cfg.ClientSecret,
		managementToken: cfg.ManagementJWT,
		connection:      cfg.Connection,
		baseURL:         "https://" + cfg.Domain,
		timeout:         cfg.Timeout,
		httpClient:      &http.Client{},
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Connection returns the database connection new users are created in.
func (c *Client) Connection() string {
	return c.connection
}

// responseError is a non-2xx answer from the provider.
type responseError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *responseError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func statusOf(err error) int {
	var re *responseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

type request struct {
	method     string
	path       string
	query      url.Values
	in         any
	out        any
	management bool
}

// do sends one JSON request under the client timeout. There are no retries.
func (c *Client) do(ctx context.Context, r request) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if r.in != nil {
		payload, err := json.Marshal(r.in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.management {
		req.Header.Set("Authorization", "Bearer "+c.managementToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make %s %s request: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", r.path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &responseError{Method: r.method, Path: r.path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	if r.out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, r.out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", r.path, err)
	}
	return nil
}

// manage runs a management API call and classifies its failure: 404 becomes
// NotFound, anything else an AuthError.
func (c *Client) manage(ctx context.Context, r request, resource, id string) error {
	r.management = true
	err := c.do(ctx, r)
	if err == nil {
		return nil
	}
	if statusOf(err) == http.StatusNotFound {
		return apperrors.NotFound(resource, id)
	}
	return apperrors.AuthError(err, "management api request failed")
}
