package auth0

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	apperrors "github.com/tendant/siteuser/pkg/errors"
)

// GetUser fetches a user by external id. A missing user is a NotFound error.
func (c *Client) GetUser(ctx context.Context, externalID string) (*User, error) {
	var u User
	err := c.manage(ctx, request{
		method: http.MethodGet,
		path:   "/api/v2/users/" + url.PathEscape(externalID),
		out:    &u,
	}, "auth0 user", externalID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindUserByEmail returns the first user registered with email.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var users []User
	err := c.manage(ctx, request{
		method: http.MethodGet,
		path:   "/api/v2/users-by-email",
		query:  url.Values{"email": {email}},
		out:    &users,
	}, "auth0 user", email)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperrors.NotFound("auth0 user", email)
	}
	return &users[0], nil
}

// GetOrCreateUser returns the user registered with email, creating it in the
// configured connection when there is none. An existing record is returned as is;
// the password and metadata in nu are only used for creation.
func (c *Client) GetOrCreateUser(ctx context.Context, email string, nu NewUser) (*User, bool, error) {
	existing, err := c.FindUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, false, err
	}

	var created User
	err = c.manage(ctx, request{
		method: http.MethodPost,
		path:   "/api/v2/users",
		in: createUserRequest{
			Email:         email,
			Password:      nu.Password,
			Connection:    c.connection,
			EmailVerified: nu.EmailVerified,
			UserMetadata:  nu.UserMetadata,
		},
		out: &created,
	}, "auth0 connection", c.connection)
	if err != nil {
		return nil, false, err
	}

	slog.Info("Created auth0 user", "external_id", created.UserID, "email", email, "connection", c.connection)
	return &created, true, nil
}

// UpdateUser patches a user. Email and password changes are sent with the
// configured connection.
func (c *Client) UpdateUser(ctx context.Context, externalID string, upd UserUpdate) (*User, error) {
	if (upd.Email != nil || upd.Password != nil) && upd.Connection == "" {
		upd.Connection = c.connection
	}

	var u User
	err := c.manage(ctx, request{
		method: http.MethodPatch,
		path:   "/api/v2/users/" + url.PathEscape(externalID),
		in:     upd,
		out:    &u,
	}, "auth0 user", externalID)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
