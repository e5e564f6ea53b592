package auth0

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	apperrors "github.com/tendant/siteuser/pkg/errors"
)

// ExchangeAuthorizationCode trades an authorization code for an access token.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, code, redirectURI string) (string, error) {
	var token tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/oauth/token",
		in: tokenRequest{
			ClientID:     c.clientID,
			ClientSecret: c.clientSecret,
			RedirectURI:  redirectURI,
			Code:         code,
			GrantType:    "authorization_code",
		},
		out: &token,
	})
	if err != nil {
		return "", apperrors.AuthError(err, "token exchange failed")
	}
	if token.AccessToken == "" {
		return "", apperrors.AuthError(nil, "token response has no access_token")
	}

	slog.Debug("Token exchange successful", "token_type", token.TokenType, "expires_in", token.ExpiresIn)
	return token.AccessToken, nil
}

// FetchUserInfo returns the identity behind an access token.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	var raw map[string]json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/userinfo",
		query:  url.Values{"access_token": {accessToken}},
		out:    &raw,
	})
	if err != nil {
		return nil, apperrors.AuthError(err, "user info request failed")
	}

	info := &UserInfo{
		ExternalID:    stringField(raw, "user_id"),
		Email:         stringField(raw, "email"),
		EmailVerified: boolField(raw, "email_verified"),
		Name:          stringField(raw, "name"),
		GivenName:     stringField(raw, "given_name"),
		FamilyName:    stringField(raw, "family_name"),
	}
	if info.ExternalID == "" {
		info.ExternalID = stringField(raw, "sub")
	}
	if info.ExternalID == "" {
		return nil, apperrors.AuthError(nil, "user info has no user id")
	}

	slog.Info("User info retrieved", "external_id", info.ExternalID, "email", info.Email)
	return info, nil
}

func stringField(raw map[string]json.RawMessage, key string) string {
	var s string
	if v, ok := raw[key]; ok {
		_ = json.Unmarshal(v, &s)
	}
	return s
}

func boolField(raw map[string]json.RawMessage, key string) bool {
	var b bool
	if v, ok := raw[key]; ok {
		_ = json.Unmarshal(v, &b)
	}
	return b
}
