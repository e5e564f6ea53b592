package auth0

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ManagementTokenExpiry reads the expiry of the configured management token
// without verifying its signature. The zero time means the token carries no exp.
func (c *Client) ManagementTokenExpiry() (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(c.managementToken, &claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse management token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
