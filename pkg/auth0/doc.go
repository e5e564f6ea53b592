// Package auth0 is the client for the remote identity provider.
//
// The authentication API is used by the login flow (ExchangeAuthorizationCode,
// FetchUserInfo); the management API keeps user records in step with the local
// store (GetUser, FindUserByEmail, GetOrCreateUser, UpdateUser). Management calls
// authenticate with the static token from AUTH0_JWT.
//
// Failures are reported with pkg/errors codes: a 404 from the management API is
// NotFound, every other transport or response failure is an AuthError. Calls are
// never retried.
package auth0
