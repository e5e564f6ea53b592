// Package errors provides structured error handling with error codes for siteuser.
//
// Four kinds of failure cross package boundaries:
//
//   - ErrCodeValidation: bad local input, reported to the caller and never retried
//   - ErrCodeAuthFailed: the identity provider could not be reached or answered badly
//   - ErrCodeNotFound: an expected absence (no remote record, no local row)
//   - ErrCodePermissionDenied: terminal authorization failure at login
//
// # Basic Usage
//
//	import "github.com/tendant/siteuser/pkg/errors"
//
//	if email == "" {
//		return nil, errors.Validation("email required")
//	}
//
//	resp, err := httpClient.Do(req)
//	if err != nil {
//		return "", errors.AuthError(err, "token request failed")
//	}
//
// # Error Inspection
//
//	if errors.IsNotFound(err) {
//		// fall back to defaults
//	}
//
// Structured errors survive fmt.Errorf("...: %w", err) wrapping, so the Is* helpers
// work on wrapped chains.
//
// # HTTP Status Code Mapping
//
//   - ErrCodeValidation → 400 Bad Request
//   - ErrCodePermissionDenied → 403 Forbidden
//   - ErrCodeNotFound → 404 Not Found
//   - ErrCodeAlreadyExists → 409 Conflict
//   - ErrCodeAuthFailed → 502 Bad Gateway
//   - anything else → 500 Internal Server Error
package errors
