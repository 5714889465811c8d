package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check them with errors.Is; the API layer maps them to status codes.
var (
	// ErrForbidden indicates the policy denied the caller, typically because
	// the task is owned by a different user. API layer should map this to
	// HTTP 403 Forbidden.
	ErrForbidden = errors.New("resource is owned by another user")

	// ErrInvalidCredentials indicates an unknown username or a wrong password.
	// The two cases are deliberately indistinguishable to callers.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
