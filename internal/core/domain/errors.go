package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrStateMissing indicates the provider callback carried no state parameter
	ErrStateMissing = errors.New("state is missing")

	// ErrCSRFMismatch indicates the state's CSRF token does not match the session
	ErrCSRFMismatch = errors.New("csrf token does not match")

	// ErrSessionNotFound indicates the browser session does not exist or expired
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotAuthenticated indicates the session has not completed sign-in
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAuthorizationURL indicates the authorization URL could not be built
	ErrAuthorizationURL = errors.New("failed to build authorization url")

	// ErrStateInvalid indicates the state parameter could not be decoded or verified
	ErrStateInvalid = errors.New("state is invalid")
)

// TokenExchangeError is returned when the token endpoint rejects a grant or
// the call fails outright. It carries the provider's error body so callers
// can decide whether to log, surface, or abandon.
type TokenExchangeError struct {
	// StatusCode is the HTTP status returned by the token endpoint,
	// or 0 for transport-level failures.
	StatusCode int

	// Code is the OAuth error code (e.g. "invalid_grant"), if present.
	Code string

	// Body is the raw provider error body.
	Body string

	// Err is the underlying transport error, if any.
	Err error
}

func (e *TokenExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("token exchange failed: %s (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("token exchange failed: status %d", e.StatusCode)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}
