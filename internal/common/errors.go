// Package common defines shared constants, sentinel errors and small helpers
// used across the nizamla server and admin tooling. Callers should use
// errors.Is to match the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrStoreUnavailable wraps infrastructure failures of the durable store.
	// It is never a statement about the validity of the caller's input.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")

	// Access token errors (invalid or malformed, expired).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidOrExpiredRefreshToken is returned for unknown, expired and
	// already used refresh tokens alike.
	ErrInvalidOrExpiredRefreshToken = errors.New("invalid or expired refresh token")

	// ErrConfiguration is fatal at startup.
	ErrConfiguration = errors.New("configuration error")
)
