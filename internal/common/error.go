// Package common defines shared constants and sentinel errors used across
// the rback server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStorage wraps any persistence failure. Surfaced as a server error.
	ErrStorage = errors.New("storage error")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrAlreadyExists  = errors.New("already exists")
	ErrValidation     = errors.New("validation failed")
	ErrInvalidInput   = errors.New("invalid input")

	// ErrHashing reports a structurally invalid stored hash or unhashable input.
	ErrHashing = errors.New("hashing error")

	// Token codec errors.
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")

	// Refresh token lifecycle errors.
	ErrInvalidOrExpiredToken = errors.New("the provided refresh token is invalid or expired")
)
