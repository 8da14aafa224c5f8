// Package common defines shared constants and sentinel errors used across
// accountd components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorUnavailable   = errors.New("store unavailable")

	// Validation errors.
	ErrorMissingField = errors.New("missing field")

	// Auth errors.
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorUnauthenticated    = errors.New("unauthenticated")
	ErrorForbidden          = errors.New("forbidden")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
)
