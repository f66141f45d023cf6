package common

import "errors"

// Callers should use errors.Is to match these values; most of them are
// returned wrapped with additional detail.
var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrVersionConflict = errors.New("version conflict")

	// ErrConcurrencyConflict is returned when draft operations race each
	// other; the caller has to re-fetch state before retrying.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// Input errors.
	ErrValidation           = errors.New("validation error")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
