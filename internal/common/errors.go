// Package common defines shared constants and sentinel errors used across
// client and server layers of authkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound   = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrConflict       = errors.New("already exists")
	ErrInvalidInput   = errors.New("invalid input")

	// Auth errors (invalid, malformed, expired or forged token).
	ErrInvalidToken = errors.New("invalid token")
)
