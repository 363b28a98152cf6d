// Package common defines shared constants, sentinel errors and small random
// helpers used across the trade portal server and tools. Callers should use
// errors.Is to match the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// State machine errors. These are never retried.
	ErrInvalidState = errors.New("invalid state transition")
	ErrNoOwner      = errors.New("message has no owning document")

	// Node token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
