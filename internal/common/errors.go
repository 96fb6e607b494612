// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound          = errors.New("not found")
	ErrorRepositoryMissing = errors.New("repository does not exist")

	// Precondition violations. Never retried.
	ErrorEmptyPath      = errors.New("path must not be empty")
	ErrorUnknownHandler = errors.New("unknown script handler")

	// Input document errors.
	ErrorMalformedHAR = errors.New("malformed HAR document")

	// Auth errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
)
