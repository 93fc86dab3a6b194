package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrMalformedInput indicates an input line could not be decoded
	ErrMalformedInput = errors.New("malformed input")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnsupported indicates a backend or operation is not supported
	ErrUnsupported = errors.New("unsupported")
)
