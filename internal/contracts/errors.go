package contracts

import "errors"

var (
	// ErrNotFound is returned when a name is not registered for a kind.
	ErrNotFound = errors.New("not found")

	// ErrConnection marks failures to reach a remote source or service.
	ErrConnection = errors.New("connection failed")

	// ErrParse marks content that was fetched but could not be decoded.
	ErrParse = errors.New("parse failed")

	// ErrInvalidConfig marks configuration rejected by a module or its schema.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnsupported marks a request the implementation cannot serve.
	ErrUnsupported = errors.New("unsupported")

	// ErrNotInitialized is returned by operations that need Initialize first.
	ErrNotInitialized = errors.New("not initialized")
)
