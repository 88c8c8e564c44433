package engine

import "errors"

// Domain error taxonomy. Every rejected operation returns one of these,
// possibly wrapped with detail, so callers can classify with errors.Is and
// never mistake a rejection for a successful no-op.
var (
	// ErrInvalidPhase indicates an operation attempted outside its legal phase.
	ErrInvalidPhase = errors.New("invalid phase for operation")

	// ErrUnauthorized indicates a GM-only operation without GM authorization.
	ErrUnauthorized = errors.New("gm authorization required")

	// ErrNotFound indicates an unknown participant id.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a rejected input: allocation sum mismatch,
	// bonus split not summing exactly, duplicate or over-long name.
	ErrValidation = errors.New("validation failed")
)
