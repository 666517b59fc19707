package shortlink

import "errors"

var (
	// ErrNotFound is returned when no record exists for a code or id.
	ErrNotFound = errors.New("short link not found")

	// ErrInvalidURL is returned when the submitted URL does not parse as
	// an absolute URL after normalization.
	ErrInvalidURL = errors.New("invalid url")

	// ErrStorageUnavailable is returned when the registry is unreachable
	// or a registry operation timed out.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrCodeSpaceExhausted is returned when the issuer could not find a
	// collision-free code within its retry bound.
	ErrCodeSpaceExhausted = errors.New("short code space exhausted")

	// ErrCodeTaken is surfaced by the registry when a concurrent create
	// won the short-code unique constraint.
	ErrCodeTaken = errors.New("short code already taken")

	// ErrURLTaken is surfaced by the registry when a concurrent create
	// won the original-URL unique constraint.
	ErrURLTaken = errors.New("original url already registered")
)
