package catalog

import "errors"

// Sentinel errors for catalog operations.
var (
	// ErrBookNotFound is returned when the requested record does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrInvalidBookID is returned when the record ID format is invalid.
	ErrInvalidBookID = errors.New("invalid book ID format")

	// ErrInvalidBook is returned when a record is missing fields or carries unusable URLs.
	ErrInvalidBook = errors.New("invalid book record")
)
