package bookform

import (
	"errors"
	"fmt"
)

// Input errors. Validate wraps them in *ValidationError.
var (
	ErrMissingField    = errors.New("all fields are required")
	ErrMissingFile     = errors.New("select both a cover image and a book file")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

// Transport and protocol errors.
var (
	// ErrConnectivity is returned when the relay cannot be reached.
	ErrConnectivity = errors.New("could not reach the upload server, check your connection")

	// ErrServer is matched by every *ServerError.
	ErrServer = errors.New("upload server rejected the request")

	// ErrProtocol is returned when a response lacks the success flag or either URL.
	ErrProtocol = errors.New("upload server returned no file URLs")
)

// ValidationError names the form field that failed.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ServerError carries a non-2xx response.
type ServerError struct {
	Status int
	Body   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("upload failed with status %d: %s", e.Status, e.Body)
}

func (e *ServerError) Unwrap() error {
	return ErrServer
}
