package deployapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for deploy API operations.
var (
	// ErrRequestFailed is returned when the provider could not be reached at all.
	ErrRequestFailed = errors.New("deploy api request failed")

	// ErrUnexpectedStatus is matched by every *APIError.
	ErrUnexpectedStatus = errors.New("deploy api returned non-success status")

	// ErrMalformedResponse is returned when a create deploy response cannot be decoded
	// or lacks the deploy id or base URL.
	ErrMalformedResponse = errors.New("malformed deploy response")
)

// APIError carries the status and body of a non-2xx provider response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("deploy api returned status %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	return ErrUnexpectedStatus
}
