package relay

import (
	"errors"
	"fmt"
)

// Sentinel errors for relay operations.
var (
	// ErrNotConfigured is returned when the deploy token or site id is missing.
	ErrNotConfigured = errors.New("server not configured: set NETLIFY_AUTH_TOKEN and NETLIFY_SITE_ID")

	// ErrMalformedRequest is returned when the body is not a readable multipart form.
	ErrMalformedRequest = errors.New("invalid multipart request")

	// ErrUnsupportedType is returned when a part's MIME type is not allowed.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge is returned when the request or a part exceeds its byte ceiling.
	ErrTooLarge = errors.New("upload exceeds size limit")

	// ErrMissingPart is returned when the cover or the pdf is absent.
	ErrMissingPart = errors.New("both cover and pdf files are required")

	// ErrDeployFailed is returned when the create deploy call fails.
	ErrDeployFailed = errors.New("failed to create deploy")

	// ErrUploadFailed is matched by every *FileUploadError.
	ErrUploadFailed = errors.New("failed to upload file")

	// ErrInvalidTransition is returned when the publish state machine is driven out of order.
	ErrInvalidTransition = errors.New("invalid publish state transition")
)

// IsBadInput reports whether err is the caller's fault.
func IsBadInput(err error) bool {
	return errors.Is(err, ErrMalformedRequest) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrTooLarge) ||
		errors.Is(err, ErrMissingPart)
}

// FileUploadError reports which required file failed during phase two.
type FileUploadError struct {
	Path string
	Err  error
}

func (e *FileUploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.Path, e.Err)
}

func (e *FileUploadError) Unwrap() []error {
	return []error{ErrUploadFailed, e.Err}
}
