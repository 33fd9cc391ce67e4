package searchapi

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport wraps failures to reach the backend at all.
	ErrTransport = errors.New("network error occurred")

	// ErrMalformedResponse is returned when a response body is not the expected JSON envelope.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrRejected is returned when the backend answered with success=false.
	ErrRejected = errors.New("request rejected by server")

	// ErrInvalidPath is returned when a result path cannot be resolved to a URL.
	ErrInvalidPath = errors.New("invalid resource path")
)

// Fallback messages used when the backend does not say what went wrong.
const (
	FallbackUploadMessage = "upload failed"
	FallbackSearchMessage = "search failed"
)

// UploadError reports a failed upload phase.
type UploadError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	return e.Message
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// SearchError reports a failed search phase.
type SearchError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *SearchError) Error() string {
	return e.Message
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// malformed builds the wrapped error used for bodies that do not decode.
func malformed(status int, err error) error {
	return fmt.Errorf("%w (HTTP %d): %v", ErrMalformedResponse, status, err)
}

// IsUploadError reports whether err came from the upload phase.
func IsUploadError(err error) bool {
	var ue *UploadError
	return errors.As(err, &ue)
}

// IsSearchError reports whether err came from the search phase.
func IsSearchError(err error) bool {
	var se *SearchError
	return errors.As(err, &se)
}
