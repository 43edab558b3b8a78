package flagdeck

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/flagdeck/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrSessionNotFound  = domain.ErrSessionNotFound
	ErrSessionLimit     = domain.ErrSessionLimit
	ErrRecordNotFound   = domain.ErrRecordNotFound
	ErrNothingFlagged   = domain.ErrNothingFlagged
	ErrImageUnavailable = domain.ErrImageUnavailable

	// ErrInvalidRequest covers rejected input: bad criteria, theme or paging.
	ErrInvalidRequest = errors.New("flagdeck: invalid request")
	// ErrUnauthorized signals a missing or rejected API key.
	ErrUnauthorized = errors.New("flagdeck: unauthorized")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flagdeck: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the server error code onto a sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "session_not_found":
		return ErrSessionNotFound
	case "session_limit":
		return ErrSessionLimit
	case "record_not_found":
		return ErrRecordNotFound
	case "nothing_flagged":
		return ErrNothingFlagged
	case "image_unavailable":
		return ErrImageUnavailable
	case "validation_failed", "bad_request":
		return ErrInvalidRequest
	case "unauthorized":
		return ErrUnauthorized
	default:
		return nil
	}
}
