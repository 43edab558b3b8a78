package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound signals a missing or expired session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionLimit signals that the session registry is full.
	ErrSessionLimit = errors.New("too many active sessions")
	// ErrRecordNotFound signals an unknown row id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidCriteria signals filter criteria outside [0,1] or with min > max.
	ErrInvalidCriteria = errors.New("invalid filter criteria")
	// ErrNothingFlagged signals an export request on an empty flagged set.
	ErrNothingFlagged = errors.New("no images flagged to download")
	// ErrImageUnavailable signals a failed image fetch (HTTP status, network or decode).
	ErrImageUnavailable = errors.New("image unavailable")
	// ErrInvalidTheme signals an unknown display theme.
	ErrInvalidTheme = errors.New("invalid theme")
	// ErrDatasetLoad signals an unreadable or malformed dataset source.
	ErrDatasetLoad = errors.New("dataset load failed")
)

// FetchError wraps ErrImageUnavailable with the failure stage for diagnostics.
// Callers never surface the stage to end users.
type FetchError struct {
	Stage string // "status", "network", "decode"
	URL   string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrImageUnavailable.Error(), e.Stage, e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrImageUnavailable, e.Err} }

// Fetch failure stages.
const (
	FetchStageStatus  = "status"
	FetchStageNetwork = "network"
	FetchStageDecode  = "decode"
)

// NewFetchError creates a FetchError.
func NewFetchError(stage, url string, err error) error {
	return &FetchError{Stage: stage, URL: url, Err: err}
}
