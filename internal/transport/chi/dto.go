package chi

import (
	"time"
)

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes returned by the API.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeSessionNotFound  ErrorCode = "session_not_found"
	ErrorCodeSessionLimit     ErrorCode = "session_limit"
	ErrorCodeRecordNotFound   ErrorCode = "record_not_found"
	ErrorCodeImageUnavailable ErrorCode = "image_unavailable"
	ErrorCodeNothingFlagged   ErrorCode = "nothing_flagged"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CriteriaBody is the wire form of filter criteria. Absent or "All" string fields are unconstrained.
type CriteriaBody struct {
	Attribute     *string  `json:"attribute,omitempty"`
	Entity        *string  `json:"entity,omitempty"`
	Prediction    *string  `json:"prediction,omitempty"`
	ConfidenceMin *float64 `json:"confidence_min,omitempty"`
	ConfidenceMax *float64 `json:"confidence_max,omitempty"`
}

// SessionResponse describes a session.
type SessionResponse struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Criteria  CriteriaBody `json:"criteria"`
	Theme     string       `json:"theme"`
	ViewSize  int          `json:"view_size"`
	Flagged   int          `json:"flagged"`
}

// OptionsResponse lists selector values. Each list starts with "All".
type OptionsResponse struct {
	Attributes  []string `json:"attributes"`
	Entities    []string `json:"entities"`
	Predictions []string `json:"predictions"`
}

// RecordItem is one dataset record.
type RecordItem struct {
	RowID         int     `json:"row_id"`
	URL           string  `json:"url"`
	AttributeName string  `json:"attribute_name"`
	EntityName    string  `json:"entity_name"`
	Prediction    string  `json:"prediction"`
	Confidence    float64 `json:"confidence"`
}

// RecordListResponse is a cursor page of the filtered view.
type RecordListResponse struct {
	Criteria   CriteriaBody `json:"criteria"`
	Items      []RecordItem `json:"items"`
	Total      int          `json:"total"`
	Empty      bool         `json:"empty"`
	HasMore    bool         `json:"has_more"`
	NextCursor *int         `json:"next_cursor,omitempty"`
}

// GalleryTile is a record whose image is reachable.
type GalleryTile struct {
	Record            RecordItem `json:"record"`
	ImageURL          string     `json:"image_url"`
	ContentType       string     `json:"content_type"`
	Width             int        `json:"width"`
	Height            int        `json:"height"`
	ConfidenceDisplay string     `json:"confidence_display"`
}

// GalleryResponse is a cursor page of gallery tiles.
type GalleryResponse struct {
	Tiles      []GalleryTile `json:"tiles"`
	Examined   int           `json:"examined"`
	Skipped    int           `json:"skipped"`
	Total      int           `json:"total"`
	Empty      bool          `json:"empty"`
	HasMore    bool          `json:"has_more"`
	NextCursor *int          `json:"next_cursor,omitempty"`
}

// FlagRequest flags a record by row id.
type FlagRequest struct {
	RowID *int `json:"row_id"`
}

// FlagResponse reports the outcome of a flag action.
type FlagResponse struct {
	Status  string     `json:"status"` // "added" / "already_flagged"
	Message string     `json:"message"`
	Record  RecordItem `json:"record"`
	Flagged int        `json:"flagged"`
}

// FlagListResponse summarizes the flagged set.
type FlagListResponse struct {
	Items []RecordItem `json:"items"`
	Total int          `json:"total"`
}

// PreferencesRequest sets display preferences.
type PreferencesRequest struct {
	Theme string `json:"theme"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Records  int               `json:"records"`
	Sessions int               `json:"sessions"`
}
