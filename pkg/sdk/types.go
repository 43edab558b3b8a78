package flagdeck

import "time"

// Criteria narrows the dataset. Empty string fields are unconstrained.
// ConfidenceMin and ConfidenceMax are inclusive and must satisfy 0 <= min <= max <= 1.
type Criteria struct {
	Attribute     string
	Entity        string
	Prediction    string
	ConfidenceMin float64
	ConfidenceMax float64
}

// DefaultCriteria leaves every field unconstrained.
func DefaultCriteria() Criteria {
	return Criteria{ConfidenceMin: 0, ConfidenceMax: 1}
}

// Theme is the session display preference.
type Theme string

// Theme constants.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// SessionInfo describes a review session.
type SessionInfo struct {
	ID        string
	CreatedAt time.Time
	Criteria  Criteria
	Theme     Theme
	ViewSize  int
	Flagged   int
}

// Options lists the selectable values. Each list starts with "All".
type Options struct {
	Attributes  []string
	Entities    []string
	Predictions []string
}

// Record is one dataset row.
type Record struct {
	RowID         int
	URL           string
	AttributeName string
	EntityName    string
	Prediction    string
	Confidence    float64
}

// RecordPage is a cursor page of the filtered view.
type RecordPage struct {
	Criteria   Criteria
	Items      []Record
	Total      int
	NextCursor *int // nil when the view is exhausted
}

// GalleryTile is a record whose image was fetched.
type GalleryTile struct {
	Record      Record
	ImageURL    string // API path serving the image bytes
	ContentType string
	Width       int
	Height      int
}

// GalleryPage is a cursor page of gallery tiles.
type GalleryPage struct {
	Tiles      []GalleryTile
	Examined   int
	Skipped    int
	Total      int
	NextCursor *int
}

// FlagResult is the outcome of a flag action.
type FlagResult struct {
	Added   bool // false when the record was already flagged
	Message string
	Record  Record
	Flagged int
}
