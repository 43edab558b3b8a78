package flagdeck

import "time"

// JSON shapes of the HTTP API.

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wireCriteria struct {
	Attribute     *string  `json:"attribute,omitempty"`
	Entity        *string  `json:"entity,omitempty"`
	Prediction    *string  `json:"prediction,omitempty"`
	ConfidenceMin *float64 `json:"confidence_min,omitempty"`
	ConfidenceMax *float64 `json:"confidence_max,omitempty"`
}

type wireSession struct {
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Criteria  wireCriteria `json:"criteria"`
	Theme     string       `json:"theme"`
	ViewSize  int          `json:"view_size"`
	Flagged   int          `json:"flagged"`
}

type wireOptions struct {
	Attributes  []string `json:"attributes"`
	Entities    []string `json:"entities"`
	Predictions []string `json:"predictions"`
}

type wireRecord struct {
	RowID         int     `json:"row_id"`
	URL           string  `json:"url"`
	AttributeName string  `json:"attribute_name"`
	EntityName    string  `json:"entity_name"`
	Prediction    string  `json:"prediction"`
	Confidence    float64 `json:"confidence"`
}

type wireRecordPage struct {
	Criteria   wireCriteria `json:"criteria"`
	Items      []wireRecord `json:"items"`
	Total      int          `json:"total"`
	NextCursor *int         `json:"next_cursor,omitempty"`
}

type wireTile struct {
	Record      wireRecord `json:"record"`
	ImageURL    string     `json:"image_url"`
	ContentType string     `json:"content_type"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
}

type wireGalleryPage struct {
	Tiles      []wireTile `json:"tiles"`
	Examined   int        `json:"examined"`
	Skipped    int        `json:"skipped"`
	Total      int        `json:"total"`
	NextCursor *int       `json:"next_cursor,omitempty"`
}

type wireFlagRequest struct {
	RowID int `json:"row_id"`
}

type wireFlagResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Record  wireRecord `json:"record"`
	Flagged int        `json:"flagged"`
}

type wireFlagList struct {
	Items []wireRecord `json:"items"`
	Total int          `json:"total"`
}

type wirePreferences struct {
	Theme string `json:"theme"`
}

type wireHealth struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Records  int               `json:"records"`
	Sessions int               `json:"sessions"`
}

func criteriaToWire(c Criteria) wireCriteria {
	lo, hi := c.ConfidenceMin, c.ConfidenceMax
	w := wireCriteria{ConfidenceMin: &lo, ConfidenceMax: &hi}
	if c.Attribute != "" {
		w.Attribute = &c.Attribute
	}
	if c.Entity != "" {
		w.Entity = &c.Entity
	}
	if c.Prediction != "" {
		w.Prediction = &c.Prediction
	}
	return w
}

func criteriaFromWire(w wireCriteria) Criteria {
	c := DefaultCriteria()
	c.Attribute = unAll(w.Attribute)
	c.Entity = unAll(w.Entity)
	c.Prediction = unAll(w.Prediction)
	if w.ConfidenceMin != nil {
		c.ConfidenceMin = *w.ConfidenceMin
	}
	if w.ConfidenceMax != nil {
		c.ConfidenceMax = *w.ConfidenceMax
	}
	return c
}

func unAll(s *string) string {
	if s == nil || *s == "All" {
		return ""
	}
	return *s
}

func sessionFromWire(w wireSession) SessionInfo {
	return SessionInfo{
		ID:        w.ID,
		CreatedAt: w.CreatedAt,
		Criteria:  criteriaFromWire(w.Criteria),
		Theme:     Theme(w.Theme),
		ViewSize:  w.ViewSize,
		Flagged:   w.Flagged,
	}
}

func recordFromWire(w wireRecord) Record {
	return Record(w)
}

func recordsFromWire(ws []wireRecord) []Record {
	out := make([]Record, len(ws))
	for i, w := range ws {
		out[i] = recordFromWire(w)
	}
	return out
}

func pageFromWire(w wireRecordPage) RecordPage {
	return RecordPage{
		Criteria:   criteriaFromWire(w.Criteria),
		Items:      recordsFromWire(w.Items),
		Total:      w.Total,
		NextCursor: w.NextCursor,
	}
}
