package record

import (
	"fmt"
	"math"
	"strconv"
)

// Column names in declared order. Used for dataset loading and CSV export.
const (
	ColumnURL           = "url"
	ColumnAttributeName = "attribute_name"
	ColumnEntityName    = "entity_name"
	ColumnPrediction    = "prediction"
	ColumnConfidence    = "confidence"
)

// Columns returns the record column names in declared order.
func Columns() []string {
	return []string{ColumnURL, ColumnAttributeName, ColumnEntityName, ColumnPrediction, ColumnConfidence}
}

// Record is one row of the image dataset (immutable value object).
type Record struct {
	rowID         int
	url           string
	attributeName string
	entityName    string
	prediction    string
	confidence    float64
}

// New validates and creates a Record. Confidence must be within [0,1].
func New(rowID int, url, attributeName, entityName, prediction string, confidence float64) (Record, error) {
	if rowID < 0 {
		return Record{}, fmt.Errorf("row id must be non-negative, got %d", rowID)
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return Record{}, fmt.Errorf("confidence must be within [0,1], got %v", confidence)
	}
	return Reconstruct(rowID, url, attributeName, entityName, prediction, confidence), nil
}

// Reconstruct creates a Record without validation (storage hydration, tests).
func Reconstruct(rowID int, url, attributeName, entityName, prediction string, confidence float64) Record {
	return Record{
		rowID:         rowID,
		url:           url,
		attributeName: attributeName,
		entityName:    entityName,
		prediction:    prediction,
		confidence:    confidence,
	}
}

// RowID returns the positional identity within the loaded dataset.
func (r Record) RowID() int { return r.rowID }

// URL returns the image URL.
func (r Record) URL() string { return r.url }

// AttributeName returns the attribute name.
func (r Record) AttributeName() string { return r.attributeName }

// EntityName returns the entity name.
func (r Record) EntityName() string { return r.entityName }

// Prediction returns the prediction label.
func (r Record) Prediction() string { return r.prediction }

// Confidence returns the confidence score.
func (r Record) Confidence() float64 { return r.confidence }

// Values returns the field values in Columns order.
// Confidence uses the shortest representation that parses back to the same float.
func (r Record) Values() []string {
	return []string{
		r.url,
		r.attributeName,
		r.entityName,
		r.prediction,
		strconv.FormatFloat(r.confidence, 'f', -1, 64),
	}
}

// Key is the field-value identity of a record. row_id is not part of it:
// two rows with identical values share a key.
type Key struct {
	URL           string
	AttributeName string
	EntityName    string
	Prediction    string
	Confidence    float64
}

// Key returns the field-value identity used for flag deduplication.
func (r Record) Key() Key {
	return Key{
		URL:           r.url,
		AttributeName: r.attributeName,
		EntityName:    r.entityName,
		Prediction:    r.prediction,
		Confidence:    r.confidence,
	}
}

// SameValues reports whether two records carry identical field values.
func (r Record) SameValues(other Record) bool {
	return r.Key() == other.Key()
}
