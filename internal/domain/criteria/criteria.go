package criteria

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/flagdeck/internal/domain/record"
)

// All is the wire sentinel for an unconstrained selector.
const All = "All"

// Criteria is the set of user-chosen constraints narrowing the dataset (value object).
// A nil string field means no constraint on that field.
type Criteria struct {
	attribute     *string
	entity        *string
	prediction    *string
	confidenceMin float64
	confidenceMax float64
}

// Default returns criteria with every field unconstrained and confidence range [0,1].
func Default() Criteria {
	return Criteria{confidenceMin: 0, confidenceMax: 1}
}

// New creates Criteria without validation. Empty strings and All are treated as absent.
func New(attribute, entity, prediction *string, confidenceMin, confidenceMax float64) Criteria {
	return Criteria{
		attribute:     normalize(attribute),
		entity:        normalize(entity),
		prediction:    normalize(prediction),
		confidenceMin: confidenceMin,
		confidenceMax: confidenceMax,
	}
}

// Validate checks 0 <= min <= max <= 1.
func (c Criteria) Validate() error {
	if math.IsNaN(c.confidenceMin) || math.IsNaN(c.confidenceMax) {
		return fmt.Errorf("confidence bounds must be numbers")
	}
	if c.confidenceMin < 0 || c.confidenceMin > 1 {
		return fmt.Errorf("confidence_min must be within [0,1], got %v", c.confidenceMin)
	}
	if c.confidenceMax < 0 || c.confidenceMax > 1 {
		return fmt.Errorf("confidence_max must be within [0,1], got %v", c.confidenceMax)
	}
	if c.confidenceMin > c.confidenceMax {
		return fmt.Errorf("confidence_min %v exceeds confidence_max %v", c.confidenceMin, c.confidenceMax)
	}
	return nil
}

// Attribute returns the attribute constraint, nil if unconstrained.
func (c Criteria) Attribute() *string { return c.attribute }

// Entity returns the entity constraint, nil if unconstrained.
func (c Criteria) Entity() *string { return c.entity }

// Prediction returns the prediction constraint, nil if unconstrained.
func (c Criteria) Prediction() *string { return c.prediction }

// ConfidenceMin returns the inclusive lower confidence bound.
func (c Criteria) ConfidenceMin() float64 { return c.confidenceMin }

// ConfidenceMax returns the inclusive upper confidence bound.
func (c Criteria) ConfidenceMax() float64 { return c.confidenceMax }

// IsDefault reports whether the criteria leave the dataset unconstrained.
func (c Criteria) IsDefault() bool {
	return c.attribute == nil && c.entity == nil && c.prediction == nil &&
		c.confidenceMin <= 0 && c.confidenceMax >= 1
}

// Matches reports whether r satisfies every present predicate.
func (c Criteria) Matches(r record.Record) bool {
	if c.attribute != nil && *c.attribute != r.AttributeName() {
		return false
	}
	if c.entity != nil && *c.entity != r.EntityName() {
		return false
	}
	if c.prediction != nil && *c.prediction != r.Prediction() {
		return false
	}
	return c.confidenceMin <= r.Confidence() && r.Confidence() <= c.confidenceMax
}

func normalize(s *string) *string {
	if s == nil || *s == "" || *s == All {
		return nil
	}
	v := *s
	return &v
}
