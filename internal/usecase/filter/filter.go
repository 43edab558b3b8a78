// Package filter applies filter criteria to a dataset.
package filter

import (
	"github.com/kailas-cloud/flagdeck/internal/domain/criteria"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
)

// Apply returns the records of ds that satisfy c, in dataset order.
// Criteria are not validated here: min > max simply yields an empty view.
func Apply(ds record.Dataset, c criteria.Criteria) []record.Record {
	return ApplyRecords(ds.Records(), c)
}

// ApplyRecords filters an arbitrary record slice, preserving order.
// The input slice is not modified.
func ApplyRecords(records []record.Record, c criteria.Criteria) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
