// Package flag holds a session's deduplicated flagged set and its CSV export.
package flag

import (
	"bytes"
	"encoding/csv"
	"fmt"

	domflag "github.com/kailas-cloud/flagdeck/internal/domain/flag"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
)

// Store is the append-only flagged set of one session.
// Not safe for concurrent use; the owning session serializes access.
type Store struct {
	records []record.Record
	keys    map[record.Key]struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{keys: make(map[record.Key]struct{})}
}

// Add appends r unless a record with identical field values is already flagged.
func (s *Store) Add(r record.Record) domflag.Result {
	k := r.Key()
	if _, ok := s.keys[k]; ok {
		return domflag.AlreadyFlagged
	}
	s.keys[k] = struct{}{}
	s.records = append(s.records, r)
	return domflag.Added
}

// Contains reports whether a record with r's field values is flagged.
func (s *Store) Contains(r record.Record) bool {
	_, ok := s.keys[r.Key()]
	return ok
}

// Len returns the number of flagged records.
func (s *Store) Len() int { return len(s.records) }

// Records returns a copy of the flagged records in flag order.
func (s *Store) Records() []record.Record {
	out := make([]record.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Export serializes the flagged set as CSV with a header row.
// An empty store yields a header-only payload.
func (s *Store) Export() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(record.Columns()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, r := range s.records {
		if err := w.Write(r.Values()); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r.RowID(), err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
