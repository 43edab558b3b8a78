package record

// Dataset is the ordered, immutable set of records loaded at startup.
// Safe for concurrent reads.
type Dataset struct {
	records []Record
}

// NewDataset creates a Dataset. Row ids are reassigned to positional indexes.
func NewDataset(records []Record) Dataset {
	out := make([]Record, len(records))
	for i, r := range records {
		r.rowID = i
		out[i] = r
	}
	return Dataset{records: out}
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.records) }

// Records returns a copy of all records in load order.
func (d Dataset) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// At returns the record with the given row id.
func (d Dataset) At(rowID int) (Record, bool) {
	if rowID < 0 || rowID >= len(d.records) {
		return Record{}, false
	}
	return d.records[rowID], true
}

// Options holds the distinct selector values of a dataset.
type Options struct {
	Attributes  []string
	Entities    []string
	Predictions []string
}

// Options returns distinct attribute, entity and prediction values in first-seen order.
func (d Dataset) Options() Options {
	return Options{
		Attributes:  distinct(d.records, Record.AttributeName),
		Entities:    distinct(d.records, Record.EntityName),
		Predictions: distinct(d.records, Record.Prediction),
	}
}

func distinct(records []Record, field func(Record) string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		v := field(r)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
