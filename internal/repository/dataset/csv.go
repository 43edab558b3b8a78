package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/kailas-cloud/flagdeck/internal/domain/record"
)

func loadCSVFile(path string) ([]record.Record, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f)
}

// ReadCSV parses records from a CSV stream with a header row.
// Extra columns are ignored; the required columns may appear in any order.
func ReadCSV(r io.Reader) ([]record.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty source: no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	for rowID := 0; ; rowID++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", rowID, err)
		}

		get := func(col string) string {
			i := cols[col]
			if i >= len(row) {
				return ""
			}
			return row[i]
		}

		rec, err := buildRecord(rowID,
			get(record.ColumnURL),
			get(record.ColumnAttributeName),
			get(record.ColumnEntityName),
			get(record.ColumnPrediction),
			get(record.ColumnConfidence),
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}
