package dataset

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/flagdeck/internal/domain/record"
)

// parquetColumns holds leaf-level column indexes of the required columns.
type parquetColumns struct {
	url        int
	attribute  int
	entity     int
	prediction int
	confidence int
}

func resolveParquetColumns(pf *parquet.File) (parquetColumns, error) {
	names := make([]string, 0)
	for _, path := range pf.Schema().Columns() {
		if len(path) == 0 {
			names = append(names, "")
			continue
		}
		names = append(names, path[0])
	}
	idx, err := resolveColumns(names)
	if err != nil {
		return parquetColumns{}, err
	}
	return parquetColumns{
		url:        idx[record.ColumnURL],
		attribute:  idx[record.ColumnAttributeName],
		entity:     idx[record.ColumnEntityName],
		prediction: idx[record.ColumnPrediction],
		confidence: idx[record.ColumnConfidence],
	}, nil
}

func loadParquetFile(path string) ([]record.Record, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return readParquet(pf)
}

func readParquet(pf *parquet.File) ([]record.Record, error) {
	cols, err := resolveParquetColumns(pf)
	if err != nil {
		return nil, err
	}

	var records []record.Record
	rowID := 0
	buf := make([]parquet.Row, 512)

	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				rec, err := rowToRecord(buf[i], cols, rowID)
				if err != nil {
					return nil, err
				}
				records = append(records, rec)
				rowID++
			}

			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return nil, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}

	return records, nil
}

func rowToRecord(row parquet.Row, cols parquetColumns, rowID int) (record.Record, error) {
	var url, attribute, entity, prediction, confidence string

	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case cols.url:
			url = v.String()
		case cols.attribute:
			attribute = v.String()
		case cols.entity:
			entity = v.String()
		case cols.prediction:
			prediction = v.String()
		case cols.confidence:
			confidence = numericString(v)
		}
	}

	return buildRecord(rowID, url, attribute, entity, prediction, confidence)
}

// numericString renders a parquet value so buildRecord can parse it,
// accepting both numeric and text confidence columns.
func numericString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	default:
		return v.String()
	}
}
