// Package dataset loads the image record table from CSV or Parquet sources.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kailas-cloud/flagdeck/internal/domain"
	"github.com/kailas-cloud/flagdeck/internal/domain/record"
)

// Format identifies a dataset source format.
type Format string

const (
	// FormatCSV is a comma-delimited text table with a header row.
	FormatCSV Format = "csv"
	// FormatParquet is an Apache Parquet file.
	FormatParquet Format = "parquet"
)

// DetectFormat infers the source format from the file extension. Unknown extensions are CSV.
func DetectFormat(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return FormatParquet
	}
	return FormatCSV
}

// Load reads the dataset at path. format may be empty to detect it from the extension.
// Any failure wraps domain.ErrDatasetLoad.
func Load(path string, format Format) (record.Dataset, error) {
	if format == "" {
		format = DetectFormat(path)
	}

	var (
		records []record.Record
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = loadCSVFile(path)
	case FormatParquet:
		records, err = loadParquetFile(path)
	default:
		err = fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return record.Dataset{}, fmt.Errorf("%w: %s: %w", domain.ErrDatasetLoad, path, err)
	}
	return record.NewDataset(records), nil
}

// columnIndex maps required column names to their position in the source header.
type columnIndex map[string]int

func resolveColumns(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	var missing []string
	for _, col := range record.Columns() {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// buildRecord creates a record from raw column values.
func buildRecord(rowID int, url, attribute, entity, prediction, confidence string) (record.Record, error) {
	conf, err := strconv.ParseFloat(strings.TrimSpace(confidence), 64)
	if err != nil {
		return record.Record{}, fmt.Errorf("row %d: parse confidence %q: %w", rowID, confidence, err)
	}
	r, err := record.New(rowID, url, attribute, entity, prediction, conf)
	if err != nil {
		return record.Record{}, fmt.Errorf("row %d: %w", rowID, err)
	}
	return r, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return f, nil
}
