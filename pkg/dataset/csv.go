package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// LoadCSV reads a CSV file into a Table. The first record is the header row
// (column names); every data record must match its width.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("csv: parse %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses CSV data from r into a Table. See LoadCSV.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // width checked below for a clearer error
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty input (no header row)")
	}

	headers := records[0]
	rows := make([][]string, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(headers) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i+2, len(record), len(headers))
		}
		rows = append(rows, record)
	}

	return New(headers, rows)
}
