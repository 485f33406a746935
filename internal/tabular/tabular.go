// Package tabular holds the in-memory representation of an uploaded dataset
// and its on-disk CSV codec. The storage layer treats datasets as opaque
// tables; any survey-specific interpretation happens upstream.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Dataset is a rectangular table: a header row plus data rows. Rows are kept
// as strings; numeric conversion is the consumer's concern.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// RowCount returns the number of data rows (excluding the header).
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int {
	return len(d.Columns)
}

// Read parses a CSV stream into a Dataset. The first record is the header.
// An empty stream yields an empty dataset, not an error.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // defer shape checks to consumers

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}

	ds := &Dataset{}
	if len(records) == 0 {
		return ds, nil
	}

	ds.Columns = records[0]
	ds.Rows = records[1:]
	return ds, nil
}

// Write serializes the dataset as CSV, header first.
func (d *Dataset) Write(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(d.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, row := range d.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadFile loads a dataset from a CSV file.
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f)
}

// WriteFile stores the dataset as a CSV file.
func (d *Dataset) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
