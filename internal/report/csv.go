package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// WriteCSV writes a header line and one record per row.
func WriteCSV[T any](w io.Writer, schema Schema[T], rows []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(schema.Row(r)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes rows to a new CSV file at path.
func WriteCSVFile[T any](path string, schema Schema[T], rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	bw := bufio.NewWriterSize(f, 256*1024)
	if err := WriteCSV(bw, schema, rows); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
