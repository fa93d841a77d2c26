package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet pairs a worksheet name with its rendered header and rows.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// NewSheet renders rows through schema into a named worksheet.
func NewSheet[T any](name string, schema Schema[T], rows []T) Sheet {
	s := Sheet{Name: name, Header: schema.Header(), Rows: make([][]string, len(rows))}
	for i, r := range rows {
		s.Rows[i] = schema.Row(r)
	}
	return s
}

// WriteXLSX writes each sheet to one workbook at path, in order. Excel
// limits sheet names to 31 characters.
func WriteXLSX(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("write xlsx %s: no sheets", path)
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("new sheet %s: %w", s.Name, err)
		}

		sw, err := f.NewStreamWriter(s.Name)
		if err != nil {
			return fmt.Errorf("stream writer %s: %w", s.Name, err)
		}
		if err := sw.SetRow("A1", cells(s.Header)); err != nil {
			return fmt.Errorf("write header %s: %w", s.Name, err)
		}
		for j, row := range s.Rows {
			axis, err := excelize.CoordinatesToCellName(1, j+2)
			if err != nil {
				return err
			}
			if err := sw.SetRow(axis, cells(row)); err != nil {
				return fmt.Errorf("write row %d of %s: %w", j, s.Name, err)
			}
		}
		if err := sw.Flush(); err != nil {
			return fmt.Errorf("flush %s: %w", s.Name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx: %w", err)
	}
	return nil
}

func cells(vals []string) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
