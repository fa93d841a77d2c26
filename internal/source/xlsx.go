package source

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReadSheet loads one worksheet of a spreadsheet with the same contract as
// ReadCSV. An empty sheet name selects the first sheet.
func ReadSheet(source, path, sheet string, skip int, required []string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &SourceError{Source: source, Err: fmt.Errorf("open %s: %w", path, err)}
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &SourceError{Source: source, Err: fmt.Errorf("%w: workbook has no sheets", ErrEmptySource)}
		}
		sheet = sheets[0]
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, &SourceError{Source: source, Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(all) <= skip {
		return nil, &SourceError{Source: source, Err: fmt.Errorf("%w: missing column header", ErrEmptySource)}
	}

	header := all[skip]
	var rows [][]string
	var lines []int
	for i, row := range all[skip+1:] {
		if len(row) == 0 || blankRow(row) {
			continue
		}
		rows = append(rows, row)
		lines = append(lines, skip+i+2)
	}

	t, err := NewTable(source, header, rows, lines, required)
	if err != nil {
		return nil, err
	}
	t.Path = path
	return t, nil
}
