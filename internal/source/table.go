package source

import (
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
)

// Table is a fully loaded source extract: a validated header plus its data
// rows. Lookups are by column name; callers never index rows directly.
type Table struct {
	Source string
	Path   string
	Header []string
	Rows   [][]string

	// lines holds the 1-based file line (or sheet row) of each data row.
	lines []int

	colIdx map[string]int
}

// NewTable builds a Table and checks that every required column is present
// and that there is at least one data row. lines may be nil, in which case
// rows are numbered from 2 as if the header were line 1.
func NewTable(source string, header []string, rows [][]string, lines []int, required []string) (*Table, error) {
	t := &Table{
		Source: source,
		Header: make([]string, len(header)),
		Rows:   rows,
		lines:  lines,
		colIdx: make(map[string]int, len(header)),
	}
	for i, h := range header {
		h = normalizeHeader(h)
		t.Header[i] = h
		// First occurrence wins on duplicated header names.
		if _, ok := t.colIdx[h]; !ok {
			t.colIdx[h] = i
		}
	}

	var missing []string
	for _, col := range required {
		if _, ok := t.colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SourceError{
			Source: source,
			Err:    fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", ")),
		}
	}
	if len(rows) == 0 {
		return nil, &SourceError{Source: source, Err: ErrEmptySource}
	}
	return t, nil
}

// normalizeHeader trims whitespace and a leading UTF-8 BOM.
func normalizeHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

// Has reports whether the column exists.
func (t *Table) Has(col string) bool {
	_, ok := t.colIdx[col]
	return ok
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Line returns the file line of data row i.
func (t *Table) Line(i int) int {
	if i < len(t.lines) {
		return t.lines[i]
	}
	return i + 2
}

// Value returns the trimmed cell for col, or "" when the column is absent
// or the row is short.
func (t *Table) Value(row []string, col string) string {
	if i, ok := t.colIdx[col]; ok && i < len(row) {
		return strings.ToValidUTF8(strings.TrimSpace(row[i]), "\uFFFD")
	}
	return ""
}

// Opt is Value with blank cells mapped to null.
func (t *Table) Opt(row []string, col string) null.String {
	v := t.Value(row, col)
	return null.NewString(v, v != "")
}

// Fields returns the (name, value) pairs of row for every column not in
// skip, in header order.
func (t *Table) Fields(row []string, skip map[string]bool) []model.Field {
	var out []model.Field
	for i, h := range t.Header {
		if skip[h] || t.colIdx[h] != i {
			continue
		}
		v := ""
		if i < len(row) {
			v = strings.ToValidUTF8(strings.TrimSpace(row[i]), "\uFFFD")
		}
		out = append(out, model.Field{Name: h, Value: v})
	}
	return out
}

// blankRow reports whether every cell of row is empty.
func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
