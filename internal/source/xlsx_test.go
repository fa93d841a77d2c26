package source

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeWorkbook creates a single-sheet workbook with the given rows.
func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "categories.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestReadSheet(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"MR No.", "Death Category"},
		{"MR001", "Cardiovascular"},
		{},
		{"MR002", "Infection"},
	})

	tbl, err := ReadSheet("death_category", path, "", 0, []string{"MR No.", "Death Category"})
	if err != nil {
		t.Fatalf("ReadSheet: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.Len())
	}
	if got := tbl.Value(tbl.Rows[1], "Death Category"); got != "Infection" {
		t.Errorf("Death Category = %q, want %q", got, "Infection")
	}
	if tbl.Line(1) != 4 {
		t.Errorf("Line(1) = %d, want 4", tbl.Line(1))
	}
}

func TestReadSheetMissingColumn(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"MR No.", "Category"},
		{"MR001", "Cardiovascular"},
	})

	_, err := ReadSheet("death_category", path, "", 0, []string{"MR No.", "Death Category"})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestReadSheetUnknownSheet(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{{"MR No."}, {"MR001"}})

	if _, err := ReadSheet("death_category", path, "Nope", 0, nil); err == nil {
		t.Fatal("expected error for unknown sheet")
	}
}
