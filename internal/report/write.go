package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mortalitytool/internal/model"
	"mortalitytool/internal/pipeline"
)

// Format is an output file format.
type Format string

const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
	XLSX    Format = "xlsx"
)

// ParseFormats parses a comma separated format list. Duplicates collapse;
// an empty list means CSV only.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, p := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(p)))
		if f == "" {
			continue
		}
		switch f {
		case CSV, Parquet, XLSX:
		default:
			return nil, fmt.Errorf("unknown output format %q", p)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		out = []Format{CSV}
	}
	return out, nil
}

// File names, without extension, of each table a run produces.
const (
	JoinedTable    = "joined_deaths"
	CountsTable    = "death_counts"
	CategoryTable  = "death_categories"
	WeeklyTable    = "weekly_deaths"
	WorkbookName   = "mortality_report"
	weeklyNameForm = "%s_w%02d"
)

// TableName is the base file name of a per-scope aggregate table.
func TableName(base string, scope model.Scope) string {
	return base + "_" + scope.String()
}

// WeeklyName is the base file name of the roster for week.
func WeeklyName(week int) string {
	return fmt.Sprintf(weeklyNameForm, WeeklyTable, week)
}

// WriteResult writes every table of res into dir in each format and returns
// the paths written. CSV and parquet produce one file per table. XLSX
// produces a single workbook with one sheet per table, plus a separate
// workbook for the weekly roster.
func WriteResult(dir string, res *pipeline.Result, formats []Format) ([]string, error) {
	return write(dir, formats, resultTables(res), func() ([]string, error) {
		return writeWorkbooks(dir, res)
	})
}

// WriteWeekly writes only the weekly roster of res in each format.
func WriteWeekly(dir string, res *pipeline.Result, formats []Format) ([]string, error) {
	if res.Week == 0 {
		return nil, fmt.Errorf("result has no weekly roster")
	}
	return write(dir, formats, []table{weeklyTable(res)}, func() ([]string, error) {
		p, err := writeWeeklyWorkbook(dir, res)
		if err != nil {
			return nil, err
		}
		return []string{p}, nil
	})
}

func write(dir string, formats []Format, tables []table, workbooks func() ([]string, error)) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	for _, f := range formats {
		if f == XLSX {
			paths, err := workbooks()
			written = append(written, paths...)
			if err != nil {
				return written, err
			}
			continue
		}
		for _, t := range tables {
			p := filepath.Join(dir, t.name+"."+string(f))
			if err := t.write(f, p); err != nil {
				return written, err
			}
			written = append(written, p)
		}
	}
	return written, nil
}

// table is one output table with its per-format file writers.
type table struct {
	name    string
	csv     func(path string) error
	parquet func(path string) error
}

func (t table) write(f Format, path string) error {
	switch f {
	case CSV:
		return t.csv(path)
	case Parquet:
		return t.parquet(path)
	}
	return fmt.Errorf("unknown output format %q", f)
}

func resultTables(res *pipeline.Result) []table {
	tables := []table{{
		name:    JoinedTable,
		csv:     func(p string) error { return WriteCSVFile(p, JoinedSchema(res.Joined), res.Joined) },
		parquet: func(p string) error { return WriteParquetFile(p, toJoinedRows(res.Joined)) },
	}}
	for _, s := range model.Scopes {
		counts, cats := res.Aggregates.Counts[s], res.Aggregates.Categories[s]
		tables = append(tables,
			table{
				name:    TableName(CountsTable, s),
				csv:     func(p string) error { return WriteCSVFile(p, CountSchema(s), counts) },
				parquet: func(p string) error { return WriteParquetFile(p, toCountRows(counts)) },
			},
			table{
				name:    TableName(CategoryTable, s),
				csv:     func(p string) error { return WriteCSVFile(p, CategorySchema(s), cats) },
				parquet: func(p string) error { return WriteParquetFile(p, toCategoryRows(cats)) },
			},
		)
	}
	if res.Week > 0 {
		tables = append(tables, weeklyTable(res))
	}
	return tables
}

func weeklyTable(res *pipeline.Result) table {
	return table{
		name:    WeeklyName(res.Week),
		csv:     func(p string) error { return WriteCSVFile(p, WeeklySchema, res.Weekly) },
		parquet: func(p string) error { return WriteParquetFile(p, toWeeklyRows(res.Weekly)) },
	}
}

func writeWorkbooks(dir string, res *pipeline.Result) ([]string, error) {
	sheets := []Sheet{NewSheet("joined", JoinedSchema(res.Joined), res.Joined)}
	for _, s := range model.Scopes {
		sheets = append(sheets,
			NewSheet("counts_"+s.String(), CountSchema(s), res.Aggregates.Counts[s]),
			NewSheet("categories_"+s.String(), CategorySchema(s), res.Aggregates.Categories[s]),
		)
	}

	report := filepath.Join(dir, WorkbookName+".xlsx")
	if err := WriteXLSX(report, sheets...); err != nil {
		return nil, err
	}
	paths := []string{report}

	if res.Week > 0 {
		p, err := writeWeeklyWorkbook(dir, res)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeWeeklyWorkbook(dir string, res *pipeline.Result) (string, error) {
	p := filepath.Join(dir, WeeklyName(res.Week)+".xlsx")
	if err := WriteXLSX(p, NewSheet(fmt.Sprintf("week %d", res.Week), WeeklySchema, res.Weekly)); err != nil {
		return "", err
	}
	return p, nil
}
