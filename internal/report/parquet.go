package report

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
)

// JoinedRow is the parquet layout of the joined table. Passthrough columns
// are stored as a repeated name/value group since their set varies between
// snapshots.
type JoinedRow struct {
	Region           *string       `parquet:"region,optional"`
	PrimaryCenter    string        `parquet:"primary_center"`
	MRNo             string        `parquet:"mr_no"`
	PatientName      string        `parquet:"patient_name"`
	DeathDate        string        `parquet:"death_date"`
	DeathTime        string        `parquet:"death_time"`
	DischargeRemarks *string       `parquet:"physical_discharge_remarks,optional"`
	DeathReason      string        `parquet:"death_reason"`
	DeathCategory    *string       `parquet:"death_category,optional"`
	Sponsor          *string       `parquet:"sponsor,optional"`
	Month            string        `parquet:"month"`
	Week             int32         `parquet:"week"`
	Extras           []ExtraColumn `parquet:"extras,list"`
}

type ExtraColumn struct {
	Name  string `parquet:"name"`
	Value string `parquet:"value"`
}

// CountRow is the parquet layout of a count table. Region and primary
// center are null at the scopes that do not group by them.
type CountRow struct {
	Region        *string `parquet:"region,optional"`
	PrimaryCenter *string `parquet:"primary_center,optional"`
	Month         string  `parquet:"month"`
	Count         int64   `parquet:"count"`
}

type CategoryRow struct {
	Region        *string `parquet:"region,optional"`
	PrimaryCenter *string `parquet:"primary_center,optional"`
	Month         string  `parquet:"month"`
	DeathCategory string  `parquet:"death_category"`
	Count         int64   `parquet:"count"`
	Percentage    float64 `parquet:"percentage"`
}

type WeeklyRow struct {
	Region              *string `parquet:"region,optional"`
	Clinics             string  `parquet:"clinics"`
	MRNo                string  `parquet:"mr_no"`
	PatientName         string  `parquet:"patient_name"`
	Treatment           string  `parquet:"treatment"`
	Sponsor             *string `parquet:"sponsor,optional"`
	DateOfDeath         string  `parquet:"date_of_death"`
	CauseOfDeath        *string `parquet:"cause_of_death,optional"`
	CauseOfDeathGrouped string  `parquet:"cause_of_death_grouped"`
	Week                int32   `parquet:"week"`
}

func ptr(v null.String) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toJoinedRows(rows []model.JoinedDeathRecord) []JoinedRow {
	out := make([]JoinedRow, len(rows))
	for i, r := range rows {
		jr := JoinedRow{
			Region:           ptr(r.Region),
			PrimaryCenter:    r.PrimaryCenter,
			MRNo:             r.MRNo,
			PatientName:      r.PatientName,
			DeathDate:        r.DeathDate.Format(dateLayout),
			DeathTime:        r.DeathTime,
			DischargeRemarks: ptr(r.DischargeRemarks),
			DeathReason:      r.DeathReason,
			DeathCategory:    ptr(r.DeathCategory),
			Sponsor:          ptr(r.Sponsor),
			Month:            r.Month,
			Week:             int32(r.Week),
		}
		for _, f := range r.Extras {
			jr.Extras = append(jr.Extras, ExtraColumn{Name: f.Name, Value: f.Value})
		}
		out[i] = jr
	}
	return out
}

func toCountRows(rows []model.CountRow) []CountRow {
	out := make([]CountRow, len(rows))
	for i, r := range rows {
		out[i] = CountRow{
			Region:        ptr(r.Region),
			PrimaryCenter: ptr(r.Facility),
			Month:         r.Month,
			Count:         int64(r.Count),
		}
	}
	return out
}

func toCategoryRows(rows []model.CategoryRow) []CategoryRow {
	out := make([]CategoryRow, len(rows))
	for i, r := range rows {
		out[i] = CategoryRow{
			Region:        ptr(r.Region),
			PrimaryCenter: ptr(r.Facility),
			Month:         r.Month,
			DeathCategory: r.Category,
			Count:         int64(r.Count),
			Percentage:    r.Percentage,
		}
	}
	return out
}

func toWeeklyRows(rows []model.WeeklyExtractRow) []WeeklyRow {
	out := make([]WeeklyRow, len(rows))
	for i, r := range rows {
		out[i] = WeeklyRow{
			Region:              ptr(r.Region),
			Clinics:             r.Clinics,
			MRNo:                r.MRNo,
			PatientName:         r.PatientName,
			Treatment:           r.Treatment,
			Sponsor:             ptr(r.Sponsor),
			DateOfDeath:         r.DateOfDeath,
			CauseOfDeath:        ptr(r.CauseOfDeath),
			CauseOfDeathGrouped: r.CauseOfDeathGrouped,
			Week:                int32(r.Week),
		}
	}
	return out
}

// TableWriter writes rows of one parquet layout to a file.
//
// Report tables are small (one row per death, or per group), so a single
// row group per file is the norm; zstd keeps the files compact for
// archiving alongside the CSV output.
type TableWriter[T any] struct {
	file   *os.File
	writer *parquet.GenericWriter[T]
	count  int
}

// NewTableWriter creates the file at path and a zstd-compressed writer.
func NewTableWriter[T any](path string) (*TableWriter[T], error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[T](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.PageBufferSize(8*1024),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("mortalitytool", "1.0", ""),
	)

	return &TableWriter[T]{file: file, writer: writer}, nil
}

// Write appends a batch of rows.
func (w *TableWriter[T]) Write(rows []T) (int, error) {
	n, err := w.writer.Write(rows)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// Close flushes the final row group and closes the file.
func (w *TableWriter[T]) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the total number of rows written.
func (w *TableWriter[T]) Count() int {
	return w.count
}

// WriteParquetFile writes rows to a new parquet file at path.
func WriteParquetFile[T any](path string, rows []T) error {
	w, err := NewTableWriter[T](path)
	if err != nil {
		return err
	}
	if _, err := w.Write(rows); err != nil {
		w.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return w.Close()
}
