package report

import (
	"strconv"

	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
)

// Column is one named output column. Names are the external contract read
// by downstream reporting; Value renders a row's cell.
type Column[T any] struct {
	Name  string
	Value func(T) string
}

// Schema is an ordered list of columns applied at serialization time.
type Schema[T any] []Column[T]

// Header returns the column names in order.
func (s Schema[T]) Header() []string {
	h := make([]string, len(s))
	for i, c := range s {
		h[i] = c.Name
	}
	return h
}

// Row renders v as one record in column order.
func (s Schema[T]) Row(v T) []string {
	r := make([]string, len(s))
	for i, c := range s {
		r[i] = c.Value(v)
	}
	return r
}

const dateLayout = "2006-01-02"

func str(v null.String) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

var joinedColumns = Schema[model.JoinedDeathRecord]{
	{"Region", func(r model.JoinedDeathRecord) string { return str(r.Region) }},
	{"Primary Center", func(r model.JoinedDeathRecord) string { return r.PrimaryCenter }},
	{"MR No.", func(r model.JoinedDeathRecord) string { return r.MRNo }},
	{"Patient Name", func(r model.JoinedDeathRecord) string { return r.PatientName }},
	{"Death Date", func(r model.JoinedDeathRecord) string { return r.DeathDate.Format(dateLayout) }},
	{"Death Time", func(r model.JoinedDeathRecord) string { return r.DeathTime }},
	{"Physical Discharge Remarks", func(r model.JoinedDeathRecord) string { return str(r.DischargeRemarks) }},
	{"Death Reason", func(r model.JoinedDeathRecord) string { return r.DeathReason }},
	{"Death Category", func(r model.JoinedDeathRecord) string { return str(r.DeathCategory) }},
	{"Sponsor", func(r model.JoinedDeathRecord) string { return str(r.Sponsor) }},
	{"Month", func(r model.JoinedDeathRecord) string { return r.Month }},
	{"Week", func(r model.JoinedDeathRecord) string { return strconv.Itoa(r.Week) }},
}

// JoinedSchema is the fixed joined-table layout followed by every
// passthrough column present in rows, in order of first appearance.
func JoinedSchema(rows []model.JoinedDeathRecord) Schema[model.JoinedDeathRecord] {
	s := append(Schema[model.JoinedDeathRecord]{}, joinedColumns...)
	for _, name := range ExtraNames(rows) {
		s = append(s, Column[model.JoinedDeathRecord]{
			Name: name,
			Value: func(r model.JoinedDeathRecord) string {
				v, _ := r.Extra(name)
				return v
			},
		})
	}
	return s
}

// ExtraNames lists the passthrough column names of rows in order of first
// appearance.
func ExtraNames(rows []model.JoinedDeathRecord) []string {
	var names []string
	seen := map[string]bool{}
	for _, r := range rows {
		for _, f := range r.Extras {
			if !seen[f.Name] {
				seen[f.Name] = true
				names = append(names, f.Name)
			}
		}
	}
	return names
}

// CountSchema is the monthly count layout for scope.
func CountSchema(scope model.Scope) Schema[model.CountRow] {
	var s Schema[model.CountRow]
	if scope != model.National {
		s = append(s, Column[model.CountRow]{"Region", func(r model.CountRow) string { return str(r.Region) }})
	}
	if scope == model.Facility {
		s = append(s, Column[model.CountRow]{"Primary Center", func(r model.CountRow) string { return str(r.Facility) }})
	}
	return append(s,
		Column[model.CountRow]{"Month", func(r model.CountRow) string { return r.Month }},
		Column[model.CountRow]{"Count", func(r model.CountRow) string { return strconv.Itoa(r.Count) }},
	)
}

// CategorySchema is the monthly cause-of-death layout for scope.
func CategorySchema(scope model.Scope) Schema[model.CategoryRow] {
	var s Schema[model.CategoryRow]
	if scope != model.National {
		s = append(s, Column[model.CategoryRow]{"Region", func(r model.CategoryRow) string { return str(r.Region) }})
	}
	if scope == model.Facility {
		s = append(s, Column[model.CategoryRow]{"Primary Center", func(r model.CategoryRow) string { return str(r.Facility) }})
	}
	return append(s,
		Column[model.CategoryRow]{"Month", func(r model.CategoryRow) string { return r.Month }},
		Column[model.CategoryRow]{"Death Category", func(r model.CategoryRow) string { return r.Category }},
		Column[model.CategoryRow]{"Count", func(r model.CategoryRow) string { return strconv.Itoa(r.Count) }},
		Column[model.CategoryRow]{"Percentage", func(r model.CategoryRow) string {
			return strconv.FormatFloat(r.Percentage, 'f', 2, 64)
		}},
	)
}

// WeeklySchema is the weekly death roster layout.
var WeeklySchema = Schema[model.WeeklyExtractRow]{
	{"Region", func(r model.WeeklyExtractRow) string { return str(r.Region) }},
	{"Clinics", func(r model.WeeklyExtractRow) string { return r.Clinics }},
	{"MR No.", func(r model.WeeklyExtractRow) string { return r.MRNo }},
	{"Patient Name", func(r model.WeeklyExtractRow) string { return r.PatientName }},
	{"Treatment", func(r model.WeeklyExtractRow) string { return r.Treatment }},
	{"Sponsor", func(r model.WeeklyExtractRow) string { return str(r.Sponsor) }},
	{"Date of Death", func(r model.WeeklyExtractRow) string { return r.DateOfDeath }},
	{"Cause of Death", func(r model.WeeklyExtractRow) string { return str(r.CauseOfDeath) }},
	{"Cause of Death Grouped", func(r model.WeeklyExtractRow) string { return r.CauseOfDeathGrouped }},
	{"Week", func(r model.WeeklyExtractRow) string { return strconv.Itoa(r.Week) }},
}
