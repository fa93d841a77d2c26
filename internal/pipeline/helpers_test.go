package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
	"mortalitytool/internal/refdata"
	"mortalitytool/internal/source"
)

// newTable builds a validated source table from literal rows.
func newTable(t *testing.T, spec source.Spec, header []string, rows ...[]string) *source.Table {
	t.Helper()
	tbl, err := source.NewTable(spec.Name, header, rows, nil, spec.Required)
	if err != nil {
		t.Fatalf("NewTable(%s): %v", spec.Name, err)
	}
	return tbl
}

func newRef(t *testing.T, regions, overrides map[string]string) *refdata.Reference {
	t.Helper()
	ref, err := refdata.New(regions, overrides)
	if err != nil {
		t.Fatalf("refdata.New: %v", err)
	}
	return ref
}

var mortalityHeader = []string{
	"MR No.", "Patient Name", "Primary Center", "Death Date", "Death Time", "Death Reason",
	"Gender", "Religion", "Modality",
}

func mortalityRow(mrNo, center, date, reason string) []string {
	return []string{mrNo, "Patient " + mrNo, center, date, "10:30", reason, "F", "X", "HD"}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// joinedRecord builds a joined row for aggregation tests.
func joinedRecord(region, center, month, reason string, week int) model.JoinedDeathRecord {
	r := model.JoinedDeathRecord{
		MortalityRecord: model.MortalityRecord{
			MRNo:          fmt.Sprintf("%s-%s-%s-%d", region, center, month, week),
			PrimaryCenter: center,
			DeathReason:   reason,
			Month:         month,
			Week:          week,
		},
	}
	if region != "" {
		r.Region = null.StringFrom(region)
	}
	return r
}

// memSources serves fixed tables keyed by source name.
type memSources struct {
	tables map[string]*source.Table
	errs   map[string]error
}

func (m memSources) Load(ctx context.Context, spec source.Spec) (*source.Table, error) {
	if err := m.errs[spec.Name]; err != nil {
		return nil, err
	}
	t, ok := m.tables[spec.Name]
	if !ok {
		return nil, &source.SourceError{Source: spec.Name, Err: source.ErrNoSnapshot}
	}
	return t, nil
}

func ids(recs []model.MortalityRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.MRNo
	}
	return out
}
