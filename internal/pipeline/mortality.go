package pipeline

import (
	"fmt"
	"sort"

	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
	"mortalitytool/internal/refdata"
	"mortalitytool/internal/source"
)

const (
	othersVariant = "Others (Please write in Discharge Remarks box)"
	othersLabel   = "Others"
)

// modelledMortalityColumns are parsed into typed fields; every other column
// rides along as an Extra.
var modelledMortalityColumns = map[string]bool{
	source.ColMRNo:          true,
	source.ColPatientName:   true,
	source.ColPrimaryCenter: true,
	source.ColDeathDate:     true,
	source.ColDeathTime:     true,
	source.ColDeathReason:   true,
}

// CanonicalReason maps the long "Others" free-text variant to "Others".
func CanonicalReason(reason string) string {
	if reason == othersVariant {
		return othersLabel
	}
	return reason
}

// NormalizeMortality turns the raw death report into MortalityRecords:
// region lookup, day-first date parsing, month and ISO week derivation,
// reason canonicalization and carry-forward month overrides. A single
// unparseable date fails the whole snapshot. Output is ordered by week,
// latest first.
func NormalizeMortality(t *source.Table, ref *refdata.Reference) ([]model.MortalityRecord, Diagnostics, error) {
	var diags Diagnostics
	records := make([]model.MortalityRecord, 0, t.Len())
	present := make(map[string]bool, t.Len())
	unmapped := map[string]bool{}

	for i, row := range t.Rows {
		mrNo := t.Value(row, source.ColMRNo)
		center := t.Value(row, source.ColPrimaryCenter)

		date, err := ParseDeathDate(t.Value(row, source.ColDeathDate))
		if err != nil {
			return nil, nil, &source.SourceError{Source: t.Source, Row: t.Line(i), Identifier: mrNo, Err: err}
		}

		rec := model.MortalityRecord{
			MRNo:          mrNo,
			PatientName:   t.Value(row, source.ColPatientName),
			PrimaryCenter: center,
			DeathDate:     date,
			DeathTime:     t.Value(row, source.ColDeathTime),
			DeathReason:   CanonicalReason(t.Value(row, source.ColDeathReason)),
			Month:         MonthBucket(date),
			Week:          ISOWeek(date),
			Extras:        t.Fields(row, modelledMortalityColumns),
		}

		if region, ok := ref.Region(center); ok {
			rec.Region = null.StringFrom(region)
		} else if !unmapped[center] {
			unmapped[center] = true
			diags = append(diags, Diagnostic{
				Kind:       UnmappedFacility,
				Source:     t.Source,
				Identifier: mrNo,
				Detail:     fmt.Sprintf("facility %q has no region mapping", center),
			})
		}

		present[mrNo] = true
		records = append(records, rec)
	}

	for _, o := range ref.Overrides() {
		if !present[o.MRNo] {
			diags = append(diags, Diagnostic{
				Kind:       StaleOverride,
				Source:     t.Source,
				Identifier: o.MRNo,
				Detail:     fmt.Sprintf("carry forward death not in data: %s %s", o.MRNo, o.Month),
			})
		}
	}

	for i := range records {
		if month, ok := ref.Override(records[i].MRNo); ok {
			records[i].Month = month
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Week > records[j].Week
	})

	return records, diags, nil
}
