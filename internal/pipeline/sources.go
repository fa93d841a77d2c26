package pipeline

import (
	"fmt"

	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
	"mortalitytool/internal/source"
)

const (
	dischargeDeath = "Death"
	statusActive   = "Active"
	haemodialysis  = "HAEMODIALYSIS"
)

// FilterAttrition keeps attrition rows discharged as "Death" and projects
// them to identifier and discharge remarks.
func FilterAttrition(t *source.Table) []model.AttritionRecord {
	var out []model.AttritionRecord
	for _, row := range t.Rows {
		if t.Value(row, source.ColDischargeType) != dischargeDeath {
			continue
		}
		out = append(out, model.AttritionRecord{
			MRNo:             t.Value(row, source.ColMRNo),
			DischargeRemarks: t.Opt(row, source.ColDischargeRemarks),
		})
	}
	return out
}

// FirstNonNull returns the first valid value in priority order, or null.
func FirstNonNull(candidates ...null.String) null.String {
	for _, c := range candidates {
		if c.Valid {
			return c
		}
	}
	return null.String{}
}

// ResolveSponsors keeps active sponsor rows billed for haemodialysis on
// either treatment item and resolves one sponsor name per row from the
// candidate columns, highest priority first.
func ResolveSponsors(t *source.Table) ([]model.SponsorRecord, Diagnostics) {
	var (
		out   []model.SponsorRecord
		diags Diagnostics
	)
	candidates := make([]null.String, len(source.SponsorNameColumns))

	for _, row := range t.Rows {
		if t.Value(row, source.ColStatus) != statusActive {
			continue
		}
		if t.Value(row, source.ColInfusionItem) != haemodialysis &&
			t.Value(row, source.ColDialysisItem) != haemodialysis {
			continue
		}

		for i, col := range source.SponsorNameColumns {
			candidates[i] = t.Opt(row, col)
		}
		rec := model.SponsorRecord{
			MRNo:    t.Value(row, source.ColMRNo),
			Sponsor: FirstNonNull(candidates...),
		}
		if !rec.Sponsor.Valid {
			diags = append(diags, Diagnostic{
				Kind:       SponsorUnresolved,
				Source:     t.Source,
				Identifier: rec.MRNo,
				Detail:     fmt.Sprintf("no sponsor name in %d candidate columns", len(candidates)),
			})
		}
		out = append(out, rec)
	}
	return out, diags
}

// ProjectDeathCategories projects the curated category sheet.
func ProjectDeathCategories(t *source.Table) []model.DeathCategoryRecord {
	out := make([]model.DeathCategoryRecord, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, model.DeathCategoryRecord{
			MRNo:     t.Value(row, source.ColMRNo),
			Category: t.Opt(row, source.ColDeathCategory),
		})
	}
	return out
}
