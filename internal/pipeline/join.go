package pipeline

import (
	"mortalitytool/internal/model"
	"mortalitytool/internal/source"
)

// DroppedColumns are identity and clinical-history columns of the death
// report that never leave the joiner.
var DroppedColumns = []string{
	"Duplicate MR No.",
	"Discharge Type",
	"Date of Birth",
	"Gender",
	"National/Passport ID Type",
	"National/Passport ID [NRIC: ******-**-****][Police ID: RF/******][Army ID: T*******]",
	"First Dialysis Date in Davita",
	"First Dialysis Date(FDODD)",
	"Virology Status Date",
	"Virology Status",
	"Blood Group",
	"PDPA Consent (Yes/No)",
	"Patient Sources",
	"Patient Referral Source Hospital",
	"Religion",
	"Address",
}

var droppedColumns = func() map[string]bool {
	m := make(map[string]bool, len(DroppedColumns))
	for _, c := range DroppedColumns {
		m[c] = true
	}
	return m
}()

// JoinOptions controls right-hand duplicate handling.
type JoinOptions struct {
	// Strict rejects a right-hand source that carries the same MR No. more
	// than once. When false, duplicates fan the left row out into one row
	// per match.
	Strict bool
}

// Joiner left-joins normalized mortality records with the attrition,
// sponsor and death-category projections on MR No.
type Joiner struct {
	opts JoinOptions
}

func NewJoiner(opts JoinOptions) *Joiner {
	return &Joiner{opts: opts}
}

// Join returns one JoinedDeathRecord per mortality record (more only when
// non-strict and a right-hand source repeats an identifier). Input order is
// preserved.
func (j *Joiner) Join(
	deaths []model.MortalityRecord,
	attrition []model.AttritionRecord,
	sponsors []model.SponsorRecord,
	categories []model.DeathCategoryRecord,
) ([]model.JoinedDeathRecord, error) {
	attIdx, err := indexBy(source.Attrition.Name, attrition, func(r model.AttritionRecord) string { return r.MRNo }, j.opts.Strict)
	if err != nil {
		return nil, err
	}
	spIdx, err := indexBy(source.Sponsor.Name, sponsors, func(r model.SponsorRecord) string { return r.MRNo }, j.opts.Strict)
	if err != nil {
		return nil, err
	}
	catIdx, err := indexBy(source.DeathCategory.Name, categories, func(r model.DeathCategoryRecord) string { return r.MRNo }, j.opts.Strict)
	if err != nil {
		return nil, err
	}

	joined := make([]model.JoinedDeathRecord, 0, len(deaths))
	for _, d := range deaths {
		d.Extras = pruneExtras(d.Extras)
		joined = append(joined, model.JoinedDeathRecord{MortalityRecord: d})
	}

	joined = leftJoin(joined, attIdx, func(r *model.JoinedDeathRecord, a model.AttritionRecord) {
		r.DischargeRemarks = a.DischargeRemarks
	})
	joined = leftJoin(joined, spIdx, func(r *model.JoinedDeathRecord, s model.SponsorRecord) {
		r.Sponsor = s.Sponsor
	})
	joined = leftJoin(joined, catIdx, func(r *model.JoinedDeathRecord, c model.DeathCategoryRecord) {
		r.DeathCategory = c.Category
	})
	return joined, nil
}

func indexBy[T any](name string, rows []T, key func(T) string, strict bool) (map[string][]T, error) {
	idx := make(map[string][]T, len(rows))
	for _, r := range rows {
		k := key(r)
		if strict && len(idx[k]) > 0 {
			return nil, &source.SourceError{Source: name, Identifier: k, Err: ErrDuplicateIdentifier}
		}
		idx[k] = append(idx[k], r)
	}
	return idx, nil
}

func leftJoin[T any](rows []model.JoinedDeathRecord, idx map[string][]T, apply func(*model.JoinedDeathRecord, T)) []model.JoinedDeathRecord {
	out := make([]model.JoinedDeathRecord, 0, len(rows))
	for _, r := range rows {
		matches := idx[r.MRNo]
		if len(matches) == 0 {
			out = append(out, r)
			continue
		}
		for _, m := range matches {
			c := r
			apply(&c, m)
			out = append(out, c)
		}
	}
	return out
}

func pruneExtras(fields []model.Field) []model.Field {
	var kept []model.Field
	for _, f := range fields {
		if !droppedColumns[f.Name] {
			kept = append(kept, f)
		}
	}
	return kept
}
