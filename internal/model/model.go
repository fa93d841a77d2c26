package model

import (
	"time"

	"gopkg.in/guregu/null.v3"
)

// Field is a source column carried through the pipeline without being
// modelled. Mortality extracts ship a long tail of identity columns; only
// the ones that survive join-time pruning reach the output.
type Field struct {
	Name  string
	Value string
}

// MortalityRecord is one row of the death report after normalization.
//
// Region is null only when the facility has no entry in the region mapping.
// Month is derived from DeathDate unless a carry-forward override exists for
// MRNo, in which case the override wins. Week is the ISO-8601 week of
// DeathDate and is never overridden.
type MortalityRecord struct {
	MRNo          string
	PatientName   string
	PrimaryCenter string
	DeathDate     time.Time
	DeathTime     string
	DeathReason   string

	Region null.String
	Month  string // YYYY-MM
	Week   int    // ISO week 1..53

	Extras []Field
}

// Extra returns the passthrough value for name.
func (r MortalityRecord) Extra(name string) (string, bool) {
	for _, f := range r.Extras {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// AttritionRecord is a patient-attrition row whose discharge type was Death.
type AttritionRecord struct {
	MRNo             string
	DischargeRemarks null.String
}

// SponsorRecord holds the single sponsor resolved for an active
// haemodialysis patient.
type SponsorRecord struct {
	MRNo    string
	Sponsor null.String
}

// DeathCategoryRecord is the curated death category for one patient.
type DeathCategoryRecord struct {
	MRNo     string
	Category null.String
}

// JoinedDeathRecord is a mortality row left-joined with attrition, sponsor
// and death-category data. Right-hand fields stay null when unmatched.
type JoinedDeathRecord struct {
	MortalityRecord

	DischargeRemarks null.String
	Sponsor          null.String
	DeathCategory    null.String
}

// Category is the cause-of-death bucket used for aggregation: the curated
// death category when one exists, otherwise the canonical death reason.
func (r JoinedDeathRecord) Category() string {
	if r.DeathCategory.Valid && r.DeathCategory.String != "" {
		return r.DeathCategory.String
	}
	return r.DeathReason
}

// CountRow is one group of the monthly death count tables.
type CountRow struct {
	Region   null.String `json:"region"`
	Facility null.String `json:"primary_center"`
	Month    string      `json:"month"`
	Count    int         `json:"count"`
}

// CategoryRow is one (group, category) cell of the monthly cause-of-death
// tables. Percentage is relative to all categories sharing the same scope
// and month, rounded to two decimals.
type CategoryRow struct {
	Region     null.String `json:"region"`
	Facility   null.String `json:"primary_center"`
	Month      string      `json:"month"`
	Category   string      `json:"category"`
	Count      int         `json:"count"`
	Percentage float64     `json:"percentage"`
}

// WeeklyExtractRow is one line of the weekly death roster.
type WeeklyExtractRow struct {
	Region              null.String
	Clinics             string
	MRNo                string
	PatientName         string
	Treatment           string
	Sponsor             null.String
	DateOfDeath         string // DD/MM/YYYY
	CauseOfDeath        null.String
	CauseOfDeathGrouped string
	Week                int
}
