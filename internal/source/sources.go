package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Column names shared by the extracts.
const (
	ColMRNo          = "MR No."
	ColPatientName   = "Patient Name"
	ColPrimaryCenter = "Primary Center"
	ColDeathDate     = "Death Date"
	ColDeathTime     = "Death Time"
	ColDeathReason   = "Death Reason"

	ColDischargeType    = "Discharge Type"
	ColDischargeRemarks = "Physical Discharge Remarks"

	ColStatus       = "Status"
	ColInfusionItem = "Infusion Item"
	ColDialysisItem = "Dialysis Item"

	ColDeathCategory = "Death Category"
)

// SponsorNameColumns are the candidate sponsor columns in priority order.
var SponsorNameColumns = []string{
	"Sponsor Name1",
	"Sponsor Name2",
	"Sponsor Name3",
	"Sponsor Name4",
	"Sponsor Name5",
}

// Spec describes where a source lives and how its files are laid out.
type Spec struct {
	Name     string
	Dir      string // subdirectory of the data folder
	Ext      string
	Skip     int // banner lines before the column header
	Required []string
}

var (
	Mortality = Spec{
		Name: "mortality",
		Dir:  "Death",
		Ext:  ".csv",
		Skip: 2,
		Required: []string{
			ColMRNo, ColPatientName, ColPrimaryCenter,
			ColDeathDate, ColDeathTime, ColDeathReason,
		},
	}
	Attrition = Spec{
		Name:     "attrition",
		Dir:      "Patient Attrition",
		Ext:      ".csv",
		Skip:     3,
		Required: []string{ColMRNo, ColDischargeType, ColDischargeRemarks},
	}
	Sponsor = Spec{
		Name:     "sponsor",
		Dir:      "Sponsor",
		Ext:      ".csv",
		Skip:     1,
		Required: []string{ColMRNo, ColStatus, ColInfusionItem, ColDialysisItem, SponsorNameColumns[0]},
	}
	DeathCategory = Spec{
		Name:     "death_category",
		Dir:      "Death Category",
		Ext:      ".xlsx",
		Skip:     0,
		Required: []string{ColMRNo, ColDeathCategory},
	}
)

// Specs lists the sources in load order.
var Specs = []Spec{Mortality, Attrition, Sponsor, DeathCategory}

// DirSources reads the latest snapshot of each source from a data folder
// laid out as <root>/<Spec.Dir>/<file>.
type DirSources struct {
	Root   string
	Logger zerolog.Logger
}

// Load selects the newest snapshot for spec and reads it.
func (d DirSources) Load(ctx context.Context, spec Spec) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := LatestFile(filepath.Join(d.Root, spec.Dir), spec.Ext)
	if err != nil {
		return nil, &SourceError{Source: spec.Name, Err: err}
	}
	d.Logger.Info().Str("source", spec.Name).Str("file", path).Msg("selected snapshot")

	var t *Table
	switch strings.ToLower(spec.Ext) {
	case ".xlsx", ".xlsm":
		t, err = ReadSheet(spec.Name, path, "", spec.Skip, spec.Required)
	case ".csv", ".txt":
		t, err = ReadCSV(spec.Name, path, spec.Skip, spec.Required)
	default:
		return nil, &SourceError{Source: spec.Name, Err: fmt.Errorf("unsupported extension %q", spec.Ext)}
	}
	if err != nil {
		return nil, err
	}

	d.Logger.Debug().Str("source", spec.Name).Int("rows", t.Len()).Msg("loaded")
	return t, nil
}
