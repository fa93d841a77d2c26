package pipeline

import (
	"errors"
	"testing"

	"mortalitytool/internal/source"
)

func TestNormalizeMortalityDerivedFields(t *testing.T) {
	tbl := newTable(t, source.Mortality, mortalityHeader,
		mortalityRow("MR001", "Clinic A", "05/03/2024", "Sepsis"),
	)
	ref := newRef(t, map[string]string{"Clinic A": "North"}, nil)

	recs, diags, err := NormalizeMortality(tbl, ref)
	if err != nil {
		t.Fatalf("NormalizeMortality: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	r := recs[0]
	// Day-first: 5 March 2024, ISO week 10.
	if !r.DeathDate.Equal(date(2024, 3, 5)) {
		t.Errorf("DeathDate = %v, want 2024-03-05", r.DeathDate)
	}
	if r.Month != "2024-03" {
		t.Errorf("Month = %q, want 2024-03", r.Month)
	}
	if r.Week != 10 {
		t.Errorf("Week = %d, want 10", r.Week)
	}
	if !r.Region.Valid || r.Region.String != "North" {
		t.Errorf("Region = %v, want North", r.Region)
	}
	if r.PatientName != "Patient MR001" || r.DeathTime != "10:30" {
		t.Errorf("PatientName/DeathTime = %q/%q", r.PatientName, r.DeathTime)
	}
	if v, ok := r.Extra("Modality"); !ok || v != "HD" {
		t.Errorf("Extra(Modality) = %q,%v", v, ok)
	}
	if _, ok := r.Extra("MR No."); ok {
		t.Error("modelled column should not be carried as extra")
	}
}

func TestNormalizeMortalityOverridePrecedence(t *testing.T) {
	tbl := newTable(t, source.Mortality, mortalityHeader,
		mortalityRow("MR001", "Clinic A", "15/03/2024", "Sepsis"),
		mortalityRow("MR002", "Clinic A", "16/03/2024", "Sepsis"),
	)
	ref := newRef(t, map[string]string{"Clinic A": "North"}, map[string]string{"MR001": "2024-02"})

	recs, _, err := NormalizeMortality(tbl, ref)
	if err != nil {
		t.Fatalf("NormalizeMortality: %v", err)
	}

	months := map[string]string{}
	weeks := map[string]int{}
	for _, r := range recs {
		months[r.MRNo] = r.Month
		weeks[r.MRNo] = r.Week
	}
	if months["MR001"] != "2024-02" {
		t.Errorf("override month = %q, want 2024-02", months["MR001"])
	}
	if months["MR002"] != "2024-03" {
		t.Errorf("unoverridden month = %q, want 2024-03", months["MR002"])
	}
	if weeks["MR001"] != 11 {
		t.Errorf("override must not change week, got %d", weeks["MR001"])
	}
}

func TestNormalizeMortalityStaleOverride(t *testing.T) {
	tbl := newTable(t, source.Mortality, mortalityHeader,
		mortalityRow("MR001", "Clinic A", "15/03/2024", "Sepsis"),
	)
	ref := newRef(t, map[string]string{"Clinic A": "North"},
		map[string]string{"MR900": "2024-01", "MR001": "2024-02", "MR100": "2023-12"})

	_, diags, err := NormalizeMortality(tbl, ref)
	if err != nil {
		t.Fatalf("NormalizeMortality: %v", err)
	}
	if diags.Count(StaleOverride) != 2 {
		t.Fatalf("expected 2 stale overrides, got %v", diags)
	}
	if diags[0].Identifier != "MR100" || diags[1].Identifier != "MR900" {
		t.Errorf("stale overrides not sorted by identifier: %v", diags)
	}
	if diags[1].Detail != "carry forward death not in data: MR900 2024-01" {
		t.Errorf("Detail = %q", diags[1].Detail)
	}
}

func TestNormalizeMortalityUnmappedFacility(t *testing.T) {
	tbl := newTable(t, source.Mortality, mortalityHeader,
		mortalityRow("MR001", "Clinic Z", "01/03/2024", "Sepsis"),
		mortalityRow("MR002", "Clinic Z", "02/03/2024", "Sepsis"),
		mortalityRow("MR003", "Clinic A", "03/03/2024", "Sepsis"),
	)
	ref := newRef(t, map[string]string{"Clinic A": "North"}, nil)

	recs, diags, err := NormalizeMortality(tbl, ref)
	if err != nil {
		t.Fatalf("NormalizeMortality: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("unmapped rows must be kept, got %d records", len(recs))
	}
	nullRegions := 0
	for _, r := range recs {
		if !r.Region.Valid {
			nullRegions++
		}
	}
	if nullRegions != 2 {
		t.Errorf("expected 2 null regions, got %d", nullRegions)
	}
	if diags.Count(UnmappedFacility) != 1 {
		t.Errorf("expected one diagnostic per unmapped facility, got %v", diags)
	}
}

func TestNormalizeMortalityBadDateIsFatal(t *testing.T) {
	tbl := newTable(t, source.Mortality, mortalityHeader,
		mortalityRow("MR001", "Clinic A", "01/03/2024", "Sepsis"),
		mortalityRow("MR002", "Clinic A", "not a date", "Sepsis"),
	)
	ref := newRef(t, nil, nil)

	recs, _, err := NormalizeMortality(tbl, ref)
	if !errors.Is(err, ErrBadDate) {
		t.Fatalf("expected ErrBadDate, got %v", err)
	}
	if recs != nil {
		t.Error("no partial output on fatal error")
	}
	var se *source.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError, got %T", err)
	}
	if se.Identifier != "MR002" || se.Row != 3 || se.Source != "mortality" {
		t.Errorf("error context = %+v", se)
	}
}

func TestCanonicalReason(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Others (Please write in Discharge Remarks box)", "Others"},
		{"Others", "Others"},
		{"others (please write in discharge remarks box)", "others (please write in discharge remarks box)"},
		{"Sepsis", "Sepsis"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CanonicalReason(tt.in); got != tt.want {
			t.Errorf("CanonicalReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeMortalitySortsByWeekDescending(t *testing.T) {
	tbl := newTable(t, source.Mortality, mortalityHeader,
		mortalityRow("W01", "Clinic A", "02/01/2024", "Sepsis"),
		mortalityRow("W10a", "Clinic A", "05/03/2024", "Sepsis"),
		mortalityRow("W05", "Clinic A", "31/01/2024", "Sepsis"),
		mortalityRow("W10b", "Clinic A", "06/03/2024", "Others (Please write in Discharge Remarks box)"),
	)

	recs, _, err := NormalizeMortality(tbl, newRef(t, map[string]string{"Clinic A": "North"}, nil))
	if err != nil {
		t.Fatalf("NormalizeMortality: %v", err)
	}
	want := []string{"W10a", "W10b", "W05", "W01"}
	for i, id := range want {
		if recs[i].MRNo != id {
			t.Fatalf("order = %v, want %v", ids(recs), want)
		}
	}
	if recs[1].DeathReason != "Others" {
		t.Errorf("DeathReason = %q, want Others", recs[1].DeathReason)
	}
}

func TestParseDeathDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"05/03/2024", "2024-03-05"},
		{"5/3/2024", "2024-03-05"},
		{"31/12/2023", "2023-12-31"},
		{"05-03-2024", "2024-03-05"},
		{"05-Mar-2024", "2024-03-05"},
		{"05/03/2024 14:20", "2024-03-05"},
		{"2024-03-05", "2024-03-05"},
	}
	for _, tt := range tests {
		got, err := ParseDeathDate(tt.in)
		if err != nil {
			t.Errorf("ParseDeathDate(%q): %v", tt.in, err)
			continue
		}
		if got.Format("2006-01-02") != tt.want {
			t.Errorf("ParseDeathDate(%q) = %s, want %s", tt.in, got.Format("2006-01-02"), tt.want)
		}
	}

	for _, bad := range []string{"", "  ", "yesterday"} {
		if _, err := ParseDeathDate(bad); !errors.Is(err, ErrBadDate) {
			t.Errorf("ParseDeathDate(%q) err = %v, want ErrBadDate", bad, err)
		}
	}
}
