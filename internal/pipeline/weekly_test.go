package pipeline

import (
	"testing"
	"time"

	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
)

func TestGenWeeklyDeath(t *testing.T) {
	south := joinedRecord("South", "Clinic C", "2024-03", "Sepsis", 11)
	south.MRNo = "MR010"
	south.PatientName = "Jane Doe"
	south.DeathDate = date(2024, time.March, 12)
	south.Sponsor = null.StringFrom("AcmeCo")
	south.DischargeRemarks = null.StringFrom("Septic shock")

	north := joinedRecord("North", "Clinic A", "2024-03", "Cardiac", 12)
	north.DeathDate = date(2024, time.March, 19)

	unmapped := joinedRecord("", "Clinic Z", "2024-03", "Others", 11)
	unmapped.DeathDate = date(2024, time.March, 13)

	northB := joinedRecord("North", "Clinic B", "2024-03", "Cardiac", 11)
	northB.DeathDate = date(2024, time.March, 14)

	rows := []model.JoinedDeathRecord{south, north, unmapped, northB}

	got := GenWeeklyDeath(rows, 11)
	if len(got) != 3 {
		t.Fatalf("expected 3 rows for week 11, got %d: %+v", len(got), got)
	}

	// null region first, then North, then South.
	if got[0].Region.Valid || got[1].Region.String != "North" || got[2].Region.String != "South" {
		t.Errorf("region order = %v, %v, %v", got[0].Region, got[1].Region, got[2].Region)
	}

	r := got[2]
	want := model.WeeklyExtractRow{
		Region:              null.StringFrom("South"),
		Clinics:             "Clinic C",
		MRNo:                "MR010",
		PatientName:         "Jane Doe",
		Treatment:           "Hemodialysis",
		Sponsor:             null.StringFrom("AcmeCo"),
		DateOfDeath:         "12/03/2024",
		CauseOfDeath:        null.StringFrom("Septic shock"),
		CauseOfDeathGrouped: "Sepsis",
		Week:                11,
	}
	if r != want {
		t.Errorf("row = %+v\nwant %+v", r, want)
	}
	for _, w := range got {
		if w.Week != 11 {
			t.Errorf("row %s has week %d", w.MRNo, w.Week)
		}
	}
}

func TestGenWeeklyDeathNoMatches(t *testing.T) {
	rows := []model.JoinedDeathRecord{joinedRecord("North", "Clinic A", "2024-03", "Sepsis", 10)}
	if got := GenWeeklyDeath(rows, 40); len(got) != 0 {
		t.Errorf("expected empty roster, got %+v", got)
	}
}
