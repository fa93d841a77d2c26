package pipeline

import (
	"math"
	"testing"

	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
)

func sampleJoined() []model.JoinedDeathRecord {
	return []model.JoinedDeathRecord{
		joinedRecord("North", "Clinic A", "2024-03", "Sepsis", 10),
		joinedRecord("North", "Clinic A", "2024-03", "Cardiac", 10),
		joinedRecord("North", "Clinic A", "2024-03", "Cardiac", 11),
		joinedRecord("North", "Clinic B", "2024-03", "Others", 11),
		joinedRecord("South", "Clinic C", "2024-02", "Sepsis", 6),
		joinedRecord("South", "Clinic C", "2024-03", "Sepsis", 12),
		joinedRecord("", "Clinic Z", "2024-03", "Cardiac", 12),
	}
}

func TestCountByMonth(t *testing.T) {
	rows := sampleJoined()

	national := CountByMonth(rows, model.National)
	if len(national) != 2 {
		t.Fatalf("national = %+v", national)
	}
	if national[0].Month != "2024-02" || national[0].Count != 1 ||
		national[1].Month != "2024-03" || national[1].Count != 6 {
		t.Errorf("national = %+v", national)
	}
	if national[0].Region.Valid || national[0].Facility.Valid {
		t.Errorf("national rows carry no region/facility: %+v", national[0])
	}

	regional := CountByMonth(rows, model.Regional)
	want := []struct {
		region null.String
		month  string
		count  int
	}{
		{null.String{}, "2024-03", 1},
		{null.StringFrom("North"), "2024-03", 4},
		{null.StringFrom("South"), "2024-02", 1},
		{null.StringFrom("South"), "2024-03", 1},
	}
	if len(regional) != len(want) {
		t.Fatalf("regional = %+v", regional)
	}
	for i, w := range want {
		g := regional[i]
		if g.Region != w.region || g.Month != w.month || g.Count != w.count {
			t.Errorf("regional[%d] = %+v, want %+v", i, g, w)
		}
	}

	facility := CountByMonth(rows, model.Facility)
	if len(facility) != 5 {
		t.Fatalf("facility = %+v", facility)
	}
	if facility[1].Facility.String != "Clinic A" || facility[1].Region.String != "North" || facility[1].Count != 3 {
		t.Errorf("facility[1] = %+v", facility[1])
	}

	for _, scope := range model.Scopes {
		total := 0
		for _, c := range CountByMonth(rows, scope) {
			total += c.Count
		}
		if total != len(rows) {
			t.Errorf("%s counts sum to %d, want %d", scope, total, len(rows))
		}
	}
}

func TestCountByCategoryPercentages(t *testing.T) {
	rows := sampleJoined()

	national := CountByCategory(rows, model.National)
	// 2024-03: Cardiac 3, Others 1, Sepsis 2 of 6.
	want := []struct {
		month, category string
		count           int
		pct             float64
	}{
		{"2024-02", "Sepsis", 1, 100},
		{"2024-03", "Cardiac", 3, 50},
		{"2024-03", "Others", 1, 16.67},
		{"2024-03", "Sepsis", 2, 33.33},
	}
	if len(national) != len(want) {
		t.Fatalf("national = %+v", national)
	}
	for i, w := range want {
		g := national[i]
		if g.Month != w.month || g.Category != w.category || g.Count != w.count || g.Percentage != w.pct {
			t.Errorf("national[%d] = %+v, want %+v", i, g, w)
		}
	}
}

func TestCountByCategorySumsTo100(t *testing.T) {
	var rows []model.JoinedDeathRecord
	reasons := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i := 0; i < 61; i++ {
		region := []string{"North", "South", ""}[i%3]
		center := []string{"Clinic A", "Clinic B"}[i%2]
		month := []string{"2024-01", "2024-02"}[i%2]
		rows = append(rows, joinedRecord(region, center, month, reasons[(i*5)%len(reasons)], 1))
	}

	for _, scope := range model.Scopes {
		sums := map[[3]string]float64{}
		for _, c := range CountByCategory(rows, scope) {
			key := [3]string{c.Region.String, c.Facility.String, c.Month}
			sums[key] += c.Percentage
		}
		for k, s := range sums {
			if math.Abs(s-100) > 0.05 {
				t.Errorf("%s %v: percentages sum to %.4f", scope, k, s)
			}
		}
	}
}

func TestCountByCategoryUsesCuratedCategory(t *testing.T) {
	r := joinedRecord("North", "Clinic A", "2024-03", "Others", 10)
	r.DeathCategory = null.StringFrom("Cardiovascular")
	rows := []model.JoinedDeathRecord{r, joinedRecord("North", "Clinic A", "2024-03", "Others", 10)}

	got := CountByCategory(rows, model.National)
	if len(got) != 2 || got[0].Category != "Cardiovascular" || got[1].Category != "Others" {
		t.Errorf("got %+v", got)
	}
}

func TestCountByCategoryFacilitySortedByPercentage(t *testing.T) {
	rows := []model.JoinedDeathRecord{
		joinedRecord("North", "Clinic A", "2024-03", "Cardiac", 10),
		joinedRecord("North", "Clinic A", "2024-03", "Cardiac", 10),
		joinedRecord("North", "Clinic A", "2024-03", "Cardiac", 10),
		joinedRecord("North", "Clinic A", "2024-03", "Sepsis", 10),
		joinedRecord("North", "Clinic A", "2024-04", "Sepsis", 14),
		joinedRecord("North", "Clinic A", "2024-04", "Renal", 14),
		joinedRecord("North", "Clinic B", "2024-03", "Sepsis", 10),
	}

	got := CountByCategory(rows, model.Facility)
	want := []struct {
		facility, month, category string
		pct                       float64
	}{
		{"Clinic A", "2024-03", "Sepsis", 25},
		{"Clinic A", "2024-04", "Renal", 50},
		{"Clinic A", "2024-04", "Sepsis", 50},
		{"Clinic A", "2024-03", "Cardiac", 75},
		{"Clinic B", "2024-03", "Sepsis", 100},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i, w := range want {
		g := got[i]
		if g.Facility.String != w.facility || g.Month != w.month || g.Category != w.category || g.Percentage != w.pct {
			t.Errorf("got[%d] = %+v, want %+v", i, g, w)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		n, total int
		want     float64
	}{
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{1, 200, 0.5},
		{1, 400, 0.25},
		{0, 0, 0},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.n, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tt.n, tt.total, got, tt.want)
		}
	}
}

func TestAggregateCoversEveryScope(t *testing.T) {
	a := Aggregate(sampleJoined())
	for _, s := range model.Scopes {
		if len(a.Counts[s]) == 0 || len(a.Categories[s]) == 0 {
			t.Errorf("scope %s missing tables", s)
		}
	}
}
