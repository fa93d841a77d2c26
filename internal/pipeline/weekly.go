package pipeline

import (
	"sort"

	"mortalitytool/internal/model"
)

const treatmentHaemodialysis = "Hemodialysis"

// GenWeeklyDeath builds the weekly death roster for one ISO week, ordered
// by region. Rows within a region keep their joined order.
func GenWeeklyDeath(rows []model.JoinedDeathRecord, week int) []model.WeeklyExtractRow {
	var out []model.WeeklyExtractRow
	for _, r := range rows {
		if r.Week != week {
			continue
		}
		out = append(out, model.WeeklyExtractRow{
			Region:              r.Region,
			Clinics:             r.PrimaryCenter,
			MRNo:                r.MRNo,
			PatientName:         r.PatientName,
			Treatment:           treatmentHaemodialysis,
			Sponsor:             r.Sponsor,
			DateOfDeath:         r.DeathDate.Format("02/01/2006"),
			CauseOfDeath:        r.DischargeRemarks,
			CauseOfDeathGrouped: r.DeathReason,
			Week:                r.Week,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return compareNull(out[i].Region, out[j].Region) < 0
	})
	return out
}
