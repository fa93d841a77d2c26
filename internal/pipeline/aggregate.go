package pipeline

import (
	"math"
	"sort"

	"gopkg.in/guregu/null.v3"

	"mortalitytool/internal/model"
)

// groupKey is the grouping tuple shared by both aggregations. Unused
// dimensions stay at their zero value for coarser scopes.
type groupKey struct {
	region   null.String
	facility null.String
	month    string
}

func keyFor(r model.JoinedDeathRecord, scope model.Scope) groupKey {
	k := groupKey{month: r.Month}
	switch scope {
	case model.Regional:
		k.region = r.Region
	case model.Facility:
		k.region = r.Region
		k.facility = null.StringFrom(r.PrimaryCenter)
	}
	return k
}

// compareNull orders null before any value, then values lexically.
func compareNull(a, b null.String) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	case a.String < b.String:
		return -1
	case a.String > b.String:
		return 1
	}
	return 0
}

func compareStr(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (k groupKey) compare(o groupKey) int {
	if c := compareNull(k.region, o.region); c != 0 {
		return c
	}
	if c := compareNull(k.facility, o.facility); c != 0 {
		return c
	}
	return compareStr(k.month, o.month)
}

// CountByMonth counts deaths per month at the given scope, ordered by
// (region, facility, month).
func CountByMonth(rows []model.JoinedDeathRecord, scope model.Scope) []model.CountRow {
	counts := map[groupKey]int{}
	for _, r := range rows {
		counts[keyFor(r, scope)]++
	}

	keys := make([]groupKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].compare(keys[j]) < 0 })

	out := make([]model.CountRow, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.CountRow{
			Region:   k.region,
			Facility: k.facility,
			Month:    k.month,
			Count:    counts[k],
		})
	}
	return out
}

type categoryKey struct {
	groupKey
	category string
}

// CountByCategory counts deaths per (scope group, month, category) and
// expresses each count as a percentage of its group's monthly total.
// Facility output is re-sorted by (region, facility, percentage); ties keep
// the (month, category) order.
func CountByCategory(rows []model.JoinedDeathRecord, scope model.Scope) []model.CategoryRow {
	counts := map[categoryKey]int{}
	totals := map[groupKey]int{}
	for _, r := range rows {
		g := keyFor(r, scope)
		counts[categoryKey{groupKey: g, category: r.Category()}]++
		totals[g]++
	}

	keys := make([]categoryKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if c := keys[i].groupKey.compare(keys[j].groupKey); c != 0 {
			return c < 0
		}
		return keys[i].category < keys[j].category
	})

	out := make([]model.CategoryRow, 0, len(keys))
	for _, k := range keys {
		n := counts[k]
		out = append(out, model.CategoryRow{
			Region:     k.region,
			Facility:   k.facility,
			Month:      k.month,
			Category:   k.category,
			Count:      n,
			Percentage: Percent(n, totals[k.groupKey]),
		})
	}

	if scope == model.Facility {
		sort.SliceStable(out, func(i, j int) bool {
			if c := compareNull(out[i].Region, out[j].Region); c != 0 {
				return c < 0
			}
			if c := compareNull(out[i].Facility, out[j].Facility); c != 0 {
				return c < 0
			}
			return out[i].Percentage < out[j].Percentage
		})
	}
	return out
}

// Percent returns 100*n/total rounded half away from zero to 2 decimals.
func Percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*100*100/float64(total)) / 100
}

// Aggregates holds every aggregate table of a run.
type Aggregates struct {
	Counts     map[model.Scope][]model.CountRow
	Categories map[model.Scope][]model.CategoryRow
}

// Aggregate runs both aggregations at every scope.
func Aggregate(rows []model.JoinedDeathRecord) Aggregates {
	a := Aggregates{
		Counts:     make(map[model.Scope][]model.CountRow, len(model.Scopes)),
		Categories: make(map[model.Scope][]model.CategoryRow, len(model.Scopes)),
	}
	for _, s := range model.Scopes {
		a.Counts[s] = CountByMonth(rows, s)
		a.Categories[s] = CountByCategory(rows, s)
	}
	return a
}
