package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// dayFirstLayouts are the formats the clinical system exports. Anything
// else falls through to dateparse with day-first preference.
var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"2-1-2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// ParseDeathDate parses a day-first date ("05/03/2024" is 5 March 2024).
func ParseDeathDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrBadDate)
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return t, nil
}

// MonthBucket formats t as YYYY-MM.
func MonthBucket(t time.Time) string {
	return t.Format("2006-01")
}

// ISOWeek returns the ISO-8601 week number of t.
func ISOWeek(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}
