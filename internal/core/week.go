package core

import "time"

// DateLayout is the ISO calendar date format used for week keys.
const DateLayout = "2006-01-02"

// WeekStartTime returns local midnight of the Monday beginning the week that
// contains t. Sunday belongs to the week that started six days earlier.
func WeekStartTime(t time.Time) time.Time {
	day := int(t.Weekday())
	diff := day - 1
	if day == 0 {
		diff = 6
	}
	y, m, d := t.Date()
	return time.Date(y, m, d-diff, 0, 0, 0, 0, t.Location())
}

// WeekStart returns the ISO date of the Monday beginning t's week, computed
// on t's own calendar day so any two instants of the same local day agree.
func WeekStart(t time.Time) string {
	return WeekStartTime(t).Format(DateLayout)
}

// PeriodLabel renders the month label passed to the insight generator,
// e.g. "October 2026".
func PeriodLabel(t time.Time) string {
	return t.Format("January 2006")
}
