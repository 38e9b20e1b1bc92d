package ledger

import "time"

// Reset boundary rules. Daily resets fire when the calendar date advances;
// dates are taken in the process-local time zone, since the TV and the
// viewer share a household clock. Weekly resets use a sliding seven-day
// window measured from the last weekly reset, not a calendar week.

const week = 7 * 24 * time.Hour

// resetDue reports whether a period's reset boundary has been crossed since
// the last recorded reset instant.
func resetDue(period Period, now, last time.Time) bool {
	switch period {
	case PeriodDaily:
		return dateOf(now).After(dateOf(last))
	case PeriodWeekly:
		return now.Sub(last) >= week
	}
	return false
}

func dateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
