package ledger

import (
	"time"
)

// Period is a recurring accounting window with its own reset baseline and
// limits.
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// Periods lists the configured accounting windows, in evaluation order.
func Periods() []Period {
	return []Period{PeriodDaily, PeriodWeekly}
}

// TotalKey is the pseudo-key for the grand watch-time total.
const TotalKey = "total"

// PeriodLimits holds the limits for one period: an overall cap plus per-key
// caps. A zero or absent value means unlimited.
type PeriodLimits struct {
	Total      float64            `json:"total"`
	Categories map[string]float64 `json:"categories"`
}

// Limits is the watch-time limits document (theme_limits.json). Loaded once
// at startup and immutable afterwards.
type Limits struct {
	Daily  PeriodLimits `json:"daily"`
	Weekly PeriodLimits `json:"weekly"`
}

// ForPeriod returns the limits configured for a period.
func (l Limits) ForPeriod(period Period) PeriodLimits {
	switch period {
	case PeriodDaily:
		return l.Daily
	case PeriodWeekly:
		return l.Weekly
	}
	return PeriodLimits{}
}

// KeyLimit returns the limit for a key within a period, where key may be
// TotalKey. ok is false when no limit is configured (unlimited).
func (l Limits) KeyLimit(period Period, key string) (float64, bool) {
	pl := l.ForPeriod(period)
	if key == TotalKey {
		return pl.Total, pl.Total > 0
	}
	limit, ok := pl.Categories[key]
	return limit, ok && limit > 0
}

// Crossing reports that a single Record call pushed a current-period value
// from at-or-under its limit to strictly over it.
type Crossing struct {
	Period  Period
	Key     string // tracking key, or TotalKey for the grand total
	Limit   float64
	Current float64
}

// PeriodValue is the within-period view of one key in a snapshot.
type PeriodValue struct {
	Seconds   float64
	Formatted string
	Limit     float64 // 0 when unlimited
	Percent   float64 // 0 when unlimited
	Over      bool
}

// KeySnapshot is the read-only report entry for one tracking key.
type KeySnapshot struct {
	Key              string
	AllTimeSeconds   float64
	AllTimeFormatted string
	VideoCount       int
	Periods          map[Period]PeriodValue
}

// Snapshot is a read-only view of the ledger suitable for display.
// Keys are ordered by descending all-time total, ties by key string.
type Snapshot struct {
	GeneratedAt      time.Time
	AllTimeSeconds   float64
	AllTimeFormatted string
	Totals           map[Period]PeriodValue
	Keys             []KeySnapshot
	VideoCount       int
}
