package ledger

import "fmt"

// FormatSeconds renders a duration in seconds as a short human string:
// "45 seconds", "12 minutes", "2h 5m". Values are floored toward the unit
// shown; negative input renders as zero.
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	if total < 60 {
		return fmt.Sprintf("%d seconds", total)
	}
	minutes := total / 60
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
