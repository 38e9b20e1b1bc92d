package ledger

// Crossed reports whether an update moved a running total from at-or-under
// a limit to strictly over it. Alerts are edge-triggered: a value already
// over the limit never re-triggers, and landing exactly on the limit does
// not count as exceeding it.
func Crossed(before, after, limit float64) bool {
	return before <= limit && after > limit
}
