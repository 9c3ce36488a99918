package habits

import "time"

// ResolveWindow computes the completion window containing ref for the
// given cadence. Both bounds are inclusive: a completion at exactly start
// or end counts as inside the period. All calendar math happens in ref's
// location.
//
// Weeks start on Sunday here. The streak transition in streak.go numbers
// weeks ISO-style with Monday starts instead; the mismatch is inherited
// behavior and must not be unified, since doing so shifts streak results
// near week boundaries.
func ResolveWindow(ref time.Time, freq Frequency) (start, end time.Time) {
	switch freq.Normalize() {
	case Weekly:
		sunday := ref.AddDate(0, 0, -int(ref.Weekday()))
		start = startOfDay(sunday)
		end = endOfDay(sunday.AddDate(0, 0, 6))
	case Monthly:
		start = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		// The guard always passes "now" as ref, so closing the window at
		// the reference day rather than the last day of the month loses
		// nothing: completions never sit in the future.
		end = endOfDay(ref)
	default:
		start = startOfDay(ref)
		end = endOfDay(ref)
	}
	return start, end
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
