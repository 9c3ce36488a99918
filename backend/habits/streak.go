package habits

import "time"

// NextStreak computes the streak count after a completion at current,
// given the previous completion time and the streak so far. A zero
// lastCompleted means this is the first completion ever and the streak
// starts at 1 whatever the cadence. The function is total: any input,
// including a current earlier than last, yields a valid count.
func NextStreak(lastCompleted, currentCompleted time.Time, currentStreak int, freq Frequency) int {
	if lastCompleted.IsZero() {
		return 1
	}

	switch freq.Normalize() {
	case Weekly:
		return nextWeeklyStreak(lastCompleted, currentCompleted, currentStreak)
	case Monthly:
		return nextMonthlyStreak(lastCompleted, currentCompleted, currentStreak)
	default:
		return nextDailyStreak(lastCompleted, currentCompleted, currentStreak)
	}
}

func nextDailyStreak(last, current time.Time, streak int) int {
	days := int(dayAnchor(current).Sub(dayAnchor(last)).Hours() / 24)
	switch days {
	case 0:
		// Same calendar day. The guard blocks this on the write path, but
		// the transition itself stays idempotent.
		return streak
	case 1:
		return streak + 1
	default:
		return 1
	}
}

// nextWeeklyStreak compares ISO-8601 week numbers (Monday-start weeks,
// week 1 holds the year's first Thursday) paired with calendar years.
// The only recognized rollover is week 52 into week 1 of the next
// calendar year; a year ending on week 53 resets instead. Inherited
// behavior, covered by tests.
func nextWeeklyStreak(last, current time.Time, streak int) int {
	_, lastWeek := last.ISOWeek()
	_, currentWeek := current.ISOWeek()
	lastYear := last.Year()
	currentYear := current.Year()

	if lastYear == currentYear {
		if currentWeek == lastWeek {
			return streak
		}
		if currentWeek == lastWeek+1 {
			return streak + 1
		}
	} else if currentYear == lastYear+1 && currentWeek == 1 && lastWeek == 52 {
		return streak + 1
	}

	return 1
}

func nextMonthlyStreak(last, current time.Time, streak int) int {
	lastMonth, currentMonth := last.Month(), current.Month()
	lastYear, currentYear := last.Year(), current.Year()

	if lastYear == currentYear {
		if currentMonth == lastMonth {
			return streak
		}
		if currentMonth == lastMonth+1 {
			return streak + 1
		}
	} else if currentYear == lastYear+1 && currentMonth == time.January && lastMonth == time.December {
		return streak + 1
	}

	return 1
}

// dayAnchor pins a timestamp's local calendar day to UTC midnight so day
// differences stay exact multiples of 24h across DST shifts.
func dayAnchor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
