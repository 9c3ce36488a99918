package habits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestNextStreakFirstCompletion(t *testing.T) {
	current := date(2024, time.March, 14)

	for _, freq := range []Frequency{Daily, Weekly, Monthly, Frequency("bogus")} {
		assert.Equal(t, 1, NextStreak(time.Time{}, current, 0, freq))
		assert.Equal(t, 1, NextStreak(time.Time{}, current, 7, freq))
	}
}

func TestNextStreakDaily(t *testing.T) {
	tests := []struct {
		name    string
		last    time.Time
		current time.Time
		streak  int
		want    int
	}{
		{"same day keeps streak", date(2024, time.March, 14), date(2024, time.March, 14), 3, 3},
		{"consecutive day increments", date(2024, time.March, 14), date(2024, time.March, 15), 3, 4},
		{"two day gap resets", date(2024, time.March, 14), date(2024, time.March, 16), 3, 1},
		{"long gap resets", date(2024, time.March, 14), date(2024, time.April, 20), 9, 1},
		{"current before last resets", date(2024, time.March, 14), date(2024, time.March, 12), 3, 1},
		{"month rollover day increments", date(2024, time.March, 31), date(2024, time.April, 1), 5, 6},
		{"year rollover day increments", date(2023, time.December, 31), date(2024, time.January, 1), 5, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStreak(tt.last, tt.current, tt.streak, Daily))
		})
	}
}

func TestNextStreakWeekly(t *testing.T) {
	tests := []struct {
		name    string
		last    time.Time
		current time.Time
		streak  int
		want    int
	}{
		// 2024-03-12 and 2024-03-14 are both in ISO week 11.
		{"same week keeps streak", date(2024, time.March, 12), date(2024, time.March, 14), 4, 4},
		// ISO week 11 into week 12.
		{"consecutive week increments", date(2024, time.March, 14), date(2024, time.March, 21), 4, 5},
		{"two week gap resets", date(2024, time.March, 14), date(2024, time.March, 28), 4, 1},
		// 2023-12-28 is ISO week 52 of 2023, 2024-01-04 is ISO week 1 of 2024.
		{"week 52 into week 1 increments", date(2023, time.December, 28), date(2024, time.January, 4), 10, 11},
		// 2020 ends on ISO week 53; the rollover test only recognizes
		// week 52, so the year boundary resets. Inherited behavior.
		{"week 53 into week 1 resets", date(2020, time.December, 30), date(2021, time.January, 6), 10, 1},
		{"same week number a year apart resets", date(2023, time.March, 16), date(2024, time.March, 14), 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStreak(tt.last, tt.current, tt.streak, Weekly))
		})
	}
}

func TestNextStreakMonthly(t *testing.T) {
	tests := []struct {
		name    string
		last    time.Time
		current time.Time
		streak  int
		want    int
	}{
		{"same month keeps streak", date(2024, time.March, 1), date(2024, time.March, 30), 2, 2},
		{"consecutive month increments", date(2024, time.March, 14), date(2024, time.April, 2), 2, 3},
		{"january to march resets", date(2024, time.January, 10), date(2024, time.March, 10), 6, 1},
		{"december into january increments", date(2023, time.December, 20), date(2024, time.January, 5), 6, 7},
		{"december into february resets", date(2023, time.December, 20), date(2024, time.February, 5), 6, 1},
		{"same month a year apart resets", date(2023, time.March, 14), date(2024, time.March, 14), 6, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStreak(tt.last, tt.current, tt.streak, Monthly))
		})
	}
}

func TestNextStreakUnknownFrequencyUsesDailyRules(t *testing.T) {
	last := date(2024, time.March, 14)

	assert.Equal(t, 3, NextStreak(last, date(2024, time.March, 14), 3, Frequency("hourly")))
	assert.Equal(t, 4, NextStreak(last, date(2024, time.March, 15), 3, Frequency("hourly")))
	assert.Equal(t, 1, NextStreak(last, date(2024, time.March, 17), 3, Frequency("hourly")))
}

func TestNextStreakDailyAcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tz database unavailable")
	}

	// 2024-03-10 is the spring-forward date in America/New_York; the day
	// boundary math must still see exactly one calendar day.
	last := time.Date(2024, time.March, 9, 22, 0, 0, 0, loc)
	current := time.Date(2024, time.March, 10, 8, 0, 0, 0, loc)

	assert.Equal(t, 4, NextStreak(last, current, 3, Daily))
}
