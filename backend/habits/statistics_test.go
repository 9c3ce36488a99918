package habits

import (
	"testing"

	"github.com/pkale/streakly/backend/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func habitWithStreak(title string, streak int) models.Habit {
	return models.Habit{
		ID:          primitive.NewObjectID(),
		UserID:      primitive.NewObjectID(),
		Title:       title,
		Frequency:   string(Daily),
		StreakCount: streak,
	}
}

func completionFor(habit models.Habit) models.HabitCompletion {
	return models.HabitCompletion{
		ID:      primitive.NewObjectID(),
		HabitID: habit.ID,
		UserID:  habit.UserID,
	}
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil, nil)

	assert.Equal(t, 0, stats.TotalHabits)
	assert.Equal(t, 0, stats.TotalCompletions)
	assert.Nil(t, stats.HighestStreakHabit)
	assert.Nil(t, stats.MostCompletedHabit)
	assert.Empty(t, stats.HabitsByStreak)
}

func TestComputeStatisticsTotals(t *testing.T) {
	a := habitWithStreak("a", 1)
	b := habitWithStreak("b", 2)
	completions := []models.HabitCompletion{completionFor(a), completionFor(a), completionFor(b)}

	stats := ComputeStatistics([]models.Habit{a, b}, completions)

	assert.Equal(t, 2, stats.TotalHabits)
	assert.Equal(t, 3, stats.TotalCompletions)
}

func TestComputeStatisticsHighestStreakFirstMaxWins(t *testing.T) {
	a := habitWithStreak("a", 5)
	b := habitWithStreak("b", 9)
	c := habitWithStreak("c", 9)

	stats := ComputeStatistics([]models.Habit{a, b, c}, nil)

	// b and c tie at 9; the first encountered must win.
	assert.NotNil(t, stats.HighestStreakHabit)
	assert.Equal(t, b.ID, stats.HighestStreakHabit.ID)
}

func TestComputeStatisticsMostCompleted(t *testing.T) {
	a := habitWithStreak("a", 0)
	b := habitWithStreak("b", 0)
	completions := []models.HabitCompletion{completionFor(a), completionFor(a), completionFor(b)}

	stats := ComputeStatistics([]models.Habit{a, b}, completions)

	assert.NotNil(t, stats.MostCompletedHabit)
	assert.Equal(t, a.ID, stats.MostCompletedHabit.Habit.ID)
	assert.Equal(t, 2, stats.MostCompletedHabit.CompletionCount)
}

func TestComputeStatisticsMostCompletedTieKeepsFirst(t *testing.T) {
	a := habitWithStreak("a", 0)
	b := habitWithStreak("b", 0)
	completions := []models.HabitCompletion{completionFor(a), completionFor(b)}

	stats := ComputeStatistics([]models.Habit{a, b}, completions)

	// Equal counts: a later habit must not replace the current max.
	assert.NotNil(t, stats.MostCompletedHabit)
	assert.Equal(t, a.ID, stats.MostCompletedHabit.Habit.ID)
}

func TestComputeStatisticsMostCompletedNilWithoutCompletions(t *testing.T) {
	stats := ComputeStatistics([]models.Habit{habitWithStreak("a", 3)}, nil)

	assert.Nil(t, stats.MostCompletedHabit)
}

func TestComputeStatisticsHabitsByStreakStableDescending(t *testing.T) {
	a := habitWithStreak("a", 5)
	b := habitWithStreak("b", 9)
	c := habitWithStreak("c", 9)
	input := []models.Habit{a, b, c}

	stats := ComputeStatistics(input, nil)

	assert.Len(t, stats.HabitsByStreak, 3)
	assert.Equal(t, b.ID, stats.HabitsByStreak[0].ID)
	assert.Equal(t, c.ID, stats.HabitsByStreak[1].ID)
	assert.Equal(t, a.ID, stats.HabitsByStreak[2].ID)

	// Sorting must not reorder the caller's slice.
	assert.Equal(t, a.ID, input[0].ID)
}
