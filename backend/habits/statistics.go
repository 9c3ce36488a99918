package habits

import (
	"sort"

	"github.com/pkale/streakly/backend/models"
)

// MostCompleted pairs a habit with how many completion rows it has.
type MostCompleted struct {
	Habit           models.Habit `json:"habit"`
	CompletionCount int          `json:"completion_count"`
}

// Statistics is the aggregate view over a user's full habit and
// completion sets.
type Statistics struct {
	TotalHabits        int            `json:"total_habits"`
	TotalCompletions   int            `json:"total_completions"`
	HighestStreakHabit *models.Habit  `json:"highest_streak_habit"`
	MostCompletedHabit *MostCompleted `json:"most_completed_habit"`
	HabitsByStreak     []models.Habit `json:"habits_by_streak"`
}

// ComputeStatistics aggregates habits and completions in one grouping
// pass over completions and one pass over habits. Ties everywhere go to
// the first habit encountered in input order, and the streak ordering is
// stable among equal streaks.
func ComputeStatistics(habits []models.Habit, completions []models.HabitCompletion) Statistics {
	stats := Statistics{
		TotalHabits:      len(habits),
		TotalCompletions: len(completions),
	}

	counts := make(map[string]int, len(habits))
	for _, completion := range completions {
		counts[completion.HabitID.Hex()]++
	}

	maxCompletions := 0
	for i := range habits {
		habit := habits[i]

		if stats.HighestStreakHabit == nil || habit.StreakCount > stats.HighestStreakHabit.StreakCount {
			h := habit
			stats.HighestStreakHabit = &h
		}

		if count := counts[habit.ID.Hex()]; count > maxCompletions {
			maxCompletions = count
			stats.MostCompletedHabit = &MostCompleted{Habit: habit, CompletionCount: count}
		}
	}

	stats.HabitsByStreak = append([]models.Habit(nil), habits...)
	sort.SliceStable(stats.HabitsByStreak, func(i, j int) bool {
		return stats.HabitsByStreak[i].StreakCount > stats.HabitsByStreak[j].StreakCount
	})

	return stats
}
