package habits

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/pkale/streakly/backend/models"
	cache "github.com/pkale/streakly/backend/storage/cache"
	storage "github.com/pkale/streakly/backend/storage/persistent"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event kinds published after successful habit writes.
const (
	EventCompleted = "completed"
	EventDeleted   = "deleted"
)

// Event describes a habit change for downstream consumers (cache
// invalidation today; anything else that subscribes to the queue later).
type Event struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	HabitID string `json:"habit_id"`
	UserID  string `json:"user_id"`
}

// EventSink receives habit change events. The queue package provides the
// RabbitMQ-backed implementation; tests substitute their own. Passing the
// sink in explicitly keeps invalidation out of ambient state.
type EventSink interface {
	PublishHabitEvent(event *Event) error
}

// Service composes the completion engine with the row store, the cache
// and the event sink. The authenticated user id is always an argument;
// the service never resolves identity itself.
type Service struct {
	store  storage.StorageInterface
	cache  cache.CacheInterface
	events EventSink
}

// NewService wires a habit service. cache and events may be nil, in which
// case statistics are computed on every call and no events are published.
func NewService(store storage.StorageInterface, c cache.CacheInterface, events EventSink) *Service {
	return &Service{store: store, cache: c, events: events}
}

// IsAlreadyCompleted reports whether a completion row for (habit, user)
// exists inside the period window containing ref. Read-only; used both as
// the write-path spam guard and for the IsCompletedToday annotation.
func (s *Service) IsAlreadyCompleted(ctx context.Context, habitID, userID primitive.ObjectID, ref time.Time, freq Frequency) (bool, error) {
	start, end := ResolveWindow(ref, freq)

	count, err := s.store.CountCompletions(ctx, bson.M{
		"habit_id":     habitID,
		"user_id":      userID,
		"completed_at": bson.M{"$gte": start, "$lte": end},
	})
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// ListHabits returns every habit the user owns, each annotated with
// whether it has already been completed in its current period.
func (s *Service) ListHabits(ctx context.Context, userID primitive.ObjectID) ([]models.Habit, int, error) {
	habits, err := s.store.FindHabitsByParameter(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	for i := range habits {
		completed, err := s.IsAlreadyCompleted(ctx, habits[i].ID, userID, now, Frequency(habits[i].Frequency))
		if err != nil {
			return nil, 0, err
		}
		habits[i].IsCompletedToday = completed
	}

	return habits, len(habits), nil
}

// CreateHabit persists a new habit for the user. The streak starts at
// zero and last_completed stays unset until the first completion.
func (s *Service) CreateHabit(ctx context.Context, userID primitive.ObjectID, title, description string, freq Frequency) (*models.Habit, error) {
	if title == "" {
		return nil, errors.New("habit title is required")
	}

	habit := &models.Habit{
		UserID:      userID,
		Title:       title,
		Description: description,
		Frequency:   freq.String(),
		StreakCount: 0,
	}

	return s.store.AddHabit(ctx, habit)
}

// UpdateHabit applies a partial update to a habit's title, description or
// frequency. Empty fields are left as they are; streak fields are not
// reachable from here.
func (s *Service) UpdateHabit(ctx context.Context, habitID, userID primitive.ObjectID, title, description, frequency string) (*models.Habit, error) {
	set := bson.M{}
	if title != "" {
		set["title"] = title
	}
	if description != "" {
		set["description"] = description
	}
	if frequency != "" {
		set["frequency"] = frequency
	}
	if len(set) == 0 {
		return nil, errors.New("nothing to update")
	}

	filter := bson.M{"_id": habitID, "user_id": userID}
	_, err := s.store.UpdateHabit(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}

	return s.store.FindHabit(ctx, filter)
}

// CompleteHabit records a completion for the habit at time now.
//
// The steps are: fetch habit, run the guard against the current period,
// insert the completion row, compute the next streak, write the streak
// and last_completed back onto the habit. The three writes are separate
// store calls, not a transaction: two callers racing past the guard can
// both record a completion. The guard plus the compound completion index
// keep the window check cheap but do not close that race.
func (s *Service) CompleteHabit(ctx context.Context, habitID, userID primitive.ObjectID) error {
	now := time.Now()

	habit, err := s.store.FindHabit(ctx, bson.M{"_id": habitID, "user_id": userID})
	if err != nil {
		return err
	}

	freq := Frequency(habit.Frequency)
	alreadyCompleted, err := s.IsAlreadyCompleted(ctx, habitID, userID, now, freq)
	if err != nil {
		return err
	}
	if alreadyCompleted {
		return &AlreadyCompletedError{Frequency: freq.Normalize()}
	}

	completion := &models.HabitCompletion{
		HabitID:     habitID,
		UserID:      userID,
		CompletedAt: now,
	}
	if _, err := s.store.AddCompletion(ctx, completion); err != nil {
		return err
	}

	newStreak := NextStreak(habit.LastCompleted, now, habit.StreakCount, freq)

	_, err = s.store.UpdateHabit(ctx, bson.M{"_id": habitID, "user_id": userID}, bson.M{
		"$set": bson.M{
			"streak_count":   newStreak,
			"last_completed": now,
		},
	})
	if err != nil {
		return err
	}

	s.publish(&Event{
		ID:      completion.ID.Hex(),
		Kind:    EventCompleted,
		HabitID: habitID.Hex(),
		UserID:  userID.Hex(),
	})

	return nil
}

// DeleteHabit removes a habit and all of its completion events. Every
// completion row is deleted before the habit row; the first failed
// completion delete aborts the cascade so a habit is never left without
// its history half-removed.
func (s *Service) DeleteHabit(ctx context.Context, habitID, userID primitive.ObjectID) error {
	habit, err := s.store.FindHabit(ctx, bson.M{"_id": habitID, "user_id": userID})
	if err != nil {
		return err
	}

	completions, err := s.store.FindCompletionsByParameter(ctx, bson.M{"habit_id": habitID})
	if err != nil {
		return err
	}

	for _, completion := range completions {
		if _, err := s.store.DeleteCompletion(ctx, bson.M{"_id": completion.ID}); err != nil {
			return err
		}
	}

	if _, err := s.store.DeleteHabit(ctx, bson.M{"_id": habit.ID}); err != nil {
		return err
	}

	s.publish(&Event{
		ID:      primitive.NewObjectID().Hex(),
		Kind:    EventDeleted,
		HabitID: habitID.Hex(),
		UserID:  userID.Hex(),
	})

	return nil
}

// Statistics aggregates the user's full habit and completion sets. The
// result is served from the cache when present; queue events invalidate
// the entry after completions and deletions. The completion guard never
// reads this cache.
func (s *Service) Statistics(ctx context.Context, userID primitive.ObjectID) (*Statistics, error) {
	key := StatsCacheKey(userID.Hex())

	if s.cache != nil {
		var cached Statistics
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if err != cache.ErrCacheMiss {
			log.Printf("error reading statistics cache: %v", err)
		}
	}

	habits, err := s.store.FindHabitsByParameter(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	completions, err := s.store.FindCompletionsByParameter(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}

	stats := ComputeStatistics(habits, completions)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, &stats); err != nil {
			log.Printf("error writing statistics cache: %v", err)
		}
	}

	return &stats, nil
}

// StatsCacheKey is the cache key holding a user's aggregated statistics.
func StatsCacheKey(userID string) string {
	return "stats_" + userID
}

// publish hands an event to the sink. Publishing is best-effort: a queue
// outage must not fail a completion that is already persisted.
func (s *Service) publish(event *Event) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishHabitEvent(event); err != nil {
		log.Printf("failed to publish habit event: %v", err)
	}
}
