package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkale/streakly/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MemoryStorage is an in-memory StorageInterface used by tests and local
// development. It interprets the same bson filter shapes the service
// layer composes: field equality plus $gte/$lte ranges.
type MemoryStorage struct {
	mu          sync.Mutex
	users       []*models.User
	habits      []*models.Habit
	completions []*models.HabitCompletion
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Connect is a no-op for the in-memory backend.
func (m *MemoryStorage) Connect(dbName, uri string) error { return nil }

// Disconnect is a no-op for the in-memory backend.
func (m *MemoryStorage) Disconnect() error { return nil }

// matches interprets a bson.M filter against a flat document of field
// values. Values under $gte/$lte are compared as time.Time, the only
// range type the service queries with.
func matches(filter interface{}, doc map[string]interface{}) bool {
	filterMap, ok := filter.(bson.M)
	if !ok {
		return false
	}
	for field, want := range filterMap {
		have, exists := doc[field]
		if !exists {
			return false
		}
		switch want := want.(type) {
		case bson.M:
			haveTime, ok := have.(time.Time)
			if !ok {
				return false
			}
			if gte, ok := want["$gte"].(time.Time); ok && haveTime.Before(gte) {
				return false
			}
			if lte, ok := want["$lte"].(time.Time); ok && haveTime.After(lte) {
				return false
			}
		default:
			if fmt.Sprintf("%v", have) != fmt.Sprintf("%v", want) {
				return false
			}
		}
	}
	return true
}

func userDoc(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"_id":      u.ID,
		"username": u.Username,
		"email":    u.Email,
	}
}

func habitDoc(h *models.Habit) map[string]interface{} {
	return map[string]interface{}{
		"_id":            h.ID,
		"user_id":        h.UserID,
		"title":          h.Title,
		"description":    h.Description,
		"frequency":      h.Frequency,
		"streak_count":   h.StreakCount,
		"last_completed": h.LastCompleted,
	}
}

func completionDoc(c *models.HabitCompletion) map[string]interface{} {
	return map[string]interface{}{
		"_id":          c.ID,
		"habit_id":     c.HabitID,
		"user_id":      c.UserID,
		"completed_at": c.CompletedAt,
	}
}

func (m *MemoryStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return nil, errors.New("a user with this email or username already exists")
		}
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	stored := *user
	m.users = append(m.users, &stored)
	return user, nil
}

func (m *MemoryStorage) FindUser(ctx context.Context, filter interface{}) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if matches(filter, userDoc(user)) {
			found := *user
			return &found, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *MemoryStorage) UpdateUser(ctx context.Context, filter interface{}, update interface{}) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, err := setFields(update)
	if err != nil {
		return nil, err
	}

	for _, user := range m.users {
		if matches(filter, userDoc(user)) {
			if v, ok := set["username"].(string); ok {
				user.Username = v
			}
			if v, ok := set["email"].(string); ok {
				user.Email = v
			}
			if v, ok := set["password_hash"].(string); ok {
				user.PasswordHash = v
			}
			found := *user
			return &found, nil
		}
	}
	return nil, errors.New("no user found to update")
}

func (m *MemoryStorage) DeleteUser(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, user := range m.users {
		if matches(filter, userDoc(user)) {
			id := user.ID

			var completions []*models.HabitCompletion
			for _, completion := range m.completions {
				if completion.UserID != id {
					completions = append(completions, completion)
				}
			}
			m.completions = completions

			var habits []*models.Habit
			for _, habit := range m.habits {
				if habit.UserID != id {
					habits = append(habits, habit)
				}
			}
			m.habits = habits

			m.users = append(m.users[:i], m.users[i+1:]...)
			return &DeleteResult{DeletedCount: 1}, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *MemoryStorage) AddHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if habit.Title == "" || habit.UserID.IsZero() {
		return nil, errors.New("invalid habit fields")
	}

	for _, existing := range m.habits {
		if existing.UserID == habit.UserID && existing.Title == habit.Title {
			return nil, fmt.Errorf("a habit with the title '%s' already exists for the user", habit.Title)
		}
	}

	if habit.ID.IsZero() {
		habit.ID = primitive.NewObjectID()
	}
	stored := *habit
	m.habits = append(m.habits, &stored)
	return habit, nil
}

func (m *MemoryStorage) FindHabit(ctx context.Context, filter interface{}) (*models.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, habit := range m.habits {
		if matches(filter, habitDoc(habit)) {
			found := *habit
			return &found, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *MemoryStorage) FindHabitsByParameter(ctx context.Context, filter interface{}) ([]models.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var habits []models.Habit
	for _, habit := range m.habits {
		if matches(filter, habitDoc(habit)) {
			habits = append(habits, *habit)
		}
	}
	return habits, nil
}

func (m *MemoryStorage) UpdateHabit(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, err := setFields(update)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{}
	for _, habit := range m.habits {
		if matches(filter, habitDoc(habit)) {
			result.MatchedCount++
			if v, ok := set["title"].(string); ok {
				habit.Title = v
			}
			if v, ok := set["description"].(string); ok {
				habit.Description = v
			}
			if v, ok := set["frequency"].(string); ok {
				habit.Frequency = v
			}
			if v, ok := set["streak_count"].(int); ok {
				habit.StreakCount = v
			}
			if v, ok := set["last_completed"].(time.Time); ok {
				habit.LastCompleted = v
			}
			result.ModifiedCount++
		}
	}
	if result.MatchedCount == 0 {
		return nil, errors.New("habit does not exist")
	}
	return result, nil
}

func (m *MemoryStorage) DeleteHabit(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &DeleteResult{}
	var remaining []*models.Habit
	for _, habit := range m.habits {
		if matches(filter, habitDoc(habit)) {
			result.DeletedCount++
			continue
		}
		remaining = append(remaining, habit)
	}
	m.habits = remaining
	return result, nil
}

func (m *MemoryStorage) AddCompletion(ctx context.Context, completion *models.HabitCompletion) (*models.HabitCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if completion.HabitID.IsZero() || completion.UserID.IsZero() {
		return nil, errors.New("invalid completion fields")
	}

	if completion.ID.IsZero() {
		completion.ID = primitive.NewObjectID()
	}
	stored := *completion
	m.completions = append(m.completions, &stored)
	return completion, nil
}

func (m *MemoryStorage) FindCompletionsByParameter(ctx context.Context, filter interface{}) ([]models.HabitCompletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var completions []models.HabitCompletion
	for _, completion := range m.completions {
		if matches(filter, completionDoc(completion)) {
			completions = append(completions, *completion)
		}
	}
	return completions, nil
}

func (m *MemoryStorage) CountCompletions(ctx context.Context, filter interface{}) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, completion := range m.completions {
		if matches(filter, completionDoc(completion)) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStorage) DeleteCompletion(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, completion := range m.completions {
		if matches(filter, completionDoc(completion)) {
			m.completions = append(m.completions[:i], m.completions[i+1:]...)
			return &DeleteResult{DeletedCount: 1}, nil
		}
	}
	return &DeleteResult{DeletedCount: 0}, nil
}

func setFields(update interface{}) (bson.M, error) {
	updateDoc, ok := update.(bson.M)
	if !ok {
		return nil, errors.New("invalid update data")
	}
	set, ok := updateDoc["$set"].(bson.M)
	if !ok {
		return nil, errors.New("invalid update data")
	}
	for field := range set {
		if strings.HasPrefix(field, "$") {
			return nil, errors.New("invalid update data")
		}
	}
	return set, nil
}
