package storage

import (
	"context"
	"fmt"

	"github.com/pkale/streakly/backend/models"
)

// DeleteResult reports how many documents a delete removed.
type DeleteResult struct {
	DeletedCount int64
}

// UpdateResult reports how many documents an update matched and modified.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// StorageInterface is the set of row operations the rest of the service
// is written against. Filters and updates are bson documents; the habits
// workflow composes equality and range predicates on the field names
// declared in the models package.
type StorageInterface interface {
	// Establishes a connection to the storage backend.
	Connect(dbName, uri string) error
	// Disconnects from the storage backend.
	Disconnect() error
	// Adds a new user to the storage backend.
	AddUser(ctx context.Context, user *models.User) (*models.User, error)
	// Finds a user in the storage backend using a filter.
	FindUser(ctx context.Context, filter interface{}) (*models.User, error)
	// Updates an existing user in the storage backend using a filter and update instructions.
	UpdateUser(ctx context.Context, filter interface{}, update interface{}) (*models.User, error)
	// Deletes a user and every habit and completion row the user owns.
	DeleteUser(ctx context.Context, filter interface{}) (*DeleteResult, error)
	// Adds a new habit to the storage backend.
	AddHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error)
	// Finds a single habit in the storage backend using a filter.
	FindHabit(ctx context.Context, filter interface{}) (*models.Habit, error)
	// Finds habits in the storage backend using a filter.
	FindHabitsByParameter(ctx context.Context, filter interface{}) ([]models.Habit, error)
	// Updates an existing habit in the storage backend using a filter and update instructions.
	UpdateHabit(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error)
	// Deletes habits in the storage backend using a filter.
	DeleteHabit(ctx context.Context, filter interface{}) (*DeleteResult, error)
	// Adds a new completion event to the storage backend.
	AddCompletion(ctx context.Context, completion *models.HabitCompletion) (*models.HabitCompletion, error)
	// Finds completion events in the storage backend using a filter.
	FindCompletionsByParameter(ctx context.Context, filter interface{}) ([]models.HabitCompletion, error)
	// Returns the count of completion events matching a filter.
	CountCompletions(ctx context.Context, filter interface{}) (int64, error)
	// Deletes a single completion event in the storage backend using a filter.
	DeleteCompletion(ctx context.Context, filter interface{}) (*DeleteResult, error)
}

// NewStorage creates a new StorageInterface with a MongoDB backend,
// using the provided URI to connect to the MongoDB server.
func NewStorage(dbName, uri string) (StorageInterface, error) {
	storage := NewMongoStorage()
	err := storage.Connect(dbName, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return storage, nil
}
