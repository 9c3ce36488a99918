package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"password_hash"`
	Email        string             `bson:"email" json:"email"`
}

// Habit is a user-owned recurring task definition. StreakCount is only
// ever written through the streak transition in the habits package, and
// LastCompleted's zero value means the habit has never been completed.
type Habit struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description" json:"description"`
	Frequency     string             `bson:"frequency" json:"frequency"`
	StreakCount   int                `bson:"streak_count" json:"streak_count"`
	LastCompleted time.Time          `bson:"last_completed,omitempty" json:"last_completed"`

	// Computed at read time against the current period window, never stored.
	IsCompletedToday bool `bson:"-" json:"is_completed_today"`
}

// HabitCompletion is an immutable completion event. Rows are created only
// by the completion workflow and removed only when their habit is deleted.
type HabitCompletion struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HabitID     primitive.ObjectID `bson:"habit_id" json:"habit_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	CompletedAt time.Time          `bson:"completed_at" json:"completed_at"`
}
