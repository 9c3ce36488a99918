package storage

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkale/streakly/backend/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Test variables
var (
	testUsername1 = "testuser1"
	testEmail1    = "testuser1@example.com"
	testPassword1 = "Test1234"

	testUsername2 = "testuser2"
	testEmail2    = "testuser2@example.com"
	testPassword2 = "Test5678"

	habitTitle       = "TestHabit"
	habitDescription = "This is a test habit"
	habitFrequency   = "daily"

	testUser1ID primitive.ObjectID
	testUser2ID primitive.ObjectID

	store StorageInterface
)

// TestMain loads environment variables, connects to the test database and
// seeds the two test users. The suite runs against a real MongoDB; when
// MONGODB_URI is not set the whole suite is skipped.
func TestMain(m *testing.M) {

	_ = godotenv.Load("../../.env")

	mongodbURI := os.Getenv("MONGODB_URI")
	dbName := os.Getenv("TEST_DB_NAME")

	if mongodbURI == "" {
		log.Println("MONGODB_URI not set; skipping storage integration tests")
		os.Exit(0)
	}

	var err error
	store, err = NewStorage(dbName, mongodbURI)
	if err != nil {
		panic("Error initializing storage: " + err.Error())
	}

	testUser1 := &models.User{
		Username:     testUsername1,
		Email:        testEmail1,
		PasswordHash: testPassword1,
	}

	testUser1, err = store.AddUser(context.Background(), testUser1)
	if err != nil {
		log.Fatalf("Failed to add test user 1: %v", err)
	}

	testUser1ID = testUser1.ID

	testUser2 := &models.User{
		Username:     testUsername2,
		Email:        testEmail2,
		PasswordHash: testPassword2,
	}

	testUser2, err = store.AddUser(context.Background(), testUser2)
	if err != nil {
		log.Fatalf("Failed to add test user 2: %v", err)
	}

	testUser2ID = testUser2.ID

	code := m.Run()

	cleanup()

	os.Exit(code)
}

// cleanup deletes the test users (and, through the cascade, any habits
// and completions they still own) after the suite.
func cleanup() {
	_, err := store.DeleteUser(context.Background(), bson.M{"_id": testUser1ID})
	if err != nil {
		log.Printf("Failed to delete test user 1: %v", err)
	}
	_, err = store.DeleteUser(context.Background(), bson.M{"_id": testUser2ID})
	if err != nil {
		log.Printf("Failed to delete test user 2: %v", err)
	}
}

func TestAddUserRejectsDuplicates(t *testing.T) {
	_, err := store.AddUser(context.Background(), &models.User{
		Username:     "someoneelse",
		Email:        testEmail1,
		PasswordHash: testPassword1,
	})
	assert.Error(t, err, "Should return an error for a duplicate email")

	_, err = store.AddUser(context.Background(), &models.User{
		Username:     testUsername1,
		Email:        "someoneelse@example.com",
		PasswordHash: testPassword1,
	})
	assert.Error(t, err, "Should return an error for a duplicate username")
}

func TestAddHabit(t *testing.T) {
	habit := &models.Habit{
		Title:       habitTitle,
		Description: habitDescription,
		Frequency:   habitFrequency,
		UserID:      testUser1ID,
	}

	// Add habit for testUser1
	addedHabit, err := store.AddHabit(context.Background(), habit)
	if err != nil {
		t.Fatalf("Failed to add habit: %v", err)
	}

	// Make sure the ID is updated after the habit is added
	assert.NotEqual(t, primitive.NilObjectID, addedHabit.ID)

	// Retrieve the habit from the database and compare
	retrievedHabit, err := store.FindHabitsByParameter(context.Background(), bson.M{"_id": addedHabit.ID})
	if err != nil {
		t.Fatalf("Failed to retrieve habit: %v", err)
	}

	// There should be exactly one habit retrieved
	assert.Equal(t, 1, len(retrievedHabit))
	assert.Equal(t, habitTitle, retrievedHabit[0].Title)
	assert.Equal(t, habitFrequency, retrievedHabit[0].Frequency)
	assert.Equal(t, 0, retrievedHabit[0].StreakCount)
	assert.True(t, retrievedHabit[0].LastCompleted.IsZero())

	// Test adding a habit with missing fields
	badHabit := &models.Habit{
		Title: habitTitle,
	}
	_, err = store.AddHabit(context.Background(), badHabit)
	assert.Error(t, err, "Should return an error for missing fields")
}

// TestAddHabitDuplicate: Test for adding a habit with the same title for the same user.
func TestAddHabitDuplicate(t *testing.T) {
	habit := &models.Habit{
		Title:       habitTitle,
		Description: habitDescription,
		Frequency:   habitFrequency,
		UserID:      testUser2ID,
	}

	// Add the habit for the first time
	_, err := store.AddHabit(context.Background(), habit)
	assert.NoError(t, err, "Failed to add habit for the first time")

	// Try to add the same habit again
	_, err = store.AddHabit(context.Background(), &models.Habit{
		Title:     habitTitle,
		Frequency: habitFrequency,
		UserID:    testUser2ID,
	})
	assert.Error(t, err, "Should return an error when trying to add a duplicate habit")
}

// TestAddHabitNonExistingUser: Test for adding a habit with a non-existing user.
func TestAddHabitNonExistingUser(t *testing.T) {
	habit := &models.Habit{
		Title:       habitTitle,
		Description: habitDescription,
		Frequency:   habitFrequency,
		UserID:      primitive.NewObjectID(), // non-existing user ID
	}

	_, err := store.AddHabit(context.Background(), habit)
	assert.Error(t, err, "Should return an error when trying to add a habit for a non-existing user")
}

func TestFindHabitsByParameter(t *testing.T) {
	// Find habits for testUser1
	habits, err := store.FindHabitsByParameter(context.Background(), bson.M{"user_id": testUser1ID})
	if err != nil {
		t.Fatalf("Failed to find habits: %v", err)
	}

	// Make sure the habit is found
	assert.NotEqual(t, 0, len(habits))

	// Test finding habits with a non-existent user
	habits, err = store.FindHabitsByParameter(context.Background(), bson.M{"user_id": primitive.NewObjectID()})
	assert.NoError(t, err, "Should not return an error for non-existent user")
	assert.Equal(t, 0, len(habits), "Should return no habits for non-existent user")
}

// TestFindHabitsByInvalidParameter: Test for finding habits with an invalid parameter.
func TestFindHabitsByInvalidParameter(t *testing.T) {
	// Define a filter with an invalid parameter
	filter := bson.M{"invalid_parameter": "value"}

	// Try to find habits with the invalid parameter
	habits, err := store.FindHabitsByParameter(context.Background(), filter)

	// Assert that an error is returned
	assert.Error(t, err, "Should return an error when trying to find habits with an invalid parameter")

	// Assert that no habits are returned
	assert.Nil(t, habits, "Should return nil when trying to find habits with an invalid parameter")
}

func TestUpdateHabit(t *testing.T) {
	// Find habits for testUser1
	habits, err := store.FindHabitsByParameter(context.Background(), bson.M{"user_id": testUser1ID})
	if err != nil || len(habits) == 0 {
		t.Fatalf("Failed to find habits: %v", err)
	}

	habit := habits[0]

	// Record a streak update the way the completion path writes it
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"streak_count":   3,
			"last_completed": now,
		},
	}
	result, err := store.UpdateHabit(context.Background(), bson.M{"_id": habit.ID}, update)
	if err != nil {
		t.Fatalf("Failed to update habit: %v", err)
	}

	// Make sure the habit is updated
	assert.Equal(t, int64(1), result.ModifiedCount)

	// Verify the habit was actually updated in the database
	updatedHabit, err := store.FindHabit(context.Background(), bson.M{"_id": habit.ID})
	if err != nil {
		t.Fatalf("Failed to retrieve habit: %v", err)
	}
	assert.Equal(t, 3, updatedHabit.StreakCount)
	assert.True(t, updatedHabit.LastCompleted.Truncate(time.Second).Equal(now.Truncate(time.Second)))

	// Test updating a non-existent habit
	_, err = store.UpdateHabit(context.Background(), bson.M{"_id": primitive.NewObjectID()}, update)
	if err == nil {
		t.Fatalf("Expected error when updating non-existent habit, got nil")
	}

	// Test updating with a nil filter
	_, err = store.UpdateHabit(context.Background(), nil, update)
	assert.Error(t, err, "Should return an error when updating with a nil filter")

	// Test updating with an empty filter
	_, err = store.UpdateHabit(context.Background(), bson.M{}, update)
	assert.Error(t, err, "Should return an error when updating with an empty filter")
}

func TestCompletionRoundTrip(t *testing.T) {
	habits, err := store.FindHabitsByParameter(context.Background(), bson.M{"user_id": testUser1ID})
	if err != nil || len(habits) == 0 {
		t.Fatalf("Failed to find habits: %v", err)
	}

	habit := habits[0]
	completedAt := time.Now()

	completion, err := store.AddCompletion(context.Background(), &models.HabitCompletion{
		HabitID:     habit.ID,
		UserID:      testUser1ID,
		CompletedAt: completedAt,
	})
	if err != nil {
		t.Fatalf("Failed to add completion: %v", err)
	}
	assert.NotEqual(t, primitive.NilObjectID, completion.ID)

	// The guard query shape: (habit_id, user_id) with a completed_at range.
	count, err := store.CountCompletions(context.Background(), bson.M{
		"habit_id": habit.ID,
		"user_id":  testUser1ID,
		"completed_at": bson.M{
			"$gte": completedAt.Add(-time.Minute),
			"$lte": completedAt.Add(time.Minute),
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Outside the range, the same completion must not match.
	count, err = store.CountCompletions(context.Background(), bson.M{
		"habit_id": habit.ID,
		"user_id":  testUser1ID,
		"completed_at": bson.M{
			"$gte": completedAt.Add(time.Hour),
			"$lte": completedAt.Add(2 * time.Hour),
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)

	found, err := store.FindCompletionsByParameter(context.Background(), bson.M{"habit_id": habit.ID})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(found))

	deleted, err := store.DeleteCompletion(context.Background(), bson.M{"_id": completion.ID})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), deleted.DeletedCount)
}

func TestAddCompletionInvalidFields(t *testing.T) {
	_, err := store.AddCompletion(context.Background(), &models.HabitCompletion{})
	assert.Error(t, err, "Should return an error for a completion without habit and user ids")
}

func TestDeleteHabit(t *testing.T) {
	// Find habits for testUser2
	habits, err := store.FindHabitsByParameter(context.Background(), bson.M{"user_id": testUser2ID})
	if err != nil || len(habits) == 0 {
		t.Fatalf("Failed to find habits: %v", err)
	}

	habit := habits[0]

	// Delete the first habit
	result, err := store.DeleteHabit(context.Background(), bson.M{"_id": habit.ID})
	if err != nil {
		t.Fatalf("Failed to delete habit: %v", err)
	}

	// Make sure the habit is deleted
	assert.Equal(t, int64(1), result.DeletedCount)

	// Verify the habit was actually deleted from the database
	deletedHabit, err := store.FindHabitsByParameter(context.Background(), bson.M{"_id": habit.ID})
	if err != nil {
		t.Fatalf("Failed to retrieve habit: %v", err)
	}
	assert.Equal(t, 0, len(deletedHabit))

	// Test deleting a non-existent habit
	_, err = store.DeleteHabit(context.Background(), bson.M{"_id": primitive.NewObjectID()})
	assert.NoError(t, err, "Should not return an error for non-existent habit")
}

func TestDeleteUserCascades(t *testing.T) {
	// Add a habit with a completion for testUser1
	habit, err := store.AddHabit(context.Background(), &models.Habit{
		Title:     "CascadeHabit",
		Frequency: habitFrequency,
		UserID:    testUser1ID,
	})
	if err != nil {
		t.Fatalf("Failed to add habit: %v", err)
	}

	_, err = store.AddCompletion(context.Background(), &models.HabitCompletion{
		HabitID:     habit.ID,
		UserID:      testUser1ID,
		CompletedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Failed to add completion: %v", err)
	}

	// Delete testUser1
	_, err = store.DeleteUser(context.Background(), bson.M{"_id": testUser1ID})
	if err != nil {
		t.Fatalf("Failed to delete test user 1: %v", err)
	}

	// Check if all habits and completions of testUser1 are deleted
	habits, err := store.FindHabitsByParameter(context.Background(), bson.M{"user_id": testUser1ID})
	if err != nil {
		t.Fatalf("Failed to retrieve habits: %v", err)
	}
	assert.Equal(t, 0, len(habits), "Deleting a user should delete all their habits")

	completions, err := store.FindCompletionsByParameter(context.Background(), bson.M{"user_id": testUser1ID})
	if err != nil {
		t.Fatalf("Failed to retrieve completions: %v", err)
	}
	assert.Equal(t, 0, len(completions), "Deleting a user should delete all their completion events")
}
