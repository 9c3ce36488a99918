package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pkale/streakly/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStorage is a struct representing a MongoDB storage.
// It provides an interface to perform CRUD operations on the collections
// backing the habit tracker.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

// NewMongoStorage creates a new instance of MongoStorage.
// This function doesn't establish a connection to the MongoDB server.
// To connect to the server, use the Connect method of the returned MongoStorage instance.
func NewMongoStorage() *MongoStorage {
	return &MongoStorage{}
}

// Connect establishes a connection to the MongoDB server at the given URI
// and database name, and sets up indexes and unique constraints.
// Returns an error if any issues are encountered.
func (m *MongoStorage) Connect(dbName, uri string) error {

	// Set a timeout for the connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %v", err)
	}

	m.client = client
	m.dbName = dbName

	// Initializing users collection
	usersCollection := m.client.Database(m.dbName).Collection("users")

	// Every user has a unique email; the index also speeds up sign-in lookups.
	emailIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"email": 1, // 1 for ascending order
		},
		Options: options.Index().SetUnique(true),
	}

	_, err = usersCollection.Indexes().CreateOne(ctx, emailIndexModel)
	if err != nil {
		return fmt.Errorf("error creating email index: %v", err)
	}

	usernameIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"username": 1,
		},
		Options: options.Index().SetUnique(true),
	}

	_, err = usersCollection.Indexes().CreateOne(ctx, usernameIndexModel)
	if err != nil {
		return fmt.Errorf("error creating username index: %v", err)
	}

	// Initializing habits collection
	habitsCollection := m.client.Database(m.dbName).Collection("habits")

	userIdIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"user_id": 1, // 1 for ascending order
		},
		Options: options.Index(),
	}

	_, err = habitsCollection.Indexes().CreateOne(ctx, userIdIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id index: %v", err)
	}

	// A user can't have two habits with the same title.
	userIdTitleIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1}, // 1 for ascending order
			{Key: "title", Value: 1},   // 1 for ascending order
		},
		Options: options.Index().SetUnique(true),
	}

	_, err = habitsCollection.Indexes().CreateOne(ctx, userIdTitleIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id and title index: %v", err)
	}

	// Initializing habit completions collection
	completionsCollection := m.client.Database(m.dbName).Collection("habit_completions")

	// The completion guard queries (habit_id, user_id) with a range on
	// completed_at; this compound index serves that query shape directly.
	// It is not unique: the guard enforces one-completion-per-period at
	// write time, not the storage layer.
	guardIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "habit_id", Value: 1},
			{Key: "user_id", Value: 1},
			{Key: "completed_at", Value: 1},
		},
		Options: options.Index(),
	}

	_, err = completionsCollection.Indexes().CreateOne(ctx, guardIndexModel)
	if err != nil {
		return fmt.Errorf("error creating habit_id, user_id and completed_at index: %v", err)
	}

	_, err = completionsCollection.Indexes().CreateOne(ctx, userIdIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id index on completions: %v", err)
	}

	return nil
}

// Disconnect closes the connection to the MongoDB server.
// It should be called when the MongoStorage instance is no longer needed.
// Returns an error if the disconnection process fails.
func (m *MongoStorage) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %v", err)
	}

	return nil
}

// AddUser adds a new user document to the 'users' collection.
// Returns the added user instance and an error if the insert operation fails.
func (m *MongoStorage) AddUser(ctx context.Context, user *models.User) (*models.User, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	result, err := collection.InsertOne(ctx, user)
	if err != nil {
		if writeException, ok := err.(mongo.WriteException); ok {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 {
					return nil, errors.New("a user with this email or username already exists")
				}
			}
		}
		return nil, err
	}

	user.ID = result.InsertedID.(primitive.ObjectID)
	return user, nil
}

// FindUser finds a user document in the 'users' collection that matches the given filter.
// Returns the found user as a User instance and an error if the find operation fails.
func (m *MongoStorage) FindUser(ctx context.Context, filter interface{}) (*models.User, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	result := collection.FindOne(ctx, filter)
	user := &models.User{}
	err := result.Decode(user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser updates a user document in the 'users' collection that matches the given filter with the provided update.
// Returns the updated user as a User instance and an error if the update operation fails.
func (m *MongoStorage) UpdateUser(ctx context.Context, filter interface{}, update interface{}) (*models.User, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, errors.New("no user found to update")
	}
	updatedUser, err := m.FindUser(ctx, filter)
	if err != nil {
		return nil, err
	}
	return updatedUser, nil
}

// DeleteUser deletes a user document from the 'users' collection that
// matches the given filter, along with every habit and completion row the
// user owns. Habit rows are only removed if their completions were
// removed first, mirroring the per-habit cascade.
func (m *MongoStorage) DeleteUser(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	userResult := collection.FindOne(ctx, filter)
	if err := userResult.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.New("user not found")
		}
		return nil, err
	}

	user := &models.User{}
	if err := userResult.Decode(user); err != nil {
		return nil, err
	}

	// Completions first, then habits: a failure leaves habits intact
	// rather than orphaning completion events.
	_, err := m.client.Database(m.dbName).Collection("habit_completions").DeleteMany(ctx, bson.M{"user_id": user.ID})
	if err != nil {
		return nil, err
	}
	_, err = m.client.Database(m.dbName).Collection("habits").DeleteMany(ctx, bson.M{"user_id": user.ID})
	if err != nil {
		return nil, err
	}

	result, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

// AddHabit adds a new habit document to the 'habits' collection.
// Returns the added habit instance and an error if the insert operation fails.
func (m *MongoStorage) AddHabit(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	// Check if the habit has necessary fields
	if habit.Title == "" || habit.UserID.IsZero() {
		return nil, errors.New("invalid habit fields")
	}

	// Check that the owning user exists before inserting
	usersCollection := m.client.Database(m.dbName).Collection("users")
	err := usersCollection.FindOne(ctx, bson.M{"_id": habit.UserID}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no user found with id %s", habit.UserID.Hex())
		}
		return nil, err
	}

	habitsCollection := m.client.Database(m.dbName).Collection("habits")
	result, err := habitsCollection.InsertOne(ctx, habit)
	if err != nil {
		if writeException, ok := err.(mongo.WriteException); ok {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 {
					return nil, fmt.Errorf("a habit with the title '%s' already exists for the user", habit.Title)
				}
			}
		}
		return nil, err
	}
	habit.ID = result.InsertedID.(primitive.ObjectID)
	return habit, nil
}

// FindHabit finds a single habit document in the 'habits' collection that
// matches the given filter.
func (m *MongoStorage) FindHabit(ctx context.Context, filter interface{}) (*models.Habit, error) {
	collection := m.client.Database(m.dbName).Collection("habits")
	result := collection.FindOne(ctx, filter)
	habit := &models.Habit{}
	err := result.Decode(habit)
	if err != nil {
		return nil, err
	}
	return habit, nil
}

// FindHabitsByParameter finds habit documents in the 'habits' collection that match the given filter.
// Returns the found habits as a slice of Habit instances and an error if the find operation fails.
func (m *MongoStorage) FindHabitsByParameter(ctx context.Context, filter interface{}) ([]models.Habit, error) {
	// Convert the filter to a map to validate the fields
	filterMap, ok := filter.(bson.M)
	if !ok {
		return nil, errors.New("invalid filter data")
	}

	// Define a set of valid Habit fields
	validFields := map[string]struct{}{
		"_id":            {},
		"user_id":        {},
		"title":          {},
		"description":    {},
		"frequency":      {},
		"streak_count":   {},
		"last_completed": {},
	}

	// Validate the fields in the filter
	for field := range filterMap {
		if _, ok := validFields[field]; !ok {
			return nil, errors.New("invalid field in filter")
		}
	}

	// If the filter is valid, proceed with the find operation
	collection := m.client.Database(m.dbName).Collection("habits")
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var habits []models.Habit
	for cursor.Next(ctx) {
		var habit models.Habit
		err := cursor.Decode(&habit)
		if err != nil {
			return nil, err
		}
		habits = append(habits, habit)
	}

	return habits, nil
}

// UpdateHabit updates a habit document in the 'habits' collection that matches the given filter with the provided update.
// Filter must be non-empty for a valid updation.
// Returns the result of the update operation as an UpdateResult instance and an error if the update operation fails.
func (m *MongoStorage) UpdateHabit(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error) {
	// Check that the filter is not nil
	if filter == nil {
		return nil, errors.New("filter cannot be nil")
	}

	filterMap, ok := filter.(bson.M)
	if !ok {
		return nil, errors.New("filter must be of type bson.M")
	}
	if len(filterMap) == 0 {
		return nil, errors.New("filter cannot be empty")
	}

	collection := m.client.Database(m.dbName).Collection("habits")
	err := collection.FindOne(ctx, filter).Err()
	if err == mongo.ErrNoDocuments {
		return nil, errors.New("habit does not exist")
	} else if err != nil {
		return nil, err
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// DeleteHabit deletes habit documents from the 'habits' collection that match the given filter.
// Returns the result of the delete operation as a DeleteResult instance and an error if the delete operation fails.
func (m *MongoStorage) DeleteHabit(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	collection := m.client.Database(m.dbName).Collection("habits")
	result, err := collection.DeleteMany(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}

// AddCompletion adds a new completion document to the 'habit_completions' collection.
// Returns the added completion instance and an error if the insert operation fails.
func (m *MongoStorage) AddCompletion(ctx context.Context, completion *models.HabitCompletion) (*models.HabitCompletion, error) {
	if completion.HabitID.IsZero() || completion.UserID.IsZero() {
		return nil, errors.New("invalid completion fields")
	}

	collection := m.client.Database(m.dbName).Collection("habit_completions")
	result, err := collection.InsertOne(ctx, completion)
	if err != nil {
		return nil, err
	}

	completion.ID = result.InsertedID.(primitive.ObjectID)
	return completion, nil
}

// FindCompletionsByParameter finds completion documents in the 'habit_completions' collection that match the given filter.
// Returns the found completions as a slice of HabitCompletion instances and an error if the find operation fails.
func (m *MongoStorage) FindCompletionsByParameter(ctx context.Context, filter interface{}) ([]models.HabitCompletion, error) {
	collection := m.client.Database(m.dbName).Collection("habit_completions")
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var completions []models.HabitCompletion
	for cursor.Next(ctx) {
		var completion models.HabitCompletion
		err := cursor.Decode(&completion)
		if err != nil {
			return nil, err
		}
		completions = append(completions, completion)
	}

	return completions, nil
}

// CountCompletions returns the number of documents in the 'habit_completions' collection that match the given filter.
// Returns an error if the count operation fails.
func (m *MongoStorage) CountCompletions(ctx context.Context, filter interface{}) (int64, error) {
	collection := m.client.Database(m.dbName).Collection("habit_completions")
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteCompletion deletes a single completion document from the 'habit_completions' collection that matches the given filter.
// Returns the result of the delete operation as a DeleteResult instance and an error if the delete operation fails.
func (m *MongoStorage) DeleteCompletion(ctx context.Context, filter interface{}) (*DeleteResult, error) {
	collection := m.client.Database(m.dbName).Collection("habit_completions")
	result, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &DeleteResult{DeletedCount: result.DeletedCount}, nil
}
