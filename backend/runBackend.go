package backend

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkale/streakly/backend/habits"
	"github.com/pkale/streakly/backend/queue"
	"github.com/pkale/streakly/backend/server"
	"github.com/pkale/streakly/backend/server/auth"
	storage "github.com/pkale/streakly/backend/storage/persistent"
)

// RunBackend is the main function that sets up and runs the backend server.
func RunBackend() {

	// Load the .env file.
	err := godotenv.Load("backend/.env")
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Read the environment variables from the .env file using os.Getenv.
	signingKey := os.Getenv("JWT_SIGNING_KEY") // JWT signing key for token generation
	serverURL := os.Getenv("SERVER_URL")       // The URL where the server is running
	dbURI := os.Getenv("MONGODB_URI")          // MongoDB database URI
	dbName := os.Getenv("DB_NAME")             // The name of the MongoDB database
	redisUrl := os.Getenv("REDIS_URL")         // The Redis URL for caching statistics
	rabbitMQURL := os.Getenv("RABBITMQ_URL")   // The URL for the RabbitMQ message broker
	numEventProducers := 1                     // The number of habit event producers
	numEventConsumers := 2                     // The number of habit event consumers
	ctx := context.Background()                // Create a new context

	// Initialize the cache used for statistics and event dedupe
	eventCache := queue.InitEventCache(redisUrl)

	// Build the habit event queue
	eventQueue := queue.BuildEventQueue(rabbitMQURL, numEventProducers, numEventConsumers, eventCache)

	// Start the queue consumers
	_, _, err = eventQueue.StartConsumers(ctx)
	if err != nil {
		log.Fatal("error starting queue consumers: ", err)
	}

	// Connect the row store
	store, err := storage.NewStorage(dbName, dbURI)
	if err != nil {
		log.Fatal("error initializing storage: ", err)
	}

	// Initialize the authentication service
	auth.InitAuth(store, signingKey)

	// Wire the habit service: store for rows, cache for statistics,
	// queue for invalidation events
	service := habits.NewService(store, eventCache, eventQueue)

	// Start the core server
	go server.Start(serverURL, signingKey, service)

	// Setting up the signal interrupt handler to gracefully shutdown our server
	sigs := make(chan os.Signal, 1)

	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		fmt.Println()
		fmt.Println(sig)
		store.Disconnect()
		os.Exit(0)
	}()

	select {}
}
