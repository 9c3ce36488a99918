package frontend

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkale/streakly/frontend/client"
	"github.com/pkale/streakly/frontend/cmd"
)

// RunFrontend starts the interactive shell client against the configured
// server.
func RunFrontend() {
	// Load the .env file
	err := godotenv.Load("frontend/.env")
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Read the environment variables
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	authToken := os.Getenv("AUTH_TOKEN")
	authTokenRefresh := os.Getenv("AUTH_TOKEN_REFRESH")
	serverURL := os.Getenv("SERVER_URL")

	client.InitAuthClient(serverURL, signingKey, authToken, authTokenRefresh)
	cmd.InitCommands()
	cmd.Execute()
}
