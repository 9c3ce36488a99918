package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkale/streakly/backend"
	"github.com/pkale/streakly/frontend"
)

func main() {
	// Load the .env file
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Run only one side when asked; default to both for local development.
	switch {
	case len(os.Args) > 1 && os.Args[1] == "backend":
		backend.RunBackend()
	case len(os.Args) > 1 && os.Args[1] == "frontend":
		frontend.RunFrontend()
	default:
		go backend.RunBackend()
		frontend.RunFrontend()
	}
}
