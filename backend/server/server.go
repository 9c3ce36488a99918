package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkale/streakly/backend/habits"
	contextKey "github.com/pkale/streakly/backend/server/context_key"
)

// jwtMiddleware reads the JWT from the Authorization header. A valid
// token's user id claim is injected into the request context under
// contextKey.UserIDKey; parse errors land under contextKey.JwtErrorKey.
// The middleware never stops the request itself: handlers decide what an
// absent or broken identity means for their route.
func jwtMiddleware(signingKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			splitToken := strings.Split(authHeader, "Bearer ")
			if len(splitToken) == 2 {
				token, err := jwt.Parse(splitToken[1], func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
					}
					return []byte(signingKey), nil
				})
				if err != nil {
					log.Println("Error occurred while parsing JWT token:", err)
					ctx := context.WithValue(r.Context(), contextKey.JwtErrorKey, err)
					r = r.WithContext(ctx)
				} else if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
					ctx := context.WithValue(r.Context(), contextKey.UserIDKey, claims["id"])
					r = r.WithContext(ctx)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and provides a generic error message to the client.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered: %s\n", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server for the habit API.
// The function requires a serverURL (the URL where the server must be
// deployed), the JWT signing key and the habit service the handlers run
// against.
func Start(serverURL, signingKey string, service *habits.Service) {
	// Initialize a new router
	r := mux.NewRouter()

	api := &API{service: service}

	// Auth routes stay outside the identity requirement
	r.HandleFunc("/auth/signup", api.handleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/auth/signin", api.handleSignIn).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", api.handleRefresh).Methods(http.MethodPost)

	// Habit routes
	r.HandleFunc("/habits", api.handleListHabits).Methods(http.MethodGet)
	r.HandleFunc("/habits", api.handleCreateHabit).Methods(http.MethodPost)
	r.HandleFunc("/habits/{id}", api.handleUpdateHabit).Methods(http.MethodPatch)
	r.HandleFunc("/habits/{id}", api.handleDeleteHabit).Methods(http.MethodDelete)
	r.HandleFunc("/habits/{id}/complete", api.handleCompleteHabit).Methods(http.MethodPost)
	r.HandleFunc("/statistics", api.handleStatistics).Methods(http.MethodGet)

	// Wrap the whole router in JWT parsing and panic recovery
	root := recoveryMiddleware(jwtMiddleware(signingKey, r))

	// Apply the CORS middleware to the router
	corsOrigins := handlers.AllowedOrigins([]string{"*"})
	corsMethods := handlers.AllowedMethods([]string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	corsHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})

	corsRouter := handlers.CORS(corsOrigins, corsMethods, corsHeaders)(root)

	// Apply the logging middleware
	loggingRouter := handlers.LoggingHandler(os.Stdout, corsRouter)

	// Parsing the server url
	u, err := url.Parse(serverURL)
	if err != nil {
		panic(err)
	}

	// Start the server
	server := &http.Server{
		Handler:      loggingRouter,
		Addr:         u.Host,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}
