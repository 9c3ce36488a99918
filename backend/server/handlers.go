package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkale/streakly/backend/habits"
	"github.com/pkale/streakly/backend/models"
	"github.com/pkale/streakly/backend/server/auth"
	contextKey "github.com/pkale/streakly/backend/server/context_key"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// API holds the handler dependencies. Identity always comes out of the
// request context put there by jwtMiddleware; handlers pass the user id
// into the habit service explicitly.
type API struct {
	service *habits.Service
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	UserID       string `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type habitRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
}

type listHabitsResponse struct {
	Rows  []models.Habit `json:"rows"`
	Total int            `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// userID extracts the authenticated user's id from the request context.
func (a *API) userID(r *http.Request) (primitive.ObjectID, error) {
	raw, ok := r.Context().Value(contextKey.UserIDKey).(string)
	if !ok || raw == "" {
		return primitive.NilObjectID, errors.New("authentication required")
	}
	return primitive.ObjectIDFromHex(raw)
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, refreshToken, err := auth.SignUp(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, RefreshToken: refreshToken})
}

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, refreshToken, err := auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, RefreshToken: refreshToken})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, refreshToken, err := auth.RefreshToken(req.UserID, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, RefreshToken: refreshToken})
}

func (a *API) handleListHabits(w http.ResponseWriter, r *http.Request) {
	userID, err := a.userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	rows, total, err := a.service.ListHabits(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if rows == nil {
		rows = []models.Habit{}
	}
	writeJSON(w, http.StatusOK, listHabitsResponse{Rows: rows, Total: total})
}

func (a *API) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	userID, err := a.userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	var req habitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	habit, err := a.service.CreateHabit(r.Context(), userID, req.Title, req.Description, habits.Frequency(req.Frequency))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusCreated, habit)
}

func (a *API) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	userID, err := a.userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	habitID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req habitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	habit, err := a.service.UpdateHabit(r.Context(), habitID, userID, req.Title, req.Description, req.Frequency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, habit)
}

func (a *API) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, err := a.userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	habitID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.service.DeleteHabit(r.Context(), habitID, userID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleCompleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, err := a.userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	habitID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = a.service.CompleteHabit(r.Context(), habitID, userID)
	if err != nil {
		var alreadyCompleted *habits.AlreadyCompletedError
		if errors.As(err, &alreadyCompleted) {
			writeError(w, http.StatusConflict, alreadyCompleted)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (a *API) handleStatistics(w http.ResponseWriter, r *http.Request) {
	userID, err := a.userID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	stats, err := a.service.Statistics(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
