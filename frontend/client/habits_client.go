package client

import (
	"errors"
	"net/http"

	"github.com/pkale/streakly/backend/habits"
	"github.com/pkale/streakly/backend/models"
)

// ListHabitsResult mirrors the server's habit listing payload.
type ListHabitsResult struct {
	Rows  []models.Habit `json:"rows"`
	Total int            `json:"total"`
}

// authorizedToken resolves a usable access token, refreshing it if
// needed, or fails when nobody is signed in.
func authorizedToken() (string, error) {
	token, err := IsUserAuthenticated()
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errors.New("not signed in")
	}
	return token, nil
}

// ListHabits fetches the signed-in user's habits with their current
// period completion state.
func ListHabits() (*ListHabitsResult, error) {
	token, err := authorizedToken()
	if err != nil {
		return nil, err
	}

	result := &ListHabitsResult{}
	if err := postJSON(http.MethodGet, "/habits", &token, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateHabit creates a new habit with the given title, description and
// cadence.
func CreateHabit(title, description, frequency string) (*models.Habit, error) {
	token, err := authorizedToken()
	if err != nil {
		return nil, err
	}

	habit := &models.Habit{}
	err = postJSON(http.MethodPost, "/habits", &token, map[string]string{
		"title":       title,
		"description": description,
		"frequency":   frequency,
	}, habit)
	if err != nil {
		return nil, err
	}
	return habit, nil
}

// UpdateHabit edits a habit's title, description and/or frequency. Empty
// fields are left unchanged server-side.
func UpdateHabit(habitID, title, description, frequency string) (*models.Habit, error) {
	token, err := authorizedToken()
	if err != nil {
		return nil, err
	}

	habit := &models.Habit{}
	err = postJSON(http.MethodPatch, "/habits/"+habitID, &token, map[string]string{
		"title":       title,
		"description": description,
		"frequency":   frequency,
	}, habit)
	if err != nil {
		return nil, err
	}
	return habit, nil
}

// DeleteHabit removes a habit and its completion history.
func DeleteHabit(habitID string) error {
	token, err := authorizedToken()
	if err != nil {
		return err
	}
	return postJSON(http.MethodDelete, "/habits/"+habitID, &token, nil, nil)
}

// CompleteHabit records a completion for the habit. A 409 from the server
// comes back as the server's already-completed message.
func CompleteHabit(habitID string) error {
	token, err := authorizedToken()
	if err != nil {
		return err
	}
	return postJSON(http.MethodPost, "/habits/"+habitID+"/complete", &token, nil, nil)
}

// GetStatistics fetches the signed-in user's aggregate statistics.
func GetStatistics() (*habits.Statistics, error) {
	token, err := authorizedToken()
	if err != nil {
		return nil, err
	}

	stats := &habits.Statistics{}
	if err := postJSON(http.MethodGet, "/statistics", &token, nil, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
