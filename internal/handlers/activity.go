package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/calmry/calmry-backend/internal/middleware"
	"github.com/calmry/calmry-backend/internal/models"
)

// ActivityStore is the activity-persistence surface the handler depends on.
type ActivityStore interface {
	InsertActivity(ctx context.Context, entry *models.ActivityEntry) error
	ListActivities(ctx context.Context, userID string, limit, skip int) ([]models.ActivityEntry, int64, error)
}

type ActivityHandler struct {
	activities ActivityStore
}

func NewActivityHandler(activities ActivityStore) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

type ActivityRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Difficulty  int    `json:"difficulty"`
	Feedback    string `json:"feedback"`
}

// Log records a wellness activity for the authenticated user.
func (h *ActivityHandler) Log(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	activityType := models.ActivityType(strings.TrimSpace(req.Type))
	if !activityType.Valid() {
		fail(w, http.StatusBadRequest, "Invalid activity type")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		fail(w, http.StatusBadRequest, "Activity name is required")
		return
	}
	if req.Duration < 0 {
		fail(w, http.StatusBadRequest, "Duration must not be negative")
		return
	}

	now := time.Now().UTC()
	entry := &models.ActivityEntry{
		UserID:      user.ID.String(),
		Type:        activityType,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Duration:    req.Duration,
		Difficulty:  req.Difficulty,
		Feedback:    strings.TrimSpace(req.Feedback),
		Timestamp:   now,
		CreatedAt:   now,
	}

	if err := h.activities.InsertActivity(r.Context(), entry); err != nil {
		log.Error().Err(err).Str("user_id", entry.UserID).Msg("Failed to insert activity entry")
		fail(w, http.StatusInternalServerError, "Failed to save activity")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "Activity logged",
		"activity": entry,
	})
}

// List returns the authenticated user's activities, newest first.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, skip := pageParams(r)
	entries, total, err := h.activities.ListActivities(r.Context(), user.ID.String(), limit, skip)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to list activities")
		fail(w, http.StatusInternalServerError, "Failed to fetch activities")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"activities": entries,
		"total":      total,
	})
}
