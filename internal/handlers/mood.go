package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/calmry/calmry-backend/internal/middleware"
	"github.com/calmry/calmry-backend/internal/models"
)

// MoodStore is the mood-persistence surface the handler depends on.
type MoodStore interface {
	InsertMood(ctx context.Context, entry *models.MoodEntry) error
	ListMoods(ctx context.Context, userID string, limit, skip int) ([]models.MoodEntry, int64, error)
}

type MoodHandler struct {
	moods MoodStore
}

func NewMoodHandler(moods MoodStore) *MoodHandler {
	return &MoodHandler{moods: moods}
}

type MoodRequest struct {
	Score      *int     `json:"score"`
	Note       string   `json:"note"`
	Context    string   `json:"context"`
	Activities []string `json:"activities"`
}

// Log records a mood entry for the authenticated user. Score is required
// and must be 0-100 inclusive; zero is a valid score.
func (h *MoodHandler) Log(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req MoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Score == nil {
		fail(w, http.StatusBadRequest, "Mood score is required")
		return
	}
	if *req.Score < 0 || *req.Score > 100 {
		fail(w, http.StatusBadRequest, "Mood score must be between 0 and 100")
		return
	}

	moodContext := models.MoodContext(strings.TrimSpace(req.Context))
	if moodContext != "" && !moodContext.Valid() {
		fail(w, http.StatusBadRequest, "Invalid mood context")
		return
	}

	activities := req.Activities
	if activities == nil {
		activities = []string{}
	}

	now := time.Now().UTC()
	entry := &models.MoodEntry{
		UserID:     user.ID.String(),
		Score:      *req.Score,
		Note:       strings.TrimSpace(req.Note),
		Context:    moodContext,
		Activities: activities,
		Timestamp:  now,
		CreatedAt:  now,
	}

	if err := h.moods.InsertMood(r.Context(), entry); err != nil {
		log.Error().Err(err).Str("user_id", entry.UserID).Msg("Failed to insert mood entry")
		fail(w, http.StatusInternalServerError, "Failed to save mood entry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Mood logged",
		"mood":    entry,
	})
}

// List returns the authenticated user's mood entries, newest first.
func (h *MoodHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit, skip := pageParams(r)
	entries, total, err := h.moods.ListMoods(r.Context(), user.ID.String(), limit, skip)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to list mood entries")
		fail(w, http.StatusInternalServerError, "Failed to fetch mood entries")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"moods":   entries,
		"total":   total,
	})
}

func pageParams(r *http.Request) (limit, skip int) {
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil && v > 0 {
		skip = v
	}
	return limit, skip
}
