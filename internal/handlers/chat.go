package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/calmry/calmry-backend/internal/ai"
	"github.com/calmry/calmry-backend/internal/middleware"
	"github.com/calmry/calmry-backend/internal/models"
	"github.com/calmry/calmry-backend/internal/services"
)

const maxChatMessageLen = 4000

// ChatStore is the chat-persistence surface the handler depends on.
type ChatStore interface {
	CreateSession(ctx context.Context, userID string) (*models.ChatSession, error)
	GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error)
	AppendTurns(ctx context.Context, sessionID string, turns ...models.ChatTurn) error
	EndSession(ctx context.Context, sessionID string, status models.ChatSessionStatus) error
}

type ChatHandler struct {
	sessions  ChatStore
	users     UserStore
	completer ai.Completer
}

func NewChatHandler(sessions ChatStore, users UserStore, completer ai.Completer) *ChatHandler {
	return &ChatHandler{
		sessions:  sessions,
		users:     users,
		completer: completer,
	}
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

// CreateSession opens a fresh therapy chat session for the caller.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	// Re-check the account still exists before opening a session.
	if _, err := h.users.GetUserByID(r.Context(), user.ID); err != nil {
		if err == services.ErrNotFound {
			fail(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Msg("Chat session user lookup failed")
		fail(w, http.StatusInternalServerError, "Server Error")
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), user.ID.String())
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to create chat session")
		fail(w, http.StatusInternalServerError, "Failed to create chat session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"message":   "Chat session created",
		"sessionId": session.SessionID,
	})
}

// GetSession returns a full session document to its owner.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwnedSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"session": session,
	})
}

// GetHistory returns the ordered message list of an owned session.
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwnedSession(w, r)
	if !ok {
		return
	}
	messages := session.Messages
	if messages == nil {
		messages = []models.ChatTurn{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": messages,
	})
}

// SendMessage runs the two-stage model flow: analyze the user's message,
// generate a reply conditioned on the analysis, then append both turns in
// one write so a failure partway leaves the transcript unchanged.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwnedSession(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		fail(w, http.StatusBadRequest, "Message is required")
		return
	}
	if len(req.Message) > maxChatMessageLen {
		fail(w, http.StatusBadRequest, "Message is too long")
		return
	}

	memory := ai.DefaultMemory()

	analysis, err := ai.AnalyzeMessage(r.Context(), h.completer, req.Message, memory)
	if err != nil {
		var parseErr *ai.ParseError
		if errors.As(err, &parseErr) {
			log.Error().Err(parseErr).Str("raw", parseErr.Raw).Msg("Model returned unparseable analysis")
		} else {
			log.Error().Err(err).Msg("Message analysis failed")
		}
		fail(w, http.StatusInternalServerError, "Error processing message")
		return
	}

	reply, err := ai.GenerateReply(r.Context(), h.completer, req.Message, analysis, memory)
	if err != nil {
		log.Error().Err(err).Msg("Reply generation failed")
		fail(w, http.StatusInternalServerError, "Error processing message")
		return
	}

	now := time.Now().UTC()
	progress := &models.ProgressSnapshot{
		EmotionalState: analysis.EmotionalState,
		RiskLevel:      analysis.RiskLevel,
	}
	userTurn := models.ChatTurn{
		Role:      models.RoleUser,
		Content:   req.Message,
		Timestamp: now,
	}
	assistantTurn := models.ChatTurn{
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: now,
		Metadata: &models.TurnMetadata{
			Analysis: analysis,
			Progress: progress,
		},
	}

	if err := h.sessions.AppendTurns(r.Context(), session.SessionID, userTurn, assistantTurn); err != nil {
		if err == services.ErrNotFound {
			fail(w, http.StatusNotFound, "Chat session not found")
			return
		}
		log.Error().Err(err).Str("session_id", session.SessionID).Msg("Failed to append chat turns")
		fail(w, http.StatusInternalServerError, "Error processing message")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"response": reply,
		"analysis": analysis,
		"metadata": map[string]interface{}{
			"progress": progress,
		},
	})
}

// EndSession marks an active session completed. Completed and archived
// sessions stay readable.
func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadOwnedSession(w, r)
	if !ok {
		return
	}

	if err := h.sessions.EndSession(r.Context(), session.SessionID, models.SessionCompleted); err != nil {
		if err == services.ErrNotFound {
			fail(w, http.StatusConflict, "Session is not active")
			return
		}
		log.Error().Err(err).Str("session_id", session.SessionID).Msg("Failed to end chat session")
		fail(w, http.StatusInternalServerError, "Failed to end chat session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Chat session ended",
	})
}

// loadOwnedSession resolves the route's session and enforces ownership.
// On failure it writes the error response and returns ok=false.
func (h *ChatHandler) loadOwnedSession(w http.ResponseWriter, r *http.Request) (*models.ChatSession, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		fail(w, http.StatusBadRequest, "Session ID is required")
		return nil, false
	}

	session, err := h.sessions.GetSession(r.Context(), sessionID)
	if err == services.ErrNotFound {
		fail(w, http.StatusNotFound, "Chat session not found")
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load chat session")
		fail(w, http.StatusInternalServerError, "Server Error")
		return nil, false
	}

	if session.UserID != user.ID.String() {
		fail(w, http.StatusForbidden, "You do not have access to this chat session")
		return nil, false
	}
	return session, true
}
