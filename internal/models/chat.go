package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatRole tags a turn as either the user's message or the assistant reply.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatSessionStatus is the lifecycle state of a chat session.
// Sessions are created "active"; the end-session operation moves them to
// "completed". "archived" is a valid stored state with no route setting it.
type ChatSessionStatus string

const (
	SessionActive    ChatSessionStatus = "active"
	SessionCompleted ChatSessionStatus = "completed"
	SessionArchived  ChatSessionStatus = "archived"
)

func (s ChatSessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionArchived:
		return true
	}
	return false
}

// Analysis is the structured classification returned by the completion API
// for a single user message.
type Analysis struct {
	EmotionalState      string   `bson:"emotional_state" json:"emotionalState"`
	Themes              []string `bson:"themes,omitempty" json:"themes"`
	RiskLevel           float64  `bson:"risk_level" json:"riskLevel"`
	RecommendedApproach string   `bson:"recommended_approach,omitempty" json:"recommendedApproach"`
	ProgressIndicators  []string `bson:"progress_indicators,omitempty" json:"progressIndicators"`
}

// ProgressSnapshot is the condensed analysis stored alongside each
// assistant turn: emotional state plus risk level only.
type ProgressSnapshot struct {
	EmotionalState string  `bson:"emotional_state,omitempty" json:"emotionalState,omitempty"`
	RiskLevel      float64 `bson:"risk_level" json:"riskLevel"`
}

// TurnMetadata is attached to assistant turns only.
type TurnMetadata struct {
	Analysis *Analysis         `bson:"analysis,omitempty" json:"analysis,omitempty"`
	Progress *ProgressSnapshot `bson:"progress,omitempty" json:"progress,omitempty"`
}

// ChatTurn is one message within a session. Turns are append-only and
// never edited after creation.
type ChatTurn struct {
	Role      ChatRole      `bson:"role" json:"role"`
	Content   string        `bson:"content" json:"content"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
	Metadata  *TurnMetadata `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// ChatSession is a per-conversation document holding an ordered list of
// turns. Turns grow only by append (a single $push per send, covering the
// user turn and the assistant turn together).
type ChatSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"sessionId"`
	UserID    string             `bson:"user_id" json:"userId"`
	StartTime time.Time          `bson:"start_time" json:"startTime"`
	Status    ChatSessionStatus  `bson:"status" json:"status"`
	Messages  []ChatTurn         `bson:"messages" json:"messages"`
}
