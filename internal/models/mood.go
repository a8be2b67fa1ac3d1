package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MoodContext is the closed set of optional mood contexts.
type MoodContext string

const (
	MoodContextWork     MoodContext = "work"
	MoodContextPersonal MoodContext = "personal"
	MoodContextHealth   MoodContext = "health"
	MoodContextSocial   MoodContext = "social"
	MoodContextOther    MoodContext = "other"
)

func (c MoodContext) Valid() bool {
	switch c {
	case MoodContextWork, MoodContextPersonal, MoodContextHealth,
		MoodContextSocial, MoodContextOther:
		return true
	}
	return false
}

// MoodEntry records a mood score in [0,100]. Immutable once created.
type MoodEntry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Score      int                `bson:"score" json:"score"`
	Note       string             `bson:"note,omitempty" json:"note,omitempty"`
	Context    MoodContext        `bson:"context,omitempty" json:"context,omitempty"`
	Activities []string           `bson:"activities,omitempty" json:"activities,omitempty"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
