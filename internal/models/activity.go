package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityType is the closed set of loggable activity categories.
type ActivityType string

const (
	ActivityMeditation ActivityType = "meditation"
	ActivityExercise   ActivityType = "exercise"
	ActivityWalking    ActivityType = "walking"
	ActivityReading    ActivityType = "reading"
	ActivityJournaling ActivityType = "journaling"
	ActivityTherapy    ActivityType = "therapy"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityMeditation, ActivityExercise, ActivityWalking,
		ActivityReading, ActivityJournaling, ActivityTherapy:
		return true
	}
	return false
}

// ActivityEntry is immutable once created; no update or delete is exposed.
type ActivityEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	Type        ActivityType       `bson:"type" json:"type"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Duration    int                `bson:"duration,omitempty" json:"duration,omitempty"`
	Difficulty  int                `bson:"difficulty,omitempty" json:"difficulty,omitempty"`
	Feedback    string             `bson:"feedback,omitempty" json:"feedback,omitempty"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
