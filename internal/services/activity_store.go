package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/calmry/calmry-backend/internal/models"
)

const activitiesCollection = "activities"

// ActivityStore persists activity entries in MongoDB.
type ActivityStore struct {
	db *mongo.Database
}

func NewActivityStore(db *mongo.Database) *ActivityStore {
	return &ActivityStore{db: db}
}

// EnsureActivityIndexes creates the (user_id, timestamp) index used for
// newest-first listing.
func (s *ActivityStore) EnsureActivityIndexes(ctx context.Context) error {
	_, err := s.db.Collection(activitiesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "timestamp", Value: -1},
		},
		Options: options.Index().SetName("idx_user_timestamp"),
	})
	return err
}

// InsertActivity stores an activity entry. The timestamp is always
// server-assigned; any client-provided value was discarded upstream.
func (s *ActivityStore) InsertActivity(ctx context.Context, entry *models.ActivityEntry) error {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = entry.CreatedAt
	}

	_, err := s.db.Collection(activitiesCollection).InsertOne(ctx, entry)
	return err
}

// ListActivities returns the user's activity entries, newest first.
func (s *ActivityStore) ListActivities(ctx context.Context, userID string, limit, skip int) ([]models.ActivityEntry, int64, error) {
	return listEntries[models.ActivityEntry](ctx, s.db.Collection(activitiesCollection), userID, limit, skip)
}
