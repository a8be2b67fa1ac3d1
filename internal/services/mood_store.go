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

const moodsCollection = "moods"

// MoodStore persists mood entries in MongoDB.
type MoodStore struct {
	db *mongo.Database
}

func NewMoodStore(db *mongo.Database) *MoodStore {
	return &MoodStore{db: db}
}

// EnsureMoodIndexes creates the (user_id, timestamp) index used for
// newest-first listing.
func (s *MoodStore) EnsureMoodIndexes(ctx context.Context) error {
	_, err := s.db.Collection(moodsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "timestamp", Value: -1},
		},
		Options: options.Index().SetName("idx_user_timestamp"),
	})
	return err
}

// InsertMood stores a mood entry. Duplicate submissions create duplicate
// rows by design; there is no idempotency key.
func (s *MoodStore) InsertMood(ctx context.Context, entry *models.MoodEntry) error {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = entry.CreatedAt
	}

	_, err := s.db.Collection(moodsCollection).InsertOne(ctx, entry)
	return err
}

// ListMoods returns the user's mood entries, newest first.
func (s *MoodStore) ListMoods(ctx context.Context, userID string, limit, skip int) ([]models.MoodEntry, int64, error) {
	return listEntries[models.MoodEntry](ctx, s.db.Collection(moodsCollection), userID, limit, skip)
}

// listEntries is the shared newest-first pagination query for the mood and
// activity collections.
func listEntries[T any](ctx context.Context, col *mongo.Collection, userID string, limit, skip int) ([]T, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	filter := bson.M{"user_id": userID}

	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	entries := []T{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
