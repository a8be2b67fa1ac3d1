package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/calmry/calmry-backend/internal/models"
)

const chatSessionsCollection = "chat_sessions"

// ChatStore persists chat sessions in MongoDB, one document per session
// with an embedded ordered turn list.
type ChatStore struct {
	db *mongo.Database
}

func NewChatStore(db *mongo.Database) *ChatStore {
	return &ChatStore{db: db}
}

// EnsureChatIndexes configures indexes for the chat_sessions collection.
// Called on startup from main after Mongo has connected.
func (s *ChatStore) EnsureChatIndexes(ctx context.Context) error {
	col := s.db.Collection(chatSessionsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetName("idx_session_id").SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "start_time", Value: -1},
			},
			Options: options.Index().SetName("idx_user_start_time"),
		},
	}

	for _, m := range indexes {
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// CreateSession stores a new active session with an empty turn list and a
// freshly generated public identifier.
func (s *ChatStore) CreateSession(ctx context.Context, userID string) (*models.ChatSession, error) {
	session := &models.ChatSession{
		SessionID: uuid.NewString(),
		UserID:    userID,
		StartTime: time.Now().UTC(),
		Status:    models.SessionActive,
		Messages:  []models.ChatTurn{},
	}

	if _, err := s.db.Collection(chatSessionsCollection).InsertOne(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession loads a session by its public identifier.
func (s *ChatStore) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.db.Collection(chatSessionsCollection).
		FindOne(ctx, bson.M{"session_id": sessionID}).
		Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// AppendTurns appends turns to a session in a single atomic update.
// Both turns of a send (user + assistant) go through one $push so two
// concurrent sends interleave without losing either pair.
func (s *ChatStore) AppendTurns(ctx context.Context, sessionID string, turns ...models.ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}

	res, err := s.db.Collection(chatSessionsCollection).UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$push": bson.M{"messages": bson.M{"$each": turns}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EndSession transitions an active session to the given terminal status.
func (s *ChatStore) EndSession(ctx context.Context, sessionID string, status models.ChatSessionStatus) error {
	res, err := s.db.Collection(chatSessionsCollection).UpdateOne(ctx,
		bson.M{"session_id": sessionID, "status": models.SessionActive},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
