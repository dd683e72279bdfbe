package repositories_mongo

import (
	"context"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMessageRepository is the Mongo-backed conversation log. Each message
// is one document; ordering is by insertion time (created_at, then id).
type MongoMessageRepository struct {
	collection *mongo.Collection
	chatID     string
}

func NewMongoMessageRepository(ctx context.Context, collection *mongo.Collection) (*MongoMessageRepository, error) {
	repo := &MongoMessageRepository{collection: collection}

	// Reuse the chat id of the most recent message, if any.
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var last entities.Message
	err := collection.FindOne(ctx, bson.M{}, opts).Decode(&last)
	switch {
	case err == mongo.ErrNoDocuments:
		repo.chatID = "chat_" + uuid.New().String()
	case err != nil:
		return nil, errors.InternalErrorf("failed to read message log: %v", err)
	default:
		repo.chatID = last.ChatID
	}

	return repo, nil
}

func (r *MongoMessageRepository) Append(ctx context.Context, msg *entities.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.ChatID == "" {
		msg.ChatID = r.chatID
	}
	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		return errors.InternalErrorf("failed to append message: %v", err)
	}
	return nil
}

func (r *MongoMessageRepository) Load(ctx context.Context) ([]entities.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"chat_id": r.chatID}, opts)
	if err != nil {
		return nil, errors.InternalErrorf("failed to load messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []entities.Message
	for cursor.Next(ctx) {
		var msg entities.Message
		if err := cursor.Decode(&msg); err != nil {
			return nil, errors.InternalErrorf("failed to decode message: %v", err)
		}
		messages = append(messages, msg)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.InternalErrorf("failed to load messages: %v", err)
	}

	return messages, nil
}

func (r *MongoMessageRepository) Clear(ctx context.Context) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"chat_id": r.chatID}); err != nil {
		return errors.InternalErrorf("failed to clear messages: %v", err)
	}
	r.chatID = "chat_" + uuid.New().String()
	return nil
}

func (r *MongoMessageRepository) ChatID() string {
	return r.chatID
}

var _ interfaces.MessageRepository = (*MongoMessageRepository)(nil)
