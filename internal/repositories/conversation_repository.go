package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/messenger/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository stores two-party conversation summaries
type ConversationRepository interface {
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	FindByMembers(ctx context.Context, a, b string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	// ApplyMessage records a new message on the summary with independent field updates
	ApplyMessage(ctx context.Context, id, senderID, receiverID, text string, at time.Time) error
	MarkRead(ctx context.Context, id, userID string) error
	ListForMember(ctx context.Context, userID string) ([]models.Conversation, error)
}

// MongoConversationRepository implements ConversationRepository for MongoDB
type MongoConversationRepository struct {
	collection *mongo.Collection
}

func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{collection: db.Collection("conversations")}
}

// EnsureIndexes creates the membership index used by lookups and chat lists
func (r *MongoConversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "members", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	return err
}

func (r *MongoConversationRepository) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByMembers matches a conversation whose member set is exactly {a, b}, in either order
func (r *MongoConversationRepository) FindByMembers(ctx context.Context, a, b string) (*models.Conversation, error) {
	return r.findOne(ctx, bson.M{"members": bson.M{"$all": bson.A{a, b}, "$size": 2}})
}

func (r *MongoConversationRepository) findOne(ctx context.Context, filter bson.M) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.collection.FindOne(ctx, filter).Decode(&conv); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *MongoConversationRepository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := r.collection.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func (r *MongoConversationRepository) ApplyMessage(ctx context.Context, id, senderID, receiverID, text string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"last_message":         text,
		"updated_at":           at,
		"unread." + receiverID: true,
		"unread." + senderID:   false,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoConversationRepository) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"unread." + userID: false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForMember returns the member's conversations, most recently updated first
func (r *MongoConversationRepository) ListForMember(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs := []models.Conversation{}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"members": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}
