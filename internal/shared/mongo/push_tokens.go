package mongo

import (
	"context"
	"fmt"
	"time"

	"git.platform.alem.school/amibragim/brew-events/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const pushTokensCollection = "push_tokens"

// PushToken is one registered device. Registration happens in the mobile API; this service only reads.
type PushToken struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	CustomerID int64              `bson:"customer_id"`
	Token      string             `bson:"token"`
	Platform   string             `bson:"platform"`
	CreatedAt  time.Time          `bson:"created_at"`
}

// PushTokenRepository reads device tokens by customer.
type PushTokenRepository struct {
	collection *mongo.Collection
}

// NewPushTokenRepository constructs a repository over the push_tokens collection.
func NewPushTokenRepository(db *mongo.Database) ports.TokenStore {
	return &PushTokenRepository{
		collection: db.Collection(pushTokensCollection),
	}
}

// TokensForCustomer returns distinct non-empty tokens of a customer, newest first.
func (r *PushTokenRepository) TokensForCustomer(ctx context.Context, customerID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"customer_id": customerID, "token": bson.M{"$ne": ""}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"token": 1}).
		SetLimit(20)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find push tokens: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []PushToken
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode push tokens: %w", err)
	}

	return uniqueTokens(docs), nil
}

func uniqueTokens(docs []PushToken) []string {
	seen := make(map[string]struct{}, len(docs))
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Token == "" {
			continue
		}
		if _, ok := seen[d.Token]; ok {
			continue
		}
		seen[d.Token] = struct{}{}
		out = append(out, d.Token)
	}
	return out
}
