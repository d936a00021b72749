package mongo

import (
	"context"
	"fmt"
	"time"

	"git.platform.alem.school/amibragim/brew-events/internal/shared/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Storage wraps the MongoDB client that holds customer device tokens.
type Storage struct {
	client   *mongo.Client
	database *mongo.Database
}

// New connects to MongoDB and verifies the primary is reachable.
func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetMaxPoolSize(20).
		SetReadPreference(readpref.SecondaryPreferred())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Storage{
		client:   client,
		database: client.Database(cfg.Mongo.Database),
	}, nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.PrimaryPreferred())
}

func (s *Storage) Database() *mongo.Database {
	return s.database
}

// EnsureIndexes creates the lookup index the token store relies on.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	idx := mongo.IndexModel{Keys: bson.D{{Key: "customer_id", Value: 1}}}
	if _, err := s.database.Collection(pushTokensCollection).Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("failed to create push_tokens indexes: %w", err)
	}
	return nil
}
