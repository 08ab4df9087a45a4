// Package mongo implements the interaction and catalog stores on MongoDB,
// using the collection layout of the library application: "books" and
// "interactions" with camelCase fields.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

const (
	booksCollection        = "books"
	interactionsCollection = "interactions"

	interactionStore = "interaction"
	catalogStore     = "catalog"
)

type Repository struct {
	client       *mongo.Client
	books        *mongo.Collection
	interactions *mongo.Collection
}

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri, database string, timeout time.Duration) (*Repository, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewRepository(client, database), nil
}

func NewRepository(client *mongo.Client, database string) *Repository {
	db := client.Database(database)
	return &Repository{
		client:       client,
		books:        db.Collection(booksCollection),
		interactions: db.Collection(interactionsCollection),
	}
}

// EnsureIndexes creates the query indexes and the TTL index that expires
// interactions after the retention window.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.interactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}},
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(domain.RetentionWindow / time.Second)),
		},
	})
	if err != nil {
		return fmt.Errorf("create interaction indexes: %w", err)
	}
	_, err = r.books.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "popularityScore", Value: -1}}},
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create book indexes: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return domain.NewStoreError("mongo", "ping", err)
	}
	return nil
}

func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *Repository) String() string {
	return "mongo(" + r.books.Database().Name() + ")"
}
