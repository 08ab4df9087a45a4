package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

func (r *Repository) Query(ctx context.Context, userID string, since time.Time) ([]domain.Interaction, error) {
	filter := bson.D{
		{Key: "userId", Value: userID},
		{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: since.UTC()}}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.interactions.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.NewStoreError(interactionStore, "query", err)
	}
	var docs []interactionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.NewStoreError(interactionStore, "query", err)
	}

	items := make([]domain.Interaction, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toDomain())
	}
	return items, nil
}

func (r *Repository) Append(ctx context.Context, ev domain.Interaction) error {
	if _, err := r.interactions.InsertOne(ctx, fromInteraction(ev)); err != nil {
		return domain.NewStoreError(interactionStore, "append", err)
	}
	return nil
}

func (r *Repository) ActiveUserIDs(ctx context.Context, since time.Time, page, limit int) ([]string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: since.UTC()}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$userId"},
			{Key: "last", Value: bson.D{{Key: "$max", Value: "$timestamp"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "last", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: int64((page - 1) * limit)}},
		{{Key: "$limit", Value: int64(limit)}},
	}
	cursor, err := r.interactions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.NewStoreError(interactionStore, "active users", err)
	}
	var rows []struct {
		UserID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, domain.NewStoreError(interactionStore, "active users", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.UserID)
	}
	return ids, nil
}

func (r *Repository) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	filter := bson.D{{Key: "timestamp", Value: bson.D{{Key: "$gte", Value: since.UTC()}}}}
	users, err := r.interactions.Distinct(ctx, "userId", filter)
	if err != nil {
		return 0, domain.NewStoreError(interactionStore, "count active users", err)
	}
	return len(users), nil
}

// PurgeBefore deletes expired interactions. The TTL index does the same on
// its own schedule; this makes the cutoff exact.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.interactions.DeleteMany(ctx, bson.D{{Key: "timestamp", Value: bson.D{{Key: "$lt", Value: cutoff.UTC()}}}})
	if err != nil {
		return 0, domain.NewStoreError(interactionStore, "purge", err)
	}
	return res.DeletedCount, nil
}
