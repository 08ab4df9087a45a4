package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

var byPopularity = bson.D{{Key: "popularityScore", Value: -1}, {Key: "_id", Value: 1}}

func (r *Repository) FindAvailable(ctx context.Context, criteria domain.MatchCriteria, excludeIDs []string, poolSize int) ([]domain.Book, error) {
	if criteria.Empty() || poolSize <= 0 {
		return []domain.Book{}, nil
	}

	var or bson.A
	if len(criteria.Categories) > 0 {
		or = append(or, bson.D{{Key: "categories", Value: bson.D{{Key: "$in", Value: exactFold(criteria.Categories)}}}})
	}
	if len(criteria.Tags) > 0 {
		or = append(or, bson.D{{Key: "tags", Value: bson.D{{Key: "$in", Value: exactFold(criteria.Tags)}}}})
	}
	if len(criteria.Authors) > 0 {
		or = append(or, bson.D{{Key: "author", Value: bson.D{{Key: "$in", Value: exactFold(criteria.Authors)}}}})
	}

	filter := availableFilter(excludeIDs)
	filter = append(filter, bson.E{Key: "$or", Value: or})
	return r.findBooks(ctx, "find available", filter, poolSize)
}

func (r *Repository) TopPopular(ctx context.Context, limit int, excludeIDs []string) ([]domain.Book, error) {
	if limit <= 0 {
		return []domain.Book{}, nil
	}
	return r.findBooks(ctx, "top popular", availableFilter(excludeIDs), limit)
}

// GetBook looks a book up by hex id or slug.
func (r *Repository) GetBook(ctx context.Context, idOrSlug string) (*domain.Book, error) {
	filter := bson.D{{Key: "slug", Value: idOrSlug}}
	if oid, err := primitive.ObjectIDFromHex(idOrSlug); err == nil {
		filter = bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "_id", Value: oid}},
			bson.D{{Key: "slug", Value: idOrSlug}},
		}}}
	}

	var doc bookDocument
	if err := r.books.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrBookNotFound
		}
		return nil, domain.NewStoreError(catalogStore, "get book", err)
	}
	b := doc.toDomain()
	return &b, nil
}

func (r *Repository) findBooks(ctx context.Context, op string, filter bson.D, limit int) ([]domain.Book, error) {
	opts := options.Find().SetSort(byPopularity).SetLimit(int64(limit))
	cursor, err := r.books.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.NewStoreError(catalogStore, op, err)
	}
	var docs []bookDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.NewStoreError(catalogStore, op, err)
	}

	books := make([]domain.Book, 0, len(docs))
	for _, d := range docs {
		books = append(books, d.toDomain())
	}
	return books, nil
}

// availableFilter matches available books whose id or slug is not excluded.
func availableFilter(excludeIDs []string) bson.D {
	filter := bson.D{{Key: "status", Value: string(domain.StatusAvailable)}}
	if len(excludeIDs) == 0 {
		return filter
	}
	oids := make([]primitive.ObjectID, 0, len(excludeIDs))
	for _, id := range excludeIDs {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return append(filter,
		bson.E{Key: "_id", Value: bson.D{{Key: "$nin", Value: oids}}},
		bson.E{Key: "slug", Value: bson.D{{Key: "$nin", Value: excludeIDs}}},
	)
}

// exactFold builds anchored case-insensitive patterns for an $in match.
func exactFold(values []string) bson.A {
	out := make(bson.A, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(v) + "$", Options: "i"})
	}
	return out
}

func (r *Repository) CountBooks(ctx context.Context) (int, error) {
	n, err := r.books.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, domain.NewStoreError(catalogStore, "count books", err)
	}
	return int(n), nil
}

// InsertBooks bulk-loads catalog records. Used for seeding.
func (r *Repository) InsertBooks(ctx context.Context, books []domain.Book) error {
	if len(books) == 0 {
		return nil
	}
	docs := make([]any, 0, len(books))
	for _, b := range books {
		doc, err := fromBook(b)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	if _, err := r.books.InsertMany(ctx, docs); err != nil {
		return domain.NewStoreError(catalogStore, "insert books", err)
	}
	return nil
}
