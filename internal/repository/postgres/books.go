package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

const bookColumns = `b.id, b.slug, COALESCE(b.isbn, ''), b.title, b.author, b.publisher, b.year,
	b.format, b.categories, b.tags, b.status, b.popularity_score`

// FindAvailable returns available books sharing a category, tag or author
// with criteria, most popular first. Matching ignores case.
func (r *Repository) FindAvailable(ctx context.Context, criteria domain.MatchCriteria, excludeIDs []string, poolSize int) ([]domain.Book, error) {
	if criteria.Empty() || poolSize <= 0 {
		return []domain.Book{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+`
		FROM books b
		WHERE b.status = 'available'
			AND NOT (b.id = ANY($4))
			AND (
				EXISTS (SELECT 1 FROM unnest(b.categories) c WHERE lower(c) = ANY($1))
				OR EXISTS (SELECT 1 FROM unnest(b.tags) t WHERE lower(t) = ANY($2))
				OR lower(b.author) = ANY($3)
			)
		ORDER BY b.popularity_score DESC, b.id
		LIMIT $5`,
		lowered(criteria.Categories), lowered(criteria.Tags), lowered(criteria.Authors), nonNil(excludeIDs), poolSize,
	)
	if err != nil {
		return nil, domain.NewStoreError(catalogStore, "find available", err)
	}
	return collectBooks(rows)
}

// TopPopular returns the most popular available books.
func (r *Repository) TopPopular(ctx context.Context, limit int, excludeIDs []string) ([]domain.Book, error) {
	if limit <= 0 {
		return []domain.Book{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+`
		FROM books b
		WHERE b.status = 'available' AND NOT (b.id = ANY($1))
		ORDER BY b.popularity_score DESC, b.id
		LIMIT $2`,
		nonNil(excludeIDs), limit,
	)
	if err != nil {
		return nil, domain.NewStoreError(catalogStore, "top popular", err)
	}
	return collectBooks(rows)
}

// GetBook looks a book up by id or slug.
func (r *Repository) GetBook(ctx context.Context, idOrSlug string) (*domain.Book, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookColumns+` FROM books b WHERE b.id = $1 OR b.slug = $1 LIMIT 1`,
		idOrSlug,
	)
	if err != nil {
		return nil, domain.NewStoreError(catalogStore, "get book", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, domain.ErrBookNotFound
	}
	return &books[0], nil
}

func collectBooks(rows pgx.Rows) ([]domain.Book, error) {
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		var b domain.Book
		var status string
		err := rows.Scan(&b.ID, &b.Slug, &b.ISBN, &b.Title, &b.Author, &b.Publisher, &b.Year,
			&b.Format, &b.Categories, &b.Tags, &status, &b.PopularityScore)
		if err != nil {
			return nil, domain.NewStoreError(catalogStore, "scan", fmt.Errorf("scan book: %w", err))
		}
		b.Status = domain.BookStatus(status)
		b.Normalize()
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return books, nil
		}
		return nil, domain.NewStoreError(catalogStore, "iterate", fmt.Errorf("iterate books: %w", err))
	}
	return books, nil
}

func lowered(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// nonNil keeps pgx from encoding a nil slice as NULL, which would make
// "id = ANY(NULL)" swallow every row.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (r *Repository) CountBooks(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, domain.NewStoreError(catalogStore, "count books", err)
	}
	return n, nil
}

// InsertBooks bulk-loads catalog records, skipping ids that already exist.
// Used for seeding.
func (r *Repository) InsertBooks(ctx context.Context, books []domain.Book) error {
	batch := &pgx.Batch{}
	for _, b := range books {
		b.Normalize()
		batch.Queue(
			`INSERT INTO books (id, slug, isbn, title, author, publisher, year, format, categories, tags, status, popularity_score)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING`,
			b.ID, b.Slug, b.ISBN, b.Title, b.Author, b.Publisher, b.Year, b.Format,
			b.Categories, b.Tags, string(b.Status), b.PopularityScore,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return domain.NewStoreError(catalogStore, "insert books", fmt.Errorf("insert %d books: %w", len(books), err))
	}
	return nil
}
