package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

// Query returns userID's interactions at or after since.
func (r *Repository) Query(ctx context.Context, userID string, since time.Time) ([]domain.Interaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, event_type, occurred_at,
			COALESCE(book_id, ''), COALESCE(book_title, ''), COALESCE(book_author, ''),
			COALESCE(book_categories, '{}'), COALESCE(book_tags, '{}'),
			COALESCE(book_publisher, ''), COALESCE(book_format, ''), COALESCE(book_year, 0),
			COALESCE(search_query, ''), COALESCE(search_filters, '{}'::jsonb)
		FROM interactions
		WHERE user_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at DESC`,
		userID, since,
	)
	if err != nil {
		return nil, domain.NewStoreError(interactionStore, "query", fmt.Errorf("user %s: %w", userID, err))
	}
	defer rows.Close()

	items := []domain.Interaction{}
	for rows.Next() {
		var (
			ev      domain.Interaction
			evType  string
			snap    domain.BookSnapshot
			query   string
			filters map[string]string
		)
		err := rows.Scan(&ev.UserID, &evType, &ev.Timestamp,
			&snap.BookID, &snap.Title, &snap.Author, &snap.Categories, &snap.Tags,
			&snap.Publisher, &snap.Format, &snap.Year,
			&query, &filters)
		if err != nil {
			return nil, domain.NewStoreError(interactionStore, "scan", fmt.Errorf("scan interaction: %w", err))
		}
		ev.Type = domain.EventType(evType)
		if ev.Type == domain.EventSearch {
			ev.Search = &domain.SearchPayload{Query: query, Filters: filters}
		} else {
			ev.Book = &snap
		}
		items = append(items, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(interactionStore, "iterate", fmt.Errorf("iterate interactions: %w", err))
	}
	return items, nil
}

// Append stores a validated interaction.
func (r *Repository) Append(ctx context.Context, ev domain.Interaction) error {
	var (
		bookID, title, author, publisher, format *string
		categories, tags                         []string
		year                                     *int
		query                                    *string
		filters                                  map[string]string
	)
	if b := ev.Book; b != nil {
		bookID, title, author, publisher, format = &b.BookID, &b.Title, &b.Author, &b.Publisher, &b.Format
		categories, tags, year = nonNil(b.Categories), nonNil(b.Tags), &b.Year
	}
	if s := ev.Search; s != nil {
		query, filters = &s.Query, s.Filters
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO interactions (user_id, event_type, occurred_at,
			book_id, book_title, book_author, book_categories, book_tags, book_publisher, book_format, book_year,
			search_query, search_filters)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		ev.UserID, string(ev.Type), ev.Timestamp,
		bookID, title, author, categories, tags, publisher, format, year,
		query, filters,
	)
	if err != nil {
		return domain.NewStoreError(interactionStore, "append", fmt.Errorf("insert interaction for user %s: %w", ev.UserID, err))
	}
	return nil
}

// ActiveUserIDs pages through users with at least one interaction since the
// given time, most recently active first.
func (r *Repository) ActiveUserIDs(ctx context.Context, since time.Time, page, limit int) ([]string, error) {
	offset := (page - 1) * limit
	rows, err := r.pool.Query(ctx,
		`SELECT user_id
		FROM interactions
		WHERE occurred_at >= $1
		GROUP BY user_id
		ORDER BY max(occurred_at) DESC, user_id
		LIMIT $2 OFFSET $3`,
		since, limit, offset,
	)
	if err != nil {
		return nil, domain.NewStoreError(interactionStore, "active users", fmt.Errorf("page %d: %w", page, err))
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.NewStoreError(interactionStore, "scan", fmt.Errorf("scan user id: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(interactionStore, "iterate", fmt.Errorf("iterate user ids: %w", err))
	}
	return ids, nil
}

func (r *Repository) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM interactions WHERE occurred_at >= $1`, since,
	).Scan(&total)
	if err != nil {
		return 0, domain.NewStoreError(interactionStore, "count active users", err)
	}
	return total, nil
}

// PurgeBefore deletes interactions older than cutoff and reports how many went.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM interactions WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, domain.NewStoreError(interactionStore, "purge", err)
	}
	return tag.RowsAffected(), nil
}
