package breaker

import (
	"context"
	"time"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

type InteractionBackend interface {
	Query(ctx context.Context, userID string, since time.Time) ([]domain.Interaction, error)
	Append(ctx context.Context, ev domain.Interaction) error
	ActiveUserIDs(ctx context.Context, since time.Time, page, limit int) ([]string, error)
	CountActiveUsers(ctx context.Context, since time.Time) (int, error)
}

type CatalogBackend interface {
	FindAvailable(ctx context.Context, criteria domain.MatchCriteria, excludeIDs []string, poolSize int) ([]domain.Book, error)
	TopPopular(ctx context.Context, limit int, excludeIDs []string) ([]domain.Book, error)
	GetBook(ctx context.Context, idOrSlug string) (*domain.Book, error)
}

// Interactions guards an InteractionBackend.
type Interactions struct {
	next InteractionBackend
	b    *Breaker
}

func NewInteractions(next InteractionBackend, b *Breaker) *Interactions {
	return &Interactions{next: next, b: b}
}

func (s *Interactions) Query(ctx context.Context, userID string, since time.Time) ([]domain.Interaction, error) {
	return execute(s.b, "query", func() ([]domain.Interaction, error) {
		return s.next.Query(ctx, userID, since)
	})
}

func (s *Interactions) Append(ctx context.Context, ev domain.Interaction) error {
	_, err := execute(s.b, "append", func() (struct{}, error) {
		return struct{}{}, s.next.Append(ctx, ev)
	})
	return err
}

func (s *Interactions) ActiveUserIDs(ctx context.Context, since time.Time, page, limit int) ([]string, error) {
	return execute(s.b, "active users", func() ([]string, error) {
		return s.next.ActiveUserIDs(ctx, since, page, limit)
	})
}

func (s *Interactions) CountActiveUsers(ctx context.Context, since time.Time) (int, error) {
	return execute(s.b, "count active users", func() (int, error) {
		return s.next.CountActiveUsers(ctx, since)
	})
}

// Catalog guards a CatalogBackend.
type Catalog struct {
	next CatalogBackend
	b    *Breaker
}

func NewCatalog(next CatalogBackend, b *Breaker) *Catalog {
	return &Catalog{next: next, b: b}
}

func (s *Catalog) FindAvailable(ctx context.Context, criteria domain.MatchCriteria, excludeIDs []string, poolSize int) ([]domain.Book, error) {
	return execute(s.b, "find available", func() ([]domain.Book, error) {
		return s.next.FindAvailable(ctx, criteria, excludeIDs, poolSize)
	})
}

func (s *Catalog) TopPopular(ctx context.Context, limit int, excludeIDs []string) ([]domain.Book, error) {
	return execute(s.b, "top popular", func() ([]domain.Book, error) {
		return s.next.TopPopular(ctx, limit, excludeIDs)
	})
}

func (s *Catalog) GetBook(ctx context.Context, idOrSlug string) (*domain.Book, error) {
	return execute(s.b, "get book", func() (*domain.Book, error) {
		return s.next.GetBook(ctx, idOrSlug)
	})
}
