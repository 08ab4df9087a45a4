// Package postgres implements the interaction and catalog stores on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

const (
	interactionStore = "interaction"
	catalogStore     = "catalog"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return domain.NewStoreError("postgres", "ping", err)
	}
	return nil
}

func (r *Repository) String() string {
	return fmt.Sprintf("postgres(%s)", r.pool.Config().ConnConfig.Database)
}
