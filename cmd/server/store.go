package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/actuallystonmai/shelf-recommender/internal/config"
	"github.com/actuallystonmai/shelf-recommender/internal/repository/breaker"
	"github.com/actuallystonmai/shelf-recommender/internal/repository/mongo"
	"github.com/actuallystonmai/shelf-recommender/internal/repository/postgres"
	"github.com/actuallystonmai/shelf-recommender/internal/retention"
	"github.com/actuallystonmai/shelf-recommender/seeds"
)

// store is what either backend provides.
type store interface {
	breaker.InteractionBackend
	breaker.CatalogBackend
	retention.Store
	seeds.Store
	String() string
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		repo, err := mongo.Connect(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, cfg.Store.Timeout)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = repo.Close(context.Background())
			return nil, nil, err
		}
		closeFn := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Store.Timeout)
			defer cancel()
			if err := repo.Close(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("mongo disconnect failed")
			}
		}
		return repo, closeFn, nil

	case config.BackendPostgres:
		pool, err := openPool(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := migrate(ctx, pool, "migrations/create_tables.up.sql"); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("migrations applied successfully")
		return postgres.NewRepository(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func runMigrateDown(ctx context.Context, cfg *config.Config) error {
	if cfg.Store.Backend != config.BackendPostgres {
		return errors.New("migrate-down only applies to the postgres backend")
	}
	pool, err := openPool(ctx, cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer pool.Close()
	return migrate(ctx, pool, "migrations/create_tables.down.sql")
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func openPool(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Store.DBPoolSize) //nolint:gosec // bounded by config validation
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := waitForDB(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info().Msg("connected to PostgreSQL")
	return pool, nil
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func waitForDB(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	const attempts = 30
	for i := 0; i < attempts; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		logger.Info().Int("attempt", i+1).Int("of", attempts).Msg("waiting for database")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("database connection timeout after %ds", attempts)
}

func migrate(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration %s: %w", path, err)
	}
	return nil
}
