package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/actuallystonmai/shelf-recommender/internal/cache"
	"github.com/actuallystonmai/shelf-recommender/internal/config"
	"github.com/actuallystonmai/shelf-recommender/internal/engine"
	"github.com/actuallystonmai/shelf-recommender/internal/handler"
	"github.com/actuallystonmai/shelf-recommender/internal/logging"
	"github.com/actuallystonmai/shelf-recommender/internal/repository/breaker"
	"github.com/actuallystonmai/shelf-recommender/internal/retention"
	"github.com/actuallystonmai/shelf-recommender/internal/router"
	"github.com/actuallystonmai/shelf-recommender/internal/service"
	"github.com/actuallystonmai/shelf-recommender/internal/supervisor"
	"github.com/actuallystonmai/shelf-recommender/seeds"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Logging)
	logger := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// migrate-down drops the PostgreSQL schema and exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := runMigrateDown(ctx, cfg); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate down")
		}
		logger.Info().Msg("migrations dropped")
		return
	}

	// ------------ Stores ---------------
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open store")
	}
	defer closeStore()
	logger.Info().Str("store", st.String()).Msg("store ready")

	if cfg.Store.Seed {
		if err := seeds.Setup(ctx, st, time.Now(), logger); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed store")
		}
	}

	interactions := breaker.NewInteractions(st, breaker.New("interactions", cfg.Breaker, logger))
	catalog := breaker.NewCatalog(st, breaker.New("catalog", cfg.Breaker, logger))

	// ------------ Redis ---------------
	redisClient, err := cache.NewClient(ctx, cfg.Redis.URL, cfg.Redis.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("connected to Redis")
	resultCache := cache.NewCache(redisClient, cfg.Redis.CacheTTL)

	// ------------ Engine + HTTP ---------------
	eng := engine.NewEngine(interactions, catalog, cfg.Engine, logger)
	svc := service.NewService(eng, interactions, catalog, resultCache, cfg.Engine.DefaultLimit)
	h := handler.NewHandler(svc)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.Setup(h, router.Options{
			RequestTimeout:  cfg.Server.RequestTimeout,
			CORSOrigins:     cfg.Server.CORSOrigins,
			RateLimit:       cfg.Server.RateLimit,
			RateLimitWindow: cfg.Server.RateLimitWindow,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ---------------- Supervisor --------------------
	tree := supervisor.NewTree(logger, supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddAPIService(supervisor.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	if cfg.Retention.Enabled {
		tree.AddMaintenanceService(retention.NewPurger(st, cfg.Retention.Interval, logger))
	}

	logger.Info().Str("addr", cfg.Addr()).Msg("server running")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("supervisor stopped")
	}
	logger.Info().Msg("shutdown complete")
}
