// Package engine ranks catalog books for a reader from their recent
// interaction history. A request runs three stages: BuildProfile turns the
// history into weighted top lists, the Scorer rates candidate books against
// that profile, and Select orders, de-clusters and trims the result. When no
// personalized signal survives, the engine falls back to the most popular
// available books and says so in the result.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
	"github.com/actuallystonmai/shelf-recommender/internal/validation"
)

// InteractionStore returns a user's interactions newer than since, in any order.
type InteractionStore interface {
	Query(ctx context.Context, userID string, since time.Time) ([]domain.Interaction, error)
}

// CatalogStore looks up available books.
type CatalogStore interface {
	FindAvailable(ctx context.Context, criteria domain.MatchCriteria, excludeIDs []string, poolSize int) ([]domain.Book, error)
	TopPopular(ctx context.Context, limit int, excludeIDs []string) ([]domain.Book, error)
}

type Config struct {
	DefaultLimit      int            `koanf:"default_limit" validate:"min=1,max=50"`
	MaxLimit          int            `koanf:"max_limit" validate:"min=1,max=50"`
	HistoryLimit      int            `koanf:"history_limit" validate:"min=1"`
	CandidatePoolSize int            `koanf:"candidate_pool_size" validate:"min=1,max=500"`
	MinBackfill       int            `koanf:"min_backfill" validate:"min=0"`
	Scoring           ScoringWeights `koanf:"scoring"`
}

func DefaultConfig() Config {
	return Config{
		DefaultLimit:      10,
		MaxLimit:          50,
		HistoryLimit:      200,
		CandidatePoolSize: 40,
		MinBackfill:       20,
		Scoring:           DefaultWeights(),
	}
}

type Request struct {
	UserID     string                       `json:"user_id" validate:"required,max=128"`
	Limit      int                          `json:"limit" validate:"min=0,max=50"`
	Context    domain.RecommendationContext `json:"context" validate:"omitempty,oneof=browse search library"`
	ExcludeIDs []string                     `json:"exclude_ids" validate:"max=500,dive,required"`
}

type Engine struct {
	interactions InteractionStore
	catalog      CatalogStore
	scorer       *Scorer
	cfg          Config
	now          func() time.Time
	logger       zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(interactions InteractionStore, catalog CatalogStore, cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		interactions: interactions,
		catalog:      catalog,
		scorer:       NewScorer(cfg.Scoring),
		cfg:          cfg,
		now:          time.Now,
		logger:       logger.With().Str("component", "engine").Logger(),
	}
}

// SetClock replaces the time source. Tests use it to pin "now".
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// GetRecommendations is the single entry point. Store errors are returned
// unchanged; an empty catalog yields an empty, non-error result.
func (e *Engine) GetRecommendations(ctx context.Context, req Request) (*domain.RecommendationResult, error) {
	req, err := e.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	now := e.now()
	exclude := excludeSet(req.ExcludeIDs)
	logger := e.logger.With().
		Str("user_id", req.UserID).
		Str("context", string(req.Context)).
		Int("limit", req.Limit).
		Logger()

	// History and the popularity backfill are independent reads.
	var history []domain.Interaction
	var popular []domain.Book
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = e.interactions.Query(gctx, req.UserID, now.Add(-domain.RetentionWindow))
		return err
	})
	g.Go(func() error {
		var err error
		popular, err = e.catalog.TopPopular(gctx, e.backfillSize(req.Limit), req.ExcludeIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profile, err := BuildProfile(req.UserID, history, now, e.cfg)
	if err != nil {
		return nil, err
	}

	var matched []domain.Book
	if profile.HasSignal() {
		matched, err = e.catalog.FindAvailable(ctx, profile.Criteria(), req.ExcludeIDs, e.cfg.CandidatePoolSize)
		if err != nil {
			return nil, err
		}
	}

	candidates := e.scorer.ScoreAll(profile, mergePool(matched, popular), exclude)
	recs := Select(candidates, req.Limit)

	result := &domain.RecommendationResult{
		Recommendations: recs,
		Profile:         profile.UserProfile,
	}
	if !profile.HasSignal() || !anyPersonalized(candidates) || len(recs) == 0 {
		result.Recommendations = popularFallback(popular, exclude, req.Limit, e.cfg.Scoring)
		result.IsFallback = true
	}

	logger.Debug().
		Int("history", len(history)).
		Int("candidates", len(candidates)).
		Int("returned", len(result.Recommendations)).
		Bool("fallback", result.IsFallback).
		Msg("recommendation complete")

	return result, nil
}

func (e *Engine) prepareRequest(req Request) (Request, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if verr := validation.ValidateStruct(req); verr != nil {
		return req, verr.InputError()
	}
	if req.Limit > e.cfg.MaxLimit {
		return req, &domain.InputError{Field: "limit", Reason: "exceeds maximum"}
	}
	if req.Limit == 0 {
		req.Limit = e.cfg.DefaultLimit
	}
	if req.Context == "" {
		req.Context = domain.ContextBrowse
	}
	return req, nil
}

// backfillSize is how many popular books are pulled alongside the matches so
// the diversity pass and the fallback have something to work with.
func (e *Engine) backfillSize(limit int) int {
	return max(2*limit, e.cfg.MinBackfill)
}

func excludeSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// mergePool unions matched and popular books, keeping the first copy of each id.
func mergePool(matched, popular []domain.Book) []domain.Book {
	seen := make(map[string]struct{}, len(matched)+len(popular))
	pool := make([]domain.Book, 0, len(matched)+len(popular))
	for _, list := range [][]domain.Book{matched, popular} {
		for _, b := range list {
			if _, dup := seen[b.ID]; dup {
				continue
			}
			seen[b.ID] = struct{}{}
			pool = append(pool, b)
		}
	}
	return pool
}

func anyPersonalized(c []scored) bool {
	for _, s := range c {
		if s.personalized {
			return true
		}
	}
	return false
}
