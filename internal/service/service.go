package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/actuallystonmai/shelf-recommender/internal/cache"
	"github.com/actuallystonmai/shelf-recommender/internal/domain"
	"github.com/actuallystonmai/shelf-recommender/internal/engine"
	"github.com/actuallystonmai/shelf-recommender/internal/logging"
	"github.com/actuallystonmai/shelf-recommender/internal/metrics"
	"github.com/actuallystonmai/shelf-recommender/internal/validation"
)

const (
	batchConcurrency = 10
	batchRecLimit    = 10
)

type Recommender interface {
	GetRecommendations(ctx context.Context, req engine.Request) (*domain.RecommendationResult, error)
}

type InteractionRepository interface {
	Append(ctx context.Context, ev domain.Interaction) error
	ActiveUserIDs(ctx context.Context, since time.Time, page, limit int) ([]string, error)
	CountActiveUsers(ctx context.Context, since time.Time) (int, error)
}

type BookLookup interface {
	GetBook(ctx context.Context, idOrSlug string) (*domain.Book, error)
}

type ResultCache interface {
	Get(ctx context.Context, key cache.Key) (*domain.RecommendationResult, bool, error)
	Set(ctx context.Context, key cache.Key, res *domain.RecommendationResult) error
	ClearUserCache(ctx context.Context, userID string) error
}

type Service struct {
	recommender  Recommender
	interactions InteractionRepository
	books        BookLookup
	cache        ResultCache
	defaultLimit int
	now          func() time.Time
}

func NewService(rec Recommender, interactions InteractionRepository, books BookLookup, c ResultCache, defaultLimit int) *Service {
	return &Service{
		recommender:  rec,
		interactions: interactions,
		books:        books,
		cache:        c,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// GetRecommendations serves from cache when possible. Cache failures are
// logged and never fail the request.
func (s *Service) GetRecommendations(ctx context.Context, req engine.Request) (*domain.RecommendationResult, error) {
	start := time.Now()
	req.UserID = strings.TrimSpace(req.UserID)
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr.InputError()
	}
	if req.Limit == 0 {
		req.Limit = s.defaultLimit
	}
	if req.Context == "" {
		req.Context = domain.ContextBrowse
	}
	logger := logging.Ctx(ctx).With().Str("user_id", req.UserID).Logger()

	key := cache.Key{UserID: req.UserID, Context: req.Context, Limit: req.Limit, ExcludeIDs: req.ExcludeIDs}
	cached, found, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordCache("get", "error")
		logger.Warn().Err(err).Msg("cache get failed")
	case found:
		metrics.RecordCache("get", "hit")
		cached.CacheHit = true
		metrics.RecordRecommendation(string(req.Context), cached.IsFallback, true, len(cached.Recommendations), time.Since(start))
		return cached, nil
	default:
		metrics.RecordCache("get", "miss")
	}

	result, err := s.recommender.GetRecommendations(ctx, req)
	if err != nil {
		metrics.RecordRecommendationError(string(req.Context))
		return nil, err
	}

	if err := s.cache.Set(ctx, key, result); err != nil {
		metrics.RecordCache("set", "error")
		logger.Warn().Err(err).Msg("cache set failed")
	} else {
		metrics.RecordCache("set", "ok")
	}

	metrics.RecordRecommendation(string(req.Context), result.IsFallback, false, len(result.Recommendations), time.Since(start))
	return result, nil
}

// InteractionInput is the client-facing shape of an event. Book events name
// the book by id or slug; the service snapshots it from the catalog.
type InteractionInput struct {
	Type      domain.EventType  `json:"event_type" validate:"required,oneof=view search bookmark_add bookmark_remove borrow return"`
	BookID    string            `json:"book_id" validate:"max=128"`
	Query     string            `json:"query" validate:"max=500"`
	Filters   map[string]string `json:"filters"`
	Timestamp *time.Time        `json:"timestamp"`
}

// RecordInteraction appends one event for userID and drops the user's
// cached recommendations.
func (s *Service) RecordInteraction(ctx context.Context, userID string, in InteractionInput) (*domain.Interaction, error) {
	if verr := validation.ValidateStruct(in); verr != nil {
		return nil, verr.InputError()
	}

	ev := domain.Interaction{
		UserID:    strings.TrimSpace(userID),
		Type:      in.Type,
		Timestamp: s.now().UTC(),
	}
	if in.Timestamp != nil {
		if in.Timestamp.After(s.now()) {
			return nil, &domain.InputError{Field: "timestamp", Reason: "must not be in the future"}
		}
		ev.Timestamp = in.Timestamp.UTC()
	}

	if in.Type.BookScoped() {
		if strings.TrimSpace(in.BookID) == "" {
			return nil, &domain.InputError{Field: "book_id", Reason: "required for " + string(in.Type) + " events"}
		}
		if ev.UserID == "" {
			return nil, &domain.InputError{Field: "user_id", Reason: "must not be empty"}
		}
		book, err := s.books.GetBook(ctx, in.BookID)
		if err != nil {
			return nil, err
		}
		ev.Book = domain.SnapshotOf(*book)
	} else {
		ev.Search = &domain.SearchPayload{Query: strings.TrimSpace(in.Query), Filters: in.Filters}
	}

	if err := ev.Validate(); err != nil {
		return nil, err
	}
	if err := s.interactions.Append(ctx, ev); err != nil {
		return nil, err
	}
	metrics.InteractionsRecorded.WithLabelValues(string(ev.Type)).Inc()

	if err := s.cache.ClearUserCache(ctx, ev.UserID); err != nil {
		metrics.RecordCache("clear", "error")
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", ev.UserID).Msg("cache invalidation failed")
	} else {
		metrics.RecordCache("clear", "ok")
	}
	return &ev, nil
}

// GetBatchRecommendations computes recommendations for one page of users
// active within the retention window. Per-user failures are reported in the
// result rather than failing the batch.
func (s *Service) GetBatchRecommendations(ctx context.Context, page, limit int) (*domain.BatchResponse, error) {
	start := time.Now()
	since := s.now().Add(-domain.RetentionWindow)

	userIDs, err := s.interactions.ActiveUserIDs(ctx, since, page, limit)
	if err != nil {
		return nil, err
	}
	totalUsers, err := s.interactions.CountActiveUsers(ctx, since)
	if err != nil {
		return nil, err
	}

	results := make([]domain.BatchUserResult, len(userIDs))
	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, userID := range userIDs {
		g.Go(func() error {
			results[i] = s.processUserForBatch(ctx, userID)
			return nil
		})
	}
	_ = g.Wait()

	successCount := 0
	for _, r := range results {
		if r.Status == domain.BatchSuccess {
			successCount++
		}
	}

	return &domain.BatchResponse{
		Page:       page,
		Limit:      limit,
		TotalUsers: totalUsers,
		Results:    results,
		Summary: domain.BatchSummary{
			SuccessCount:     successCount,
			FailedCount:      len(results) - successCount,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
		Metadata: domain.BatchMeta{
			GeneratedAt: s.now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (s *Service) processUserForBatch(ctx context.Context, userID string) domain.BatchUserResult {
	result, err := s.GetRecommendations(ctx, engine.Request{UserID: userID, Limit: batchRecLimit})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("user_id", userID).Msg("batch recommendation failed")
		code, msg := categorizeError(err)
		return domain.BatchUserResult{
			UserID:  userID,
			Status:  domain.BatchFailed,
			Error:   code,
			Message: msg,
		}
	}
	return domain.BatchUserResult{
		UserID:          userID,
		Recommendations: result.Recommendations,
		IsFallback:      result.IsFallback,
		Status:          domain.BatchSuccess,
	}
}

func categorizeError(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input", err.Error()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "request_timeout", "request timed out"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable", "a backing store is temporarily unavailable"
	}
	return "internal_error", "an unexpected error occurred"
}
