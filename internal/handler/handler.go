package handler

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
	"github.com/actuallystonmai/shelf-recommender/internal/engine"
	"github.com/actuallystonmai/shelf-recommender/internal/logging"
	"github.com/actuallystonmai/shelf-recommender/internal/service"
)

// RecommendationService is the part of service.Service the HTTP layer uses.
type RecommendationService interface {
	GetRecommendations(ctx context.Context, req engine.Request) (*domain.RecommendationResult, error)
	RecordInteraction(ctx context.Context, userID string, in service.InteractionInput) (*domain.Interaction, error)
	GetBatchRecommendations(ctx context.Context, page, limit int) (*domain.BatchResponse, error)
}

type Handler struct {
	service RecommendationService
}

func NewHandler(svc RecommendationService) *Handler {
	return &Handler{service: svc}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("failed to encode response")
	}
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}
