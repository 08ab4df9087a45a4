package handler

import "github.com/actuallystonmai/shelf-recommender/internal/domain"

const (
	headingPersonalized = "Similar Books You Might Like"
	headingFallback     = "Popular Books You Might Enjoy"
)

type RecommendationResponse struct {
	UserID          string                    `json:"user_id"`
	Heading         string                    `json:"heading"`
	IsFallback      bool                      `json:"is_fallback"`
	Recommendations []domain.ScoredCandidate  `json:"recommendations"`
	Profile         domain.UserProfile        `json:"profile"`
	Metadata        domain.RecommendationMeta `json:"metadata"`
}

type InteractionResponse struct {
	Interaction *domain.Interaction `json:"interaction"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func headingFor(fallback bool) string {
	if fallback {
		return headingFallback
	}
	return headingPersonalized
}
