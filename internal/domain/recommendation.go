package domain

type EngagementLevel string

const (
	EngagementNew      EngagementLevel = "new"
	EngagementLight    EngagementLevel = "light"
	EngagementModerate EngagementLevel = "moderate"
	EngagementHeavy    EngagementLevel = "heavy"
)

type RecommendationContext string

const (
	ContextBrowse  RecommendationContext = "browse"
	ContextSearch  RecommendationContext = "search"
	ContextLibrary RecommendationContext = "library"
)

// UserProfile is derived per request and never persisted.
type UserProfile struct {
	UserID           string          `json:"user_id"`
	TopCategories    []string        `json:"top_categories"`
	TopTags          []string        `json:"top_tags"`
	TopAuthors       []string        `json:"top_authors"`
	EngagementLevel  EngagementLevel `json:"engagement_level"`
	DiversityScore   int             `json:"diversity_score"`
	InteractionCount int             `json:"interaction_count"`
}

// HasSignal reports whether any personalized list is populated.
func (p UserProfile) HasSignal() bool {
	return len(p.TopCategories) > 0 || len(p.TopTags) > 0 || len(p.TopAuthors) > 0
}

type ScoredCandidate struct {
	Book           Book     `json:"book"`
	RelevanceScore int      `json:"relevance_score"`
	MatchReasons   []string `json:"match_reasons"`
}

type RecommendationMeta struct {
	CacheHit    bool   `json:"cache_hit"`
	GeneratedAt string `json:"generated_at"`
	TotalCount  int    `json:"total_count"`
}

// RecommendationResult is what the engine hands back and what the cache stores.
type RecommendationResult struct {
	Recommendations []ScoredCandidate `json:"recommendations"`
	Profile         UserProfile       `json:"profile"`
	IsFallback      bool              `json:"is_fallback"`
	CacheHit        bool              `json:"-"`
}

type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchFailed  BatchStatus = "failed"
)

type BatchUserResult struct {
	UserID          string            `json:"user_id"`
	Recommendations []ScoredCandidate `json:"recommendations,omitempty"`
	IsFallback      bool              `json:"is_fallback,omitempty"`
	Status          BatchStatus       `json:"status"`
	Error           string            `json:"error,omitempty"`
	Message         string            `json:"message,omitempty"`
}

type BatchSummary struct {
	SuccessCount     int   `json:"success_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type BatchMeta struct {
	GeneratedAt string `json:"generated_at"`
}

type BatchResponse struct {
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalUsers int               `json:"total_users"`
	Results    []BatchUserResult `json:"results"`
	Summary    BatchSummary      `json:"summary"`
	Metadata   BatchMeta         `json:"metadata"`
}
