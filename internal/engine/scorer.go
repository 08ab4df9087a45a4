package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

const (
	ReasonPopular        = "Popular with readers"
	reasonCategory       = "Same category: "
	reasonAuthor         = "Author you've viewed: "
	reasonTag            = "Shared topic: "
	reasonRecentActivity = "Matches your recent activity"

	maxReasons = 2
)

// ScoringWeights are the points each signal contributes to a relevance score.
type ScoringWeights struct {
	CategoryMatch    float64       `koanf:"category_match"`
	TagMatch         float64       `koanf:"tag_match"`
	AuthorMatch      float64       `koanf:"author_match"`
	RecencyPerTouch  float64       `koanf:"recency_per_touch"`
	RecencyCap       float64       `koanf:"recency_cap"`
	RecencyWindow    time.Duration `koanf:"recency_window"`
	PopularityFactor float64       `koanf:"popularity_factor"`
	WeakMatchFloor   float64       `koanf:"weak_match_floor"`
	WeakMatchPenalty float64       `koanf:"weak_match_penalty"`
}

func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		CategoryMatch:    30,
		TagMatch:         20,
		AuthorMatch:      15,
		RecencyPerTouch:  2,
		RecencyCap:       10,
		RecencyWindow:    14 * 24 * time.Hour,
		PopularityFactor: 0.25,
		WeakMatchFloor:   15,
		WeakMatchPenalty: 0.5,
	}
}

type signal int

const (
	signalCategory signal = iota
	signalAuthor
	signalTag
	signalRecency
)

type component struct {
	kind   signal
	points float64
	reason string
}

// scored is a candidate plus the bookkeeping the selector needs.
type scored struct {
	domain.ScoredCandidate
	personalized bool
}

type Scorer struct {
	w ScoringWeights
}

func NewScorer(w ScoringWeights) *Scorer {
	return &Scorer{w: w}
}

// ScoreAll scores every eligible book. Excluded and unavailable books are
// dropped before scoring.
func (s *Scorer) ScoreAll(p *Profile, books []domain.Book, exclude map[string]struct{}) []scored {
	out := make([]scored, 0, len(books))
	for _, b := range books {
		if !b.Available() {
			continue
		}
		if _, skip := exclude[b.ID]; skip {
			continue
		}
		out = append(out, s.Score(p, b))
	}
	return out
}

func (s *Scorer) Score(p *Profile, b domain.Book) scored {
	var parts []component

	if pts, label := s.categoryPoints(p, b); pts > 0 {
		parts = append(parts, component{signalCategory, pts, reasonCategory + label})
	}
	if label, ok := p.authors[normalizeKey(b.Author)]; ok && label != "" {
		parts = append(parts, component{signalAuthor, s.w.AuthorMatch, reasonAuthor + label})
	}
	if pts, label := s.tagPoints(p, b); pts > 0 {
		parts = append(parts, component{signalTag, pts, reasonTag + label})
	}
	if pts := s.recencyPoints(p, b); pts > 0 {
		parts = append(parts, component{signalRecency, pts, reasonRecentActivity})
	}

	raw := b.PopularityScore * s.w.PopularityFactor
	for _, c := range parts {
		raw += c.points
	}
	if raw < s.w.WeakMatchFloor {
		raw *= s.w.WeakMatchPenalty
	}

	return scored{
		ScoredCandidate: domain.ScoredCandidate{
			Book:           b,
			RelevanceScore: clampScore(raw),
			MatchReasons:   reasons(parts),
		},
		personalized: len(parts) > 0,
	}
}

// categoryPoints counts book categories found in the profile's top list.
// The label is the highest-ranked one that matched.
func (s *Scorer) categoryPoints(p *Profile, b domain.Book) (float64, string) {
	return matchPoints(p.TopCategories, b.Categories, s.w.CategoryMatch)
}

func (s *Scorer) tagPoints(p *Profile, b domain.Book) (float64, string) {
	return matchPoints(p.TopTags, b.Tags, s.w.TagMatch)
}

func (s *Scorer) recencyPoints(p *Profile, b domain.Book) float64 {
	if len(p.recent) == 0 {
		return 0
	}
	cats := keySet(b.Categories)
	tags := keySet(b.Tags)
	var pts float64
	for _, t := range p.recent {
		if overlaps(t.categories, cats) || overlaps(t.tags, tags) {
			pts += s.w.RecencyPerTouch
		}
	}
	return math.Min(pts, s.w.RecencyCap)
}

func matchPoints(top, values []string, per float64) (float64, string) {
	have := keySet(values)
	var pts float64
	label := ""
	for _, t := range top {
		if _, ok := have[normalizeKey(t)]; !ok {
			continue
		}
		pts += per
		if label == "" {
			label = t
		}
	}
	return pts, label
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// reasons renders the two strongest personalized components.
func reasons(parts []component) []string {
	if len(parts) == 0 {
		return []string{ReasonPopular}
	}
	sort.SliceStable(parts, func(i, j int) bool {
		if parts[i].points != parts[j].points {
			return parts[i].points > parts[j].points
		}
		return parts[i].kind < parts[j].kind
	})
	out := make([]string, 0, maxReasons)
	for _, c := range parts {
		if len(out) == maxReasons {
			break
		}
		out = append(out, strings.TrimSpace(c.reason))
	}
	return out
}

func clampScore(raw float64) int {
	if math.IsNaN(raw) || raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return int(math.Round(raw))
}
