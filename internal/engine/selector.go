package engine

import (
	"slices"
	"sort"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

// Select ranks candidates, breaks up long runs of one category and trims the
// list to limit. No more than ceil(limit/2) consecutive entries share a
// primary category while another category is still available.
func Select(candidates []scored, limit int) []domain.ScoredCandidate {
	if limit <= 0 || len(candidates) == 0 {
		return []domain.ScoredCandidate{}
	}
	ranked := append([]scored(nil), candidates...)
	sortCandidates(ranked)

	out := declutter(ranked, limit, (limit+1)/2)
	smoothScores(out)
	return out
}

func sortCandidates(c []scored) {
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if a.Book.PopularityScore != b.Book.PopularityScore {
			return a.Book.PopularityScore > b.Book.PopularityScore
		}
		return a.Book.ID < b.Book.ID
	})
}

// declutter fills up to limit slots in rank order. When the next candidate
// would extend a same-category run past maxRun, it is demoted below the
// best remaining candidate from another category.
func declutter(ranked []scored, limit, maxRun int) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, min(limit, len(ranked)))
	remaining := ranked
	run, runCategory := 0, ""

	for len(out) < limit && len(remaining) > 0 {
		pick := 0
		if run >= maxRun && remaining[0].Book.PrimaryCategory() == runCategory {
			for j := 1; j < len(remaining); j++ {
				if remaining[j].Book.PrimaryCategory() != runCategory {
					pick = j
					break
				}
			}
		}

		next := remaining[pick]
		remaining = slices.Delete(remaining, pick, pick+1)

		if cat := next.Book.PrimaryCategory(); cat == runCategory {
			run++
		} else {
			run, runCategory = 1, cat
		}
		out = append(out, next.ScoredCandidate)
	}
	return out
}

// smoothScores keeps reported scores non-increasing after demotions: an
// entry placed below a weaker one reports the weaker score.
func smoothScores(out []domain.ScoredCandidate) {
	for i := 1; i < len(out); i++ {
		if out[i].RelevanceScore > out[i-1].RelevanceScore {
			out[i].RelevanceScore = out[i-1].RelevanceScore
		}
	}
}

// popularFallback ranks books by popularity alone, tagging each with the
// generic reason.
func popularFallback(books []domain.Book, exclude map[string]struct{}, limit int, w ScoringWeights) []domain.ScoredCandidate {
	pool := make([]domain.Book, 0, len(books))
	seen := make(map[string]struct{}, len(books))
	for _, b := range books {
		if !b.Available() {
			continue
		}
		if _, skip := exclude[b.ID]; skip {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		pool = append(pool, b)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].PopularityScore != pool[j].PopularityScore {
			return pool[i].PopularityScore > pool[j].PopularityScore
		}
		return pool[i].ID < pool[j].ID
	})
	if len(pool) > limit {
		pool = pool[:limit]
	}

	out := make([]domain.ScoredCandidate, 0, len(pool))
	for _, b := range pool {
		out = append(out, domain.ScoredCandidate{
			Book:           b,
			RelevanceScore: clampScore(b.PopularityScore * w.PopularityFactor),
			MatchReasons:   []string{ReasonPopular},
		})
	}
	return out
}
