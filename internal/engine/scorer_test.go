package engine

import (
	"reflect"
	"testing"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

func fantasyProfile(t *testing.T) *Profile {
	t.Helper()
	history := []domain.Interaction{
		event(domain.EventView, withTags(book("seen", "A", 0, "Fantasy"), "dragons"), 0),
	}
	p, err := BuildProfile("u1", history, testNow, DefaultConfig())
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}
	return p
}

func TestScoreComponents(t *testing.T) {
	p := fantasyProfile(t)
	s := NewScorer(DefaultWeights())

	tests := []struct {
		name         string
		book         domain.Book
		wantScore    int
		wantReasons  []string
		personalized bool
	}{
		{
			name:         "category tag author recency",
			book:         withTags(book("c1", "A", 0, "Fantasy"), "Dragons"),
			wantScore:    67,
			wantReasons:  []string{"Same category: Fantasy", "Shared topic: dragons"},
			personalized: true,
		},
		{
			name:         "category and recency",
			book:         book("c2", "B", 0, "Fantasy"),
			wantScore:    32,
			wantReasons:  []string{"Same category: Fantasy", "Matches your recent activity"},
			personalized: true,
		},
		{
			name:         "author only sits on the floor",
			book:         book("c3", "a", 0, "Poetry"),
			wantScore:    15,
			wantReasons:  []string{"Author you've viewed: A"},
			personalized: true,
		},
		{
			name:        "weak match is halved",
			book:        book("c4", "Z", 40, "History"),
			wantScore:   5,
			wantReasons: []string{ReasonPopular},
		},
		{
			name:        "popularity alone above the floor",
			book:        book("c5", "Z", 100, "History"),
			wantScore:   25,
			wantReasons: []string{ReasonPopular},
		},
		{
			name:         "clamped to 100",
			book:         book("c6", "A", 1000, "Fantasy"),
			wantScore:    100,
			wantReasons:  []string{"Same category: Fantasy", "Author you've viewed: A"},
			personalized: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(p, tt.book)
			if got.RelevanceScore != tt.wantScore {
				t.Errorf("score = %d, want %d", got.RelevanceScore, tt.wantScore)
			}
			if !reflect.DeepEqual(got.MatchReasons, tt.wantReasons) {
				t.Errorf("reasons = %v, want %v", got.MatchReasons, tt.wantReasons)
			}
			if got.personalized != tt.personalized {
				t.Errorf("personalized = %v, want %v", got.personalized, tt.personalized)
			}
		})
	}
}

func TestScoreWeakMatchPenaltyIsTunable(t *testing.T) {
	w := DefaultWeights()
	w.WeakMatchPenalty = 0.6
	got := NewScorer(w).Score(fantasyProfile(t), book("x", "Z", 40, "History"))
	if got.RelevanceScore != 6 {
		t.Errorf("expected 6, got %d", got.RelevanceScore)
	}
}

func TestScoreRecencyIsCapped(t *testing.T) {
	var history []domain.Interaction
	for i := 0; i < 8; i++ {
		history = append(history, event(domain.EventView, book("seen", "A", 0, "Fantasy"), float64(i)))
	}
	// a touch outside the 14 day window adds nothing
	history = append(history, event(domain.EventView, book("old", "A", 0, "Fantasy"), 20))
	p, _ := BuildProfile("u1", history, testNow, DefaultConfig())
	if len(p.recent) != 8 {
		t.Fatalf("expected 8 recent touches, got %d", len(p.recent))
	}

	got := NewScorer(DefaultWeights()).Score(p, book("c", "B", 0, "Fantasy"))
	// 30 category + 10 capped recency
	if got.RelevanceScore != 40 {
		t.Errorf("expected 40, got %d", got.RelevanceScore)
	}
}

func TestScoreAllFiltersBeforeScoring(t *testing.T) {
	p := fantasyProfile(t)
	books := []domain.Book{
		book("keep", "A", 10, "Fantasy"),
		book("skip", "A", 10, "Fantasy"),
		withStatus(book("gone", "A", 10, "Fantasy"), domain.StatusLost),
		withStatus(book("busy", "A", 10, "Fantasy"), domain.StatusCheckedOut),
	}
	got := NewScorer(DefaultWeights()).ScoreAll(p, books, excludeSet([]string{"skip"}))
	if len(got) != 1 || got[0].Book.ID != "keep" {
		t.Errorf("expected only keep, got %v", got)
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{49.5, 50},
		{49.4, 49},
		{100, 100},
		{250, 100},
	}
	for _, tt := range tests {
		if got := clampScore(tt.raw); got != tt.want {
			t.Errorf("clampScore(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
