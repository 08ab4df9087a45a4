package engine

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

func TestBuildProfileColdStart(t *testing.T) {
	p, err := BuildProfile("u1", nil, testNow, DefaultConfig())
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}
	if p.EngagementLevel != domain.EngagementNew {
		t.Errorf("expected new, got %s", p.EngagementLevel)
	}
	if p.HasSignal() {
		t.Error("cold start profile should carry no signal")
	}
	if p.DiversityScore != 0 || p.InteractionCount != 0 {
		t.Errorf("expected zero diversity and count, got %d and %d", p.DiversityScore, p.InteractionCount)
	}
	if p.TopCategories == nil || p.TopTags == nil || p.TopAuthors == nil {
		t.Error("top lists should be empty, not nil")
	}
}

func TestBuildProfileRejectsEmptyUser(t *testing.T) {
	_, err := BuildProfile(" ", nil, testNow, DefaultConfig())
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBuildProfileWeightsAndDecay(t *testing.T) {
	// A borrow 60 days old decays to 5 * 0.25 = 1.25, which still beats
	// a fresh view worth 1.
	history := []domain.Interaction{
		event(domain.EventView, book("a", "Fresh Author", 0, "Poetry"), 0),
		event(domain.EventBorrow, book("b", "Old Author", 0, "History"), 60),
	}
	p, err := BuildProfile("u1", history, testNow, DefaultConfig())
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}
	if want := []string{"History", "Poetry"}; !reflect.DeepEqual(p.TopCategories, want) {
		t.Errorf("expected %v, got %v", want, p.TopCategories)
	}
	if want := []string{"Old Author", "Fresh Author"}; !reflect.DeepEqual(p.TopAuthors, want) {
		t.Errorf("expected %v, got %v", want, p.TopAuthors)
	}

	// At 90 days the borrow is worth 5 * 0.125 = 0.625 and loses.
	history[1] = event(domain.EventBorrow, book("b", "Old Author", 0, "History"), 89.9)
	p, _ = BuildProfile("u1", history, testNow, DefaultConfig())
	if p.TopCategories[0] != "Poetry" {
		t.Errorf("expected Poetry first after decay, got %v", p.TopCategories)
	}
}

func TestBuildProfileTieBreaksAlphabetically(t *testing.T) {
	history := []domain.Interaction{
		event(domain.EventView, book("a", "A", 0, "Alpha"), 0),
		event(domain.EventView, book("b", "B", 0, "Beta"), 0),
	}
	// Same weight, same time: alphabetical.
	p, _ := BuildProfile("u1", history, testNow, DefaultConfig())
	if want := []string{"Alpha", "Beta"}; !reflect.DeepEqual(p.TopCategories, want) {
		t.Errorf("expected %v, got %v", want, p.TopCategories)
	}
}

func TestBuildProfileMostRecentFirstOnEqualWeight(t *testing.T) {
	// 2 * 0.5^(30/30) == 1 view today; ties resolve to the key seen last.
	history := []domain.Interaction{
		event(domain.EventView, book("old1", "A", 0, "Older"), 30),
		event(domain.EventView, book("old2", "A", 0, "Older"), 30),
		event(domain.EventView, book("new", "A", 0, "Newer"), 0),
	}
	p, _ := BuildProfile("u1", history, testNow, DefaultConfig())
	if want := []string{"Newer", "Older"}; !reflect.DeepEqual(p.TopCategories, want) {
		t.Errorf("expected %v, got %v", want, p.TopCategories)
	}
}

func TestBuildProfileBookmarkRemoveCancelsAdd(t *testing.T) {
	poetry := book("p", "Poet", 0, "Poetry")
	history := []domain.Interaction{
		event(domain.EventBookmarkAdd, poetry, 5),
		event(domain.EventBookmarkRemove, poetry, 2),
		event(domain.EventView, book("h", "Historian", 0, "History"), 3),
	}
	p, _ := BuildProfile("u1", history, testNow, DefaultConfig())
	if want := []string{"History"}; !reflect.DeepEqual(p.TopCategories, want) {
		t.Errorf("expected %v, got %v", want, p.TopCategories)
	}
	if p.InteractionCount != 3 {
		t.Errorf("removals still count toward engagement, got %d", p.InteractionCount)
	}

	// A removal only cancels an earlier add.
	history = []domain.Interaction{
		event(domain.EventBookmarkRemove, poetry, 5),
		event(domain.EventBookmarkAdd, poetry, 2),
	}
	p, _ = BuildProfile("u1", history, testNow, DefaultConfig())
	if want := []string{"Poetry"}; !reflect.DeepEqual(p.TopCategories, want) {
		t.Errorf("expected %v, got %v", want, p.TopCategories)
	}
}

func TestBuildProfileIgnoresOutOfWindowAndCaps(t *testing.T) {
	history := []domain.Interaction{
		event(domain.EventBorrow, book("old", "Old", 0, "Ancient"), 91),
	}
	for i := 0; i < 250; i++ {
		history = append(history, event(domain.EventView, book(fmt.Sprintf("b%d", i), "A", 0, "Recent"), float64(i%80)))
	}
	p, _ := BuildProfile("u1", history, testNow, DefaultConfig())
	if p.InteractionCount != 200 {
		t.Errorf("expected history capped to 200, got %d", p.InteractionCount)
	}
	for _, c := range p.TopCategories {
		if c == "Ancient" {
			t.Error("out-of-window interaction leaked into profile")
		}
	}
}

func TestBuildProfileSearchCountsButCarriesNoWeight(t *testing.T) {
	history := []domain.Interaction{{
		UserID:    "u1",
		Type:      domain.EventSearch,
		Timestamp: testNow,
		Search:    &domain.SearchPayload{Query: "dune"},
	}}
	p, _ := BuildProfile("u1", history, testNow, DefaultConfig())
	if p.HasSignal() {
		t.Error("search alone should not create signal")
	}
	if p.EngagementLevel != domain.EngagementLight {
		t.Errorf("expected light, got %s", p.EngagementLevel)
	}
}

func TestBuildProfileNormalizesKeys(t *testing.T) {
	history := []domain.Interaction{
		event(domain.EventView, withTags(book("a", "Le Guin", 0, "science fiction"), "Space"), 2),
		event(domain.EventView, withTags(book("b", "le guin ", 0, "Science Fiction"), "space"), 1),
	}
	p, _ := BuildProfile("u1", history, testNow, DefaultConfig())
	if want := []string{"Science Fiction"}; !reflect.DeepEqual(p.TopCategories, want) {
		t.Errorf("expected %v, got %v", want, p.TopCategories)
	}
	if len(p.TopAuthors) != 1 || len(p.TopTags) != 1 {
		t.Errorf("expected merged authors and tags, got %v %v", p.TopAuthors, p.TopTags)
	}
}

func TestEngagementLevels(t *testing.T) {
	tests := []struct {
		count int
		want  domain.EngagementLevel
	}{
		{0, domain.EngagementNew},
		{1, domain.EngagementLight},
		{9, domain.EngagementLight},
		{10, domain.EngagementModerate},
		{39, domain.EngagementModerate},
		{40, domain.EngagementHeavy},
		{200, domain.EngagementHeavy},
	}
	for _, tt := range tests {
		if got := engagementFor(tt.count); got != tt.want {
			t.Errorf("engagementFor(%d) = %s, want %s", tt.count, got, tt.want)
		}
	}
}

func TestDiversityScore(t *testing.T) {
	var narrow []domain.Interaction
	for i := 0; i < 10; i++ {
		narrow = append(narrow, event(domain.EventView, book(fmt.Sprintf("n%d", i), "A", 0, "Fantasy"), 1))
	}
	p, _ := BuildProfile("u1", narrow, testNow, DefaultConfig())
	if p.DiversityScore != 10 {
		t.Errorf("expected 10 for a single-category reader, got %d", p.DiversityScore)
	}

	broad := []domain.Interaction{
		event(domain.EventView, book("x", "A", 0, "Fantasy"), 1),
		event(domain.EventView, book("y", "A", 0, "History"), 1),
		event(domain.EventView, book("z", "A", 0, "Poetry", "Travel"), 1),
	}
	p, _ = BuildProfile("u1", broad, testNow, DefaultConfig())
	if p.DiversityScore != 100 {
		t.Errorf("expected capped 100, got %d", p.DiversityScore)
	}
}
