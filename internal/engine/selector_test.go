package engine

import (
	"reflect"
	"testing"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

func candidate(id, category string, score int, pop float64) scored {
	return scored{
		ScoredCandidate: domain.ScoredCandidate{
			Book:           book(id, "A", pop, category),
			RelevanceScore: score,
			MatchReasons:   []string{ReasonPopular},
		},
	}
}

func TestSelectSortOrder(t *testing.T) {
	in := []scored{
		candidate("c", "x", 50, 1),
		candidate("b", "y", 50, 1),
		candidate("a", "z", 50, 9),
		candidate("d", "w", 70, 0),
	}
	got := ids(Select(in, 10))
	want := []string{"d", "a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSelectDemotesLongRuns(t *testing.T) {
	in := []scored{
		candidate("x1", "Fantasy", 90, 0),
		candidate("x2", "Fantasy", 89, 0),
		candidate("x3", "Fantasy", 88, 0),
		candidate("x4", "fantasy", 87, 0),
		candidate("y1", "History", 50, 0),
	}
	out := Select(in, 4)
	if want := []string{"x1", "x2", "y1", "x3"}; !reflect.DeepEqual(ids(out), want) {
		t.Fatalf("expected %v, got %v", want, ids(out))
	}

	scores := []int{out[0].RelevanceScore, out[1].RelevanceScore, out[2].RelevanceScore, out[3].RelevanceScore}
	if want := []int{90, 89, 50, 50}; !reflect.DeepEqual(scores, want) {
		t.Errorf("expected scores %v, got %v", want, scores)
	}
}

func TestSelectKeepsRunWhenNoAlternative(t *testing.T) {
	in := []scored{
		candidate("x1", "Fantasy", 90, 0),
		candidate("x2", "Fantasy", 80, 0),
		candidate("x3", "Fantasy", 70, 0),
	}
	if got := ids(Select(in, 2)); !reflect.DeepEqual(got, []string{"x1", "x2"}) {
		t.Errorf("expected [x1 x2], got %v", got)
	}
	if got := ids(Select(in, 3)); !reflect.DeepEqual(got, []string{"x1", "x2", "x3"}) {
		t.Errorf("expected all three, got %v", got)
	}
}

func TestSelectEmpty(t *testing.T) {
	if got := Select(nil, 10); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
	if got := Select([]scored{candidate("a", "x", 1, 1)}, 0); len(got) != 0 {
		t.Errorf("expected nothing for limit 0, got %v", got)
	}
}

func TestPopularFallback(t *testing.T) {
	books := []domain.Book{
		book("low", "A", 4, "x"),
		book("high", "A", 400, "x"),
		book("mid-b", "A", 40, "x"),
		book("mid-a", "A", 40, "x"),
		withStatus(book("lost", "A", 1000, "x"), domain.StatusLost),
		book("skip", "A", 500, "x"),
		book("high", "A", 400, "x"),
	}
	out := popularFallback(books, excludeSet([]string{"skip"}), 3, DefaultWeights())
	if want := []string{"high", "mid-a", "mid-b"}; !reflect.DeepEqual(ids(out), want) {
		t.Fatalf("expected %v, got %v", want, ids(out))
	}
	if out[0].RelevanceScore != 100 || out[1].RelevanceScore != 10 {
		t.Errorf("unexpected scores %d %d", out[0].RelevanceScore, out[1].RelevanceScore)
	}
	for _, r := range out {
		if !reflect.DeepEqual(r.MatchReasons, []string{ReasonPopular}) {
			t.Errorf("%s: unexpected reasons %v", r.Book.ID, r.MatchReasons)
		}
	}
}
