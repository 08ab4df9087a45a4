package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

type flakyCatalog struct {
	err   error
	calls int
}

func (f *flakyCatalog) FindAvailable(context.Context, domain.MatchCriteria, []string, int) ([]domain.Book, error) {
	f.calls++
	return nil, f.err
}

func (f *flakyCatalog) TopPopular(context.Context, int, []string) ([]domain.Book, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Book{{ID: "b1"}}, nil
}

func (f *flakyCatalog) GetBook(context.Context, string) (*domain.Book, error) {
	f.calls++
	return nil, f.err
}

func testSettings() Settings {
	return Settings{MaxRequests: 1, Interval: time.Minute, Timeout: time.Hour, ConsecutiveFailures: 3}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	backend := &flakyCatalog{err: domain.NewStoreError("catalog", "top popular", errors.New("connection refused"))}
	b := New("catalog-test-open", testSettings(), zerolog.Nop())
	store := NewCatalog(backend, b)

	for i := 0; i < 3; i++ {
		if _, err := store.TopPopular(context.Background(), 5, nil); err == nil {
			t.Fatal("expected backend error")
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", b.State())
	}

	_, err := store.TopPopular(context.Background(), 5, nil)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable while open, got %v", err)
	}
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open state cause, got %v", err)
	}
	if backend.calls != 3 {
		t.Errorf("backend should not be called while open, got %d calls", backend.calls)
	}
}

func TestBreakerIgnoresMisses(t *testing.T) {
	backend := &flakyCatalog{err: domain.ErrBookNotFound}
	b := New("catalog-test-miss", testSettings(), zerolog.Nop())
	store := NewCatalog(backend, b)

	for i := 0; i < 5; i++ {
		if _, err := store.GetBook(context.Background(), "nope"); !errors.Is(err, domain.ErrBookNotFound) {
			t.Fatalf("expected ErrBookNotFound, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("misses should not trip the breaker, got %s", b.State())
	}
}

func TestBreakerPassesResults(t *testing.T) {
	store := NewCatalog(&flakyCatalog{}, New("catalog-test-pass", testSettings(), zerolog.Nop()))
	books, err := store.TopPopular(context.Background(), 5, nil)
	if err != nil {
		t.Fatalf("TopPopular: %v", err)
	}
	if len(books) != 1 || books[0].ID != "b1" {
		t.Errorf("unexpected books %v", books)
	}

	got, err := store.FindAvailable(context.Background(), domain.MatchCriteria{}, nil, 5)
	if err != nil || got != nil {
		t.Errorf("expected nil result without error, got %v %v", got, err)
	}
}
