package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

func TestBookDocumentDefaults(t *testing.T) {
	oid := primitive.NewObjectID()
	b := bookDocument{ID: oid, Slug: "dune", Title: "Dune", Status: "available", PopularityScore: -3}.toDomain()

	if b.ID != oid.Hex() {
		t.Errorf("expected hex id %s, got %s", oid.Hex(), b.ID)
	}
	if len(b.Categories) != 1 || b.Categories[0] != domain.DefaultCategory {
		t.Errorf("expected default category, got %v", b.Categories)
	}
	if b.PopularityScore != 0 {
		t.Errorf("expected negative popularity clamped to 0, got %v", b.PopularityScore)
	}
}

func TestInteractionDocumentVariants(t *testing.T) {
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	search := fromInteraction(domain.Interaction{
		UserID: "u1", Type: domain.EventSearch, Timestamp: at,
		Search: &domain.SearchPayload{Query: "dune", Filters: map[string]string{"format": "ebook"}},
	}).toDomain()
	if search.Book != nil || search.Search == nil || search.Search.Query != "dune" {
		t.Errorf("search event decoded wrong: %+v", search)
	}

	view := fromInteraction(domain.Interaction{
		UserID: "u1", Type: domain.EventView, Timestamp: at,
		Book: &domain.BookSnapshot{BookID: "b1", Title: "Dune", Categories: []string{"Science Fiction"}},
	}).toDomain()
	if view.Search != nil || view.Book == nil || view.Book.BookID != "b1" {
		t.Errorf("view event decoded wrong: %+v", view)
	}
}

func TestAvailableFilterExclusions(t *testing.T) {
	oid := primitive.NewObjectID()
	filter := availableFilter([]string{oid.Hex(), "some-slug"})

	if len(filter) != 3 {
		t.Fatalf("expected status, _id and slug clauses, got %v", filter)
	}
	nin := filter[1].Value.(bson.D)[0].Value.([]primitive.ObjectID)
	if len(nin) != 1 || nin[0] != oid {
		t.Errorf("expected only the hex id in _id $nin, got %v", nin)
	}

	if got := availableFilter(nil); len(got) != 1 {
		t.Errorf("expected status clause only, got %v", got)
	}
}

func TestExactFoldEscapes(t *testing.T) {
	got := exactFold([]string{"C++ (2nd ed.)", "  "})
	if len(got) != 1 {
		t.Fatalf("expected blank values dropped, got %v", got)
	}
	re := got[0].(primitive.Regex)
	if re.Pattern != `^C\+\+ \(2nd ed\.\)$` || re.Options != "i" {
		t.Errorf("unexpected regex %+v", re)
	}
}
