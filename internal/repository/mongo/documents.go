package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

type bookDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Slug            string             `bson:"slug"`
	ISBN            string             `bson:"isbn,omitempty"`
	Title           string             `bson:"title"`
	Author          string             `bson:"author"`
	Publisher       string             `bson:"publisher,omitempty"`
	Year            int                `bson:"year,omitempty"`
	Format          string             `bson:"format,omitempty"`
	Categories      []string           `bson:"categories"`
	Tags            []string           `bson:"tags"`
	Status          string             `bson:"status"`
	PopularityScore float64            `bson:"popularityScore"`
}

func (d bookDocument) toDomain() domain.Book {
	b := domain.Book{
		ID:              d.ID.Hex(),
		Slug:            d.Slug,
		ISBN:            d.ISBN,
		Title:           d.Title,
		Author:          d.Author,
		Publisher:       d.Publisher,
		Year:            d.Year,
		Format:          d.Format,
		Categories:      d.Categories,
		Tags:            d.Tags,
		Status:          domain.BookStatus(d.Status),
		PopularityScore: d.PopularityScore,
	}
	b.Normalize()
	return b
}

type interactionDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID         string             `bson:"userId"`
	EventType      string             `bson:"eventType"`
	Timestamp      time.Time          `bson:"timestamp"`
	BookID         string             `bson:"bookId,omitempty"`
	BookTitle      string             `bson:"bookTitle,omitempty"`
	BookAuthor     string             `bson:"bookAuthor,omitempty"`
	BookCategories []string           `bson:"bookCategories,omitempty"`
	BookTags       []string           `bson:"bookTags,omitempty"`
	BookPublisher  string             `bson:"bookPublisher,omitempty"`
	BookFormat     string             `bson:"bookFormat,omitempty"`
	BookYear       int                `bson:"bookYear,omitempty"`
	SearchQuery    string             `bson:"searchQuery,omitempty"`
	SearchFilters  map[string]string  `bson:"searchFilters,omitempty"`
}

func fromInteraction(ev domain.Interaction) interactionDocument {
	doc := interactionDocument{
		UserID:    ev.UserID,
		EventType: string(ev.Type),
		Timestamp: ev.Timestamp.UTC(),
	}
	if b := ev.Book; b != nil {
		doc.BookID = b.BookID
		doc.BookTitle = b.Title
		doc.BookAuthor = b.Author
		doc.BookCategories = b.Categories
		doc.BookTags = b.Tags
		doc.BookPublisher = b.Publisher
		doc.BookFormat = b.Format
		doc.BookYear = b.Year
	}
	if s := ev.Search; s != nil {
		doc.SearchQuery = s.Query
		doc.SearchFilters = s.Filters
	}
	return doc
}

func (d interactionDocument) toDomain() domain.Interaction {
	ev := domain.Interaction{
		UserID:    d.UserID,
		Type:      domain.EventType(d.EventType),
		Timestamp: d.Timestamp,
	}
	if ev.Type == domain.EventSearch {
		ev.Search = &domain.SearchPayload{Query: d.SearchQuery, Filters: d.SearchFilters}
		return ev
	}
	ev.Book = &domain.BookSnapshot{
		BookID:     d.BookID,
		Title:      d.BookTitle,
		Author:     d.BookAuthor,
		Categories: d.BookCategories,
		Tags:       d.BookTags,
		Publisher:  d.BookPublisher,
		Format:     d.BookFormat,
		Year:       d.BookYear,
	}
	return ev
}

// fromBook requires a hex object id; an empty id lets the server assign one.
func fromBook(b domain.Book) (bookDocument, error) {
	doc := bookDocument{
		Slug:            b.Slug,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Publisher:       b.Publisher,
		Year:            b.Year,
		Format:          b.Format,
		Categories:      b.Categories,
		Tags:            b.Tags,
		Status:          string(b.Status),
		PopularityScore: b.PopularityScore,
	}
	if b.ID != "" {
		oid, err := primitive.ObjectIDFromHex(b.ID)
		if err != nil {
			return bookDocument{}, fmt.Errorf("book id %q: %w", b.ID, err)
		}
		doc.ID = oid
	}
	return doc, nil
}
