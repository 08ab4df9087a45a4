package domain

import (
	"strings"
	"time"
)

type EventType string

const (
	EventView           EventType = "view"
	EventSearch         EventType = "search"
	EventBookmarkAdd    EventType = "bookmark_add"
	EventBookmarkRemove EventType = "bookmark_remove"
	EventBorrow         EventType = "borrow"
	EventReturn         EventType = "return"
)

// RetentionWindow is how long interactions live before they are purged.
const RetentionWindow = 90 * 24 * time.Hour

func (t EventType) Valid() bool {
	switch t {
	case EventView, EventSearch, EventBookmarkAdd, EventBookmarkRemove, EventBorrow, EventReturn:
		return true
	}
	return false
}

// BookScoped reports whether events of this type carry a book snapshot.
func (t EventType) BookScoped() bool {
	return t.Valid() && t != EventSearch
}

// BookSnapshot is the book as it looked when the event happened.
// It is never refreshed from the live catalog.
type BookSnapshot struct {
	BookID     string   `json:"book_id"`
	Title      string   `json:"title"`
	Author     string   `json:"author"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
	Publisher  string   `json:"publisher,omitempty"`
	Format     string   `json:"format,omitempty"`
	Year       int      `json:"year,omitempty"`
}

func SnapshotOf(b Book) *BookSnapshot {
	return &BookSnapshot{
		BookID:     b.ID,
		Title:      b.Title,
		Author:     b.Author,
		Categories: append([]string(nil), b.Categories...),
		Tags:       append([]string(nil), b.Tags...),
		Publisher:  b.Publisher,
		Format:     b.Format,
		Year:       b.Year,
	}
}

type SearchPayload struct {
	Query   string            `json:"query"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Interaction is an immutable user event. Exactly one of Book or Search is
// set, depending on Type.
type Interaction struct {
	UserID    string         `json:"user_id"`
	Type      EventType      `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Book      *BookSnapshot  `json:"book,omitempty"`
	Search    *SearchPayload `json:"search,omitempty"`
}

func (i Interaction) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return &InputError{Field: "user_id", Reason: "must not be empty"}
	}
	if !i.Type.Valid() {
		return &InputError{Field: "event_type", Reason: "unknown event type " + string(i.Type)}
	}
	if i.Timestamp.IsZero() {
		return &InputError{Field: "timestamp", Reason: "must be set"}
	}
	if i.Type == EventSearch {
		if i.Search == nil || strings.TrimSpace(i.Search.Query) == "" {
			return &InputError{Field: "search.query", Reason: "required for search events"}
		}
		if i.Book != nil {
			return &InputError{Field: "book", Reason: "not allowed on search events"}
		}
		return nil
	}
	if i.Book == nil || strings.TrimSpace(i.Book.BookID) == "" {
		return &InputError{Field: "book.book_id", Reason: "required for " + string(i.Type) + " events"}
	}
	if i.Search != nil {
		return &InputError{Field: "search", Reason: "only allowed on search events"}
	}
	return nil
}
