package domain

import "strings"

type BookStatus string

const (
	StatusAvailable   BookStatus = "available"
	StatusCheckedOut  BookStatus = "checked-out"
	StatusReserved    BookStatus = "reserved"
	StatusMaintenance BookStatus = "maintenance"
	StatusLost        BookStatus = "lost"
)

// DefaultCategory is assigned to books catalogued without any category.
const DefaultCategory = "General"

type Book struct {
	ID              string     `json:"id"`
	Slug            string     `json:"slug"`
	ISBN            string     `json:"isbn,omitempty"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Publisher       string     `json:"publisher,omitempty"`
	Year            int        `json:"year,omitempty"`
	Format          string     `json:"format,omitempty"`
	Categories      []string   `json:"categories"`
	Tags            []string   `json:"tags"`
	Status          BookStatus `json:"status"`
	PopularityScore float64    `json:"popularity_score"`
}

// Normalize fills in the catalog defaults. Stores call it on every record they return.
func (b *Book) Normalize() {
	if len(b.Categories) == 0 {
		b.Categories = []string{DefaultCategory}
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.PopularityScore < 0 {
		b.PopularityScore = 0
	}
}

func (b Book) Available() bool {
	return b.Status == StatusAvailable
}

// PrimaryCategory is the lowercased first category, used for de-clustering.
func (b Book) PrimaryCategory() string {
	if len(b.Categories) == 0 {
		return strings.ToLower(DefaultCategory)
	}
	return strings.ToLower(strings.TrimSpace(b.Categories[0]))
}

// MatchCriteria is an OR query over a profile's top lists.
type MatchCriteria struct {
	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Authors    []string `json:"authors,omitempty"`
}

func (m MatchCriteria) Empty() bool {
	return len(m.Categories) == 0 && len(m.Tags) == 0 && len(m.Authors) == 0
}
