package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

const (
	topN          = 5
	decayHalfLife = 30.0 // days
)

var eventWeights = map[domain.EventType]float64{
	domain.EventView:        1,
	domain.EventBookmarkAdd: 3,
	domain.EventBorrow:      5,
}

// Profile is the scoring view of a user: the public profile plus the
// normalized lookups and recent activity the scorer needs.
type Profile struct {
	domain.UserProfile

	categories map[string]string // normalized key -> display label
	tags       map[string]string
	authors    map[string]string
	recent     []touch
}

// touch is a weighted interaction inside the recency window.
type touch struct {
	categories map[string]struct{}
	tags       map[string]struct{}
}

type tally struct {
	key      string
	label    string
	weight   float64
	lastSeen time.Time
}

type tallies map[string]*tally

func (t tallies) add(raw string, w float64, at time.Time) {
	key := normalizeKey(raw)
	if key == "" {
		return
	}
	e, ok := t[key]
	if !ok {
		e = &tally{key: key}
		t[key] = e
	}
	e.weight += w
	if !at.Before(e.lastSeen) {
		e.lastSeen = at
		e.label = strings.TrimSpace(raw)
	}
}

// top returns the n heaviest entries. Ties go to the most recently seen key,
// then to the alphabetically first one.
func (t tallies) top(n int) []*tally {
	entries := make([]*tally, 0, len(t))
	for _, e := range t {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.weight != b.weight {
			return a.weight > b.weight
		}
		if !a.lastSeen.Equal(b.lastSeen) {
			return a.lastSeen.After(b.lastSeen)
		}
		return a.key < b.key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// BuildProfile aggregates interaction history into a profile as of now.
// Interactions outside the retention window are ignored and at most
// historyLimit of the newest are considered. A bookmark_remove cancels the
// latest still-active bookmark_add for the same book.
func BuildProfile(userID string, history []domain.Interaction, now time.Time, cfg Config) (*Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &domain.InputError{Field: "user_id", Reason: "must not be empty"}
	}

	events := windowed(history, now, cfg.HistoryLimit)

	categories := tallies{}
	tags := tallies{}
	authors := tallies{}
	var recent []touch

	cancelled := cancelledBookmarks(events)
	distinct := map[string]struct{}{}
	categoryTagged := 0

	for i, ev := range events {
		if ev.Book == nil {
			continue
		}
		cats := snapshotCategories(ev.Book)
		categoryTagged++
		for k := range keySet(cats) {
			distinct[k] = struct{}{}
		}

		base := eventWeights[ev.Type]
		if base == 0 || cancelled[i] {
			continue
		}
		age := ageDays(ev.Timestamp, now)
		w := base * math.Pow(0.5, age/decayHalfLife)

		for _, c := range dedupe(cats) {
			categories.add(c, w, ev.Timestamp)
		}
		for _, t := range dedupe(ev.Book.Tags) {
			tags.add(t, w, ev.Timestamp)
		}
		authors.add(ev.Book.Author, w, ev.Timestamp)

		if age <= cfg.Scoring.RecencyWindow.Hours()/24 {
			recent = append(recent, touch{
				categories: keySet(cats),
				tags:       keySet(ev.Book.Tags),
			})
		}
	}

	p := &Profile{
		UserProfile: domain.UserProfile{
			UserID:           userID,
			EngagementLevel:  engagementFor(len(events)),
			DiversityScore:   diversity(len(distinct), categoryTagged),
			InteractionCount: len(events),
		},
		recent: recent,
	}
	p.TopCategories, p.categories = labels(categories.top(topN))
	p.TopTags, p.tags = labels(tags.top(topN))
	p.TopAuthors, p.authors = labels(authors.top(topN))
	return p, nil
}

// Criteria is the catalog query built from the profile's top lists.
func (p *Profile) Criteria() domain.MatchCriteria {
	return domain.MatchCriteria{
		Categories: p.TopCategories,
		Tags:       p.TopTags,
		Authors:    p.TopAuthors,
	}
}

// windowed keeps in-window interactions, newest first, capped to limit.
func windowed(history []domain.Interaction, now time.Time, limit int) []domain.Interaction {
	since := now.Add(-domain.RetentionWindow)
	events := make([]domain.Interaction, 0, len(history))
	for _, ev := range history {
		if ev.Timestamp.Before(since) {
			continue
		}
		events = append(events, ev)
	}
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if bookID(a) != bookID(b) {
			return bookID(a) < bookID(b)
		}
		return a.Type > b.Type
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events
}

// cancelledBookmarks walks events oldest first and marks each bookmark_add
// that a later bookmark_remove for the same book undid. events is newest first.
func cancelledBookmarks(events []domain.Interaction) map[int]bool {
	cancelled := map[int]bool{}
	active := map[string][]int{}
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Book == nil {
			continue
		}
		id := ev.Book.BookID
		switch ev.Type {
		case domain.EventBookmarkAdd:
			active[id] = append(active[id], i)
		case domain.EventBookmarkRemove:
			stack := active[id]
			if len(stack) == 0 {
				continue
			}
			cancelled[stack[len(stack)-1]] = true
			active[id] = stack[:len(stack)-1]
		}
	}
	return cancelled
}

func engagementFor(count int) domain.EngagementLevel {
	switch {
	case count == 0:
		return domain.EngagementNew
	case count < 10:
		return domain.EngagementLight
	case count < 40:
		return domain.EngagementModerate
	default:
		return domain.EngagementHeavy
	}
}

func diversity(distinct, tagged int) int {
	if tagged == 0 {
		return 0
	}
	score := int(math.Round(100 * float64(distinct) / float64(tagged)))
	return min(score, 100)
}

func ageDays(at, now time.Time) float64 {
	d := now.Sub(at).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

func labels(entries []*tally) ([]string, map[string]string) {
	out := make([]string, 0, len(entries))
	lookup := make(map[string]string, len(entries))
	for _, e := range entries {
		out = append(out, e.label)
		lookup[e.key] = e.label
	}
	return out, lookup
}

func snapshotCategories(b *domain.BookSnapshot) []string {
	if len(b.Categories) == 0 {
		return []string{domain.DefaultCategory}
	}
	return b.Categories
}

func bookID(ev domain.Interaction) string {
	if ev.Book == nil {
		return ""
	}
	return ev.Book.BookID
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		k := normalizeKey(v)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

func keySet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if k := normalizeKey(v); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
