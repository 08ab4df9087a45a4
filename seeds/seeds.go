// Package seeds generates a deterministic demo catalog and interaction log
// and loads it into an empty store.
package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
)

const (
	readerCount      = 30
	interactionCount = 600
	historyDays      = 120
)

// Store is implemented by both repository backends.
type Store interface {
	CountBooks(ctx context.Context) (int, error)
	InsertBooks(ctx context.Context, books []domain.Book) error
	Append(ctx context.Context, ev domain.Interaction) error
}

type title struct {
	name, author string
	tags         []string
}

var catalog = map[string][]title{
	"Science Fiction": {
		{"Dune", "Frank Herbert", []string{"space", "politics", "classic"}},
		{"The Left Hand of Darkness", "Ursula K. Le Guin", []string{"space", "gender"}},
		{"The Dispossessed", "Ursula K. Le Guin", []string{"space", "politics"}},
		{"Neuromancer", "William Gibson", []string{"cyberpunk", "classic"}},
		{"Hyperion", "Dan Simmons", []string{"space", "pilgrimage"}},
		{"Kindred", "Octavia E. Butler", []string{"time travel", "history"}},
		{"Parable of the Sower", "Octavia E. Butler", []string{"dystopia", "climate"}},
	},
	"Fantasy": {
		{"A Wizard of Earthsea", "Ursula K. Le Guin", []string{"magic", "coming of age"}},
		{"The Hobbit", "J.R.R. Tolkien", []string{"quest", "classic"}},
		{"Piranesi", "Susanna Clarke", []string{"mystery", "labyrinth"}},
		{"Jonathan Strange & Mr Norrell", "Susanna Clarke", []string{"magic", "history"}},
		{"The Name of the Wind", "Patrick Rothfuss", []string{"magic", "music"}},
		{"Uprooted", "Naomi Novik", []string{"magic", "folklore"}},
	},
	"History": {
		{"The Guns of August", "Barbara W. Tuchman", []string{"war", "europe"}},
		{"A Distant Mirror", "Barbara W. Tuchman", []string{"medieval", "europe"}},
		{"SPQR", "Mary Beard", []string{"rome", "ancient"}},
		{"The Silk Roads", "Peter Frankopan", []string{"trade", "asia"}},
		{"Guns, Germs, and Steel", "Jared Diamond", []string{"civilization", "classic"}},
	},
	"Mystery": {
		{"The Murder of Roger Ackroyd", "Agatha Christie", []string{"detective", "classic"}},
		{"And Then There Were None", "Agatha Christie", []string{"island", "classic"}},
		{"The Big Sleep", "Raymond Chandler", []string{"noir", "detective"}},
		{"In the Woods", "Tana French", []string{"detective", "ireland"}},
		{"The Name of the Rose", "Umberto Eco", []string{"medieval", "detective"}},
	},
	"Poetry": {
		{"Leaves of Grass", "Walt Whitman", []string{"america", "classic"}},
		{"Ariel", "Sylvia Plath", []string{"confessional"}},
		{"The Wild Iris", "Louise Gluck", []string{"nature"}},
		{"Devotions", "Mary Oliver", []string{"nature", "collection"}},
	},
	"Biography": {
		{"Steve Jobs", "Walter Isaacson", []string{"technology", "business"}},
		{"Einstein: His Life and Universe", "Walter Isaacson", []string{"science", "physics"}},
		{"The Immortal Life of Henrietta Lacks", "Rebecca Skloot", []string{"science", "medicine"}},
		{"Educated", "Tara Westover", []string{"memoir", "education"}},
	},
	"Cooking": {
		{"Salt, Fat, Acid, Heat", "Samin Nosrat", []string{"technique"}},
		{"The Food Lab", "J. Kenji Lopez-Alt", []string{"technique", "science"}},
		{"Jerusalem", "Yotam Ottolenghi", []string{"middle east", "vegetables"}},
	},
}

var categoryOrder = []string{"Science Fiction", "Fantasy", "History", "Mystery", "Poetry", "Biography", "Cooking"}

var (
	statuses       = []string{string(domain.StatusAvailable), string(domain.StatusCheckedOut), string(domain.StatusReserved), string(domain.StatusMaintenance), string(domain.StatusLost)}
	statusWeights  = []float64{0.72, 0.14, 0.08, 0.04, 0.02}
	formats        = []string{"hardcover", "paperback", "ebook", "audiobook"}
	eventTypes     = []string{string(domain.EventView), string(domain.EventSearch), string(domain.EventBookmarkAdd), string(domain.EventBookmarkRemove), string(domain.EventBorrow), string(domain.EventReturn)}
	eventWeights   = []float64{0.5, 0.1, 0.12, 0.03, 0.18, 0.07}
	searchPrefixes = []string{"books like", "best", "new", "classic"}
)

// Setup seeds store when it has no books. It is a no-op otherwise.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Setup(ctx context.Context, store Store, now time.Time, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "seed").Logger()

	count, err := store.CountBooks(ctx)
	if err != nil {
		return fmt.Errorf("check books count: %w", err)
	}
	if count > 0 {
		logger.Info().Int("books", count).Msg("database already seeded, skipping")
		return nil
	}

	rng := rand.New(rand.NewSource(42))

	books := Books(rng)
	logger.Info().Int("books", len(books)).Msg("inserting books")
	if err := store.InsertBooks(ctx, books); err != nil {
		return fmt.Errorf("seed books: %w", err)
	}

	events := Interactions(rng, books, now)
	logger.Info().Int("interactions", len(events)).Msg("inserting interactions")
	for _, ev := range events {
		if err := store.Append(ctx, ev); err != nil {
			return fmt.Errorf("seed interactions: %w", err)
		}
	}

	logger.Info().Msg("seeding complete")
	return nil
}

// Books returns the demo catalog. IDs are 24-digit hex so they are valid
// object ids for the Mongo backend as well.
func Books(rng *rand.Rand) []domain.Book {
	var books []domain.Book
	for _, category := range categoryOrder {
		for _, t := range catalog[category] {
			n := len(books) + 1
			books = append(books, domain.Book{
				ID:              fmt.Sprintf("%024x", n),
				Slug:            slugify(t.name),
				Title:           t.name,
				Author:          t.author,
				Publisher:       "Shelf Demo Press",
				Year:            1950 + rng.Intn(75),
				Format:          formats[rng.Intn(len(formats))],
				Categories:      []string{category},
				Tags:            append([]string(nil), t.tags...),
				Status:          domain.BookStatus(weightedChoice(rng, statuses, statusWeights)),
				PopularityScore: math.Round(powerLawScore(rng) * 200),
			})
		}
	}
	return books
}

// Interactions generates a skewed event log: a few heavy readers, many
// light ones, each leaning toward one favourite category. Some events fall
// outside the retention window so the purge has work to do.
func Interactions(rng *rand.Rand, books []domain.Book, now time.Time) []domain.Interaction {
	byCategory := make(map[string][]domain.Book)
	for _, b := range books {
		byCategory[b.Categories[0]] = append(byCategory[b.Categories[0]], b)
	}

	events := make([]domain.Interaction, 0, interactionCount)
	for range interactionCount {
		reader := int(math.Ceil(math.Pow(rng.Float64(), 1.8) * readerCount))
		reader = max(1, min(reader, readerCount))
		userID := fmt.Sprintf("reader-%02d", reader)

		ev := domain.Interaction{
			UserID:    userID,
			Type:      domain.EventType(weightedChoice(rng, eventTypes, eventWeights)),
			Timestamp: now.Add(-time.Duration(rng.Float64() * historyDays * float64(24*time.Hour))).UTC(),
		}

		favourite := categoryOrder[reader%len(categoryOrder)]
		pool := books
		if rng.Float64() < 0.7 {
			pool = byCategory[favourite]
		}
		b := pool[rng.Intn(len(pool))]

		if ev.Type == domain.EventSearch {
			ev.Search = &domain.SearchPayload{
				Query:   searchPrefixes[rng.Intn(len(searchPrefixes))] + " " + strings.ToLower(favourite),
				Filters: map[string]string{"category": favourite},
			}
		} else {
			ev.Book = domain.SnapshotOf(b)
		}
		events = append(events, ev)
	}
	return events
}

func slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case !dash && sb.Len() > 0:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

func powerLawScore(rng *rand.Rand) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.001
	}
	raw := math.Pow(u, 2.0)
	if raw < 0.01 {
		raw = 0.01
	}
	return math.Round(raw*100) / 100
}

func weightedChoice(rng *rand.Rand, choices []string, weights []float64) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return choices[i]
		}
	}
	return choices[len(choices)-1]
}
