// Package retention deletes interactions older than the retention window.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
	"github.com/actuallystonmai/shelf-recommender/internal/metrics"
)

type Store interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Purger runs PurgeBefore on a fixed interval. It implements suture.Service.
type Purger struct {
	store    Store
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPurger(store Store, interval time.Duration, logger zerolog.Logger) *Purger {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Purger{
		store:    store,
		interval: interval,
		window:   domain.RetentionWindow,
		now:      time.Now,
		logger:   logger.With().Str("component", "retention").Logger(),
	}
}

// Serve purges once immediately, then on every tick until ctx is done.
// Store failures are logged and retried on the next tick.
func (p *Purger) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.PurgeOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PurgeOnce removes everything older than now minus the retention window
// and returns the number of deleted interactions.
func (p *Purger) PurgeOnce(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.window)
	n, err := p.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		p.logger.Warn().Err(err).Time("cutoff", cutoff).Msg("retention purge failed")
		return 0
	}
	metrics.InteractionsPurged.Add(float64(n))
	if n > 0 {
		p.logger.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("expired interactions purged")
	}
	return n
}

func (p *Purger) String() string {
	return "retention-purger"
}
