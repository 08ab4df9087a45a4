// Package breaker puts a circuit breaker in front of the interaction and
// catalog stores. While a breaker is open, calls fail immediately with a
// store error instead of waiting on a dead backend. Nothing is retried.
package breaker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/actuallystonmai/shelf-recommender/internal/domain"
	"github.com/actuallystonmai/shelf-recommender/internal/metrics"
)

type Settings struct {
	MaxRequests         uint32        `koanf:"max_requests" validate:"min=1"`
	Interval            time.Duration `koanf:"interval"`
	Timeout             time.Duration `koanf:"timeout" validate:"min=0"`
	ConsecutiveFailures uint32        `koanf:"consecutive_failures" validate:"min=1"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxRequests:         3,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

type Breaker struct {
	name   string
	cb     *gobreaker.CircuitBreaker[any]
	logger zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(name string, s Settings, logger zerolog.Logger) *Breaker {
	b := &Breaker{
		name:   name,
		logger: logger.With().Str("component", "breaker").Str("breaker", name).Logger(),
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return b
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// isSuccessful decides what counts against the breaker. Misses and callers
// giving up are not backend failures.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrBookNotFound) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, context.Canceled)
}

func execute[T any](b *Breaker, op string, fn func() (T, error)) (T, error) {
	var zero T
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			return zero, domain.NewStoreError(b.name, op, err)
		}
		if !isSuccessful(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return zero, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	if res == nil {
		return zero, nil
	}
	return res.(T), nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
