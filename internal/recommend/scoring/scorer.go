// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package scoring

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/finrec/internal/metrics"
	"github.com/tomtom215/finrec/internal/recommend"
)

// Scorer is a learned correction to the rule score. Implementations are
// loaded once and used read-only from many goroutines.
type Scorer interface {
	Predict(ctx context.Context, p *recommend.UserProfile, prod *recommend.ProductDefinition) (float64, error)
}

// BreakerScorer guards a Scorer with a circuit breaker so a failing model is
// bypassed instead of being called for every candidate.
type BreakerScorer struct {
	inner   Scorer
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[float64]
}

// breakerOpenTimeout is how long an open breaker waits before probing.
const breakerOpenTimeout = 30 * time.Second

var _ Scorer = (*BreakerScorer)(nil)

// NewBreakerScorer wraps inner. Each prediction is bounded by timeout; zero
// leaves it unbounded. The circuit opens after 20 requests with at least half
// failing.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBreakerScorer(inner Scorer, timeout time.Duration, logger zerolog.Logger) *BreakerScorer {
	const name = "scorer"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[float64](gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Scorer circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to))
		},
	})
	return &BreakerScorer{inner: inner, timeout: timeout, cb: cb}
}

// Predict implements Scorer.
func (b *BreakerScorer) Predict(ctx context.Context, p *recommend.UserProfile, prod *recommend.ProductDefinition) (float64, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	return b.cb.Execute(func() (float64, error) {
		return b.inner.Predict(ctx, p, prod)
	})
}

// State returns the breaker state.
func (b *BreakerScorer) State() gobreaker.State {
	return b.cb.State()
}
