// Package platform merges prediction-market venues into one market source.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// Venue is a named market source such as Polymarket or Kalshi.
type Venue interface {
	domain.MarketSource
	Name() string
}

// MultiSource queries every venue concurrently and concatenates the events
// in venue order. Each venue has its own client-side rate limit.
type MultiSource struct {
	venues   []Venue
	limiters []*rate.Limiter
	logger   *slog.Logger
}

var _ domain.MarketSource = (*MultiSource)(nil)

// NewMultiSource creates a merged source. ratePerSecond <= 0 disables the
// limit.
func NewMultiSource(venues []Venue, ratePerSecond float64, logger *slog.Logger) *MultiSource {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	limiters := make([]*rate.Limiter, len(venues))
	for i := range venues {
		limiters[i] = rate.NewLimiter(limit, 1)
	}
	return &MultiSource{
		venues:   venues,
		limiters: limiters,
		logger:   logger.With(slog.String("component", "market_source")),
	}
}

// FetchEvents returns the union of all venues. It fails only when there are no
// venues or all of them failed.
func (m *MultiSource) FetchEvents(ctx context.Context) ([]domain.MarketEvent, error) {
	if len(m.venues) == 0 {
		return nil, fmt.Errorf("platform: fetch events: %w", domain.ErrNoSources)
	}

	results := make([][]domain.MarketEvent, len(m.venues))
	errs := make([]error, len(m.venues))

	g, gctx := errgroup.WithContext(ctx)
	for i, v := range m.venues {
		g.Go(func() error {
			if err := m.limiters[i].Wait(gctx); err != nil {
				errs[i] = err
				return nil
			}
			events, err := v.FetchEvents(gctx)
			if err != nil {
				errs[i] = err
				m.logger.Warn("market venue failed",
					slog.String("venue", v.Name()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = events
			return nil
		})
	}
	_ = g.Wait()

	var out []domain.MarketEvent
	failed := 0
	for i := range m.venues {
		if errs[i] != nil {
			failed++
			continue
		}
		out = append(out, results[i]...)
	}
	if failed == len(m.venues) {
		return nil, fmt.Errorf("platform: all venues failed: %w", errors.Join(errs...))
	}
	return out, nil
}
