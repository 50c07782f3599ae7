// Package news collects headlines from JSON APIs and RSS feeds and merges
// them into one list for the detector.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// Source is a named news source.
type Source interface {
	domain.NewsSource
	Name() string
}

// Aggregator fans out to every source concurrently and merges the results in
// source order. A failing source is logged and skipped.
type Aggregator struct {
	sources  []Source
	maxItems int
	logger   *slog.Logger
}

var _ domain.NewsSource = (*Aggregator)(nil)

// NewAggregator creates an aggregator. maxItems <= 0 means no cap.
func NewAggregator(sources []Source, maxItems int, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		sources:  sources,
		maxItems: maxItems,
		logger:   logger.With(slog.String("component", "news_aggregator")),
	}
}

// FetchNews returns the deduplicated union of all sources. It only fails when
// there are no sources or every source failed.
func (a *Aggregator) FetchNews(ctx context.Context) ([]domain.NewsItem, error) {
	if len(a.sources) == 0 {
		return nil, fmt.Errorf("news: fetch: %w", domain.ErrNoSources)
	}

	results := make([][]domain.NewsItem, len(a.sources))
	errs := make([]error, len(a.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			items, err := src.FetchNews(gctx)
			if err != nil {
				errs[i] = err
				a.logger.Warn("news source failed",
					slog.String("source", src.Name()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(a.sources) {
		return nil, fmt.Errorf("news: all sources failed: %w", errors.Join(errs...))
	}

	seen := make(map[string]struct{})
	var out []domain.NewsItem
	for _, items := range results {
		for _, it := range items {
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			out = append(out, it)
			if a.maxItems > 0 && len(out) == a.maxItems {
				return out, nil
			}
		}
	}

	a.logger.Debug("news fetched",
		slog.Int("items", len(out)),
		slog.Int("sources", len(a.sources)),
		slog.Int("failed", failed),
	)
	return out, nil
}
