package dislocation

import (
	"cmp"
	"slices"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// MaxSignals caps the number of signals returned by a run.
const MaxSignals = 10

// Rank keeps signals at or above DislocationThreshold, orders them by score
// (desc), freshness (asc) and confidence (desc), and truncates to MaxSignals.
func Rank(signals []domain.DislocationSignal) []domain.DislocationSignal {
	kept := make([]domain.DislocationSignal, 0, len(signals))
	for _, s := range signals {
		if s.Score >= DislocationThreshold {
			kept = append(kept, s)
		}
	}
	slices.SortStableFunc(kept, func(a, b domain.DislocationSignal) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.News.FreshnessMinutes, b.News.FreshnessMinutes); c != 0 {
			return c
		}
		return cmp.Compare(b.CorrelationConfidence, a.CorrelationConfidence)
	})
	if len(kept) > MaxSignals {
		kept = kept[:MaxSignals]
	}
	return kept
}

// Assemble packages ranked signals with run metadata. Scan counts describe
// the inputs; signal count and average describe the returned slice.
func Assemble(signals []domain.DislocationSignal, newsScanned, marketsScanned int, now time.Time) domain.DislocationResult {
	avg := 0.0
	if len(signals) > 0 {
		total := 0
		for _, s := range signals {
			total += s.Score
		}
		avg = float64(total) / float64(len(signals))
	}
	return domain.DislocationResult{
		Signals: signals,
		Meta: domain.DislocationMeta{
			GeneratedAt:         now,
			NewsSourcesScanned:  newsScanned,
			MarketsScanned:      marketsScanned,
			SignalCount:         len(signals),
			AvgDislocationScore: avg,
		},
	}
}
