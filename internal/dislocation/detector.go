package dislocation

import (
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// Detector wires keyword correlation, scoring and ranking together.
type Detector struct {
	sim Similarity
}

// Option customises a Detector.
type Option func(*Detector)

// WithSimilarity swaps the keyword-overlap matcher for another implementation.
func WithSimilarity(sim Similarity) Option {
	return func(d *Detector) {
		if sim != nil {
			d.sim = sim
		}
	}
}

// NewDetector creates a detector using keyword overlap unless overridden.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{sim: KeywordOverlap{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect runs one full pass over the given headlines and markets. The result
// depends only on its arguments.
func (d *Detector) Detect(news []domain.NewsItem, events []domain.MarketEvent, now time.Time) domain.DislocationResult {
	index := BuildIndex(events)

	var signals []domain.DislocationSignal
	for _, item := range news {
		freshness := FreshnessMinutes(item.PublishedAt, now)
		newsSentiment := NewsSentiment(item.Sentiment)

		for _, c := range Correlate(d.sim, item, index, events) {
			yes, no := OutcomePrices(c.Market)
			marketSentiment := MarketSentiment(yes)
			scored, ok := Score(ScoreInput{
				NewsSentiment:    newsSentiment,
				MarketSentiment:  marketSentiment,
				FreshnessMinutes: freshness,
				EventVolume:      c.Event.Volume,
				Confidence:       c.Confidence,
			})
			if !ok {
				continue
			}
			signals = append(signals, domain.DislocationSignal{
				ID:        "dsl-" + item.ID + "-" + c.Market.ID,
				Score:     scored.Score,
				Direction: scored.Direction,
				News: domain.SignalNews{
					ID:               item.ID,
					Title:            item.Title,
					Source:           item.Source,
					URL:              item.URL,
					Sentiment:        newsSentiment,
					SentimentLabel:   item.Sentiment.Normalize(),
					PublishedAt:      item.PublishedAt,
					FreshnessMinutes: freshness,
				},
				Market: domain.SignalMarket{
					ID:              c.Market.ID,
					EventID:         c.Event.ID,
					Title:           firstNonEmpty(c.Market.Question, c.Event.Title),
					EventTitle:      c.Event.Title,
					Slug:            firstNonEmpty(c.Market.Slug, c.Event.Slug),
					ConditionID:     c.Market.ConditionID,
					Platform:        c.Event.Platform,
					Category:        c.Category,
					YesPrice:        yes,
					NoPrice:         no,
					MarketSentiment: marketSentiment,
					Volume:          c.Market.Volume,
					EventVolume:     c.Event.Volume,
					EndDate:         firstNonEmpty(c.Market.EndDate, c.Event.EndDate),
				},
				Narrative:             Narrative(item.Source, newsSentiment, scored.Direction, yes),
				Conviction:            scored.Conviction,
				ActionableWindow:      ActionableWindow(c.Event.Volume, freshness),
				MatchedKeywords:       c.Matched,
				CorrelationConfidence: c.Confidence,
			})
		}
	}

	return Assemble(Rank(signals), len(news), len(events), now)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
