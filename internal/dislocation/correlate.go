package dislocation

import "github.com/alanyoungcy/newsgap/internal/domain"

// MinCorrelation is the lowest confidence at which a news/market pair is kept.
const MinCorrelation = 0.3

// Similarity scores how strongly two keyword sets refer to the same thing.
// Confidence must be in [0, 1].
type Similarity interface {
	Similarity(newsKeywords, marketKeywords []string) (confidence float64, matched []string)
}

// KeywordOverlap is the shared-token ratio against the larger of the two sets.
type KeywordOverlap struct{}

var _ Similarity = KeywordOverlap{}

// Similarity returns |news ∩ market| / max(|news|, |market|) and the shared
// tokens in news order. Two empty sets have zero confidence.
func (KeywordOverlap) Similarity(newsKeywords, marketKeywords []string) (float64, []string) {
	denom := max(len(newsKeywords), len(marketKeywords))
	if denom == 0 {
		return 0, []string{}
	}
	set := make(map[string]struct{}, len(marketKeywords))
	for _, kw := range marketKeywords {
		set[kw] = struct{}{}
	}
	matched := []string{}
	seen := make(map[string]struct{}, len(newsKeywords))
	for _, kw := range newsKeywords {
		if _, ok := set[kw]; !ok {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		matched = append(matched, kw)
	}
	return float64(len(matched)) / float64(denom), matched
}

// Candidate is a news item correlated with one sub-market.
type Candidate struct {
	Event      domain.MarketEvent
	Market     domain.SubMarket
	Category   domain.Category
	Confidence float64
	Matched    []string
}

// Correlate returns every matcher whose similarity to the headline reaches
// MinCorrelation, paired with the event that owns it.
func Correlate(sim Similarity, news domain.NewsItem, index []domain.MarketMatcher, events []domain.MarketEvent) []Candidate {
	newsKW := ExtractKeywords(news.Title)
	var out []Candidate
	for _, mm := range index {
		conf, matched := sim.Similarity(newsKW, mm.Keywords)
		if conf < MinCorrelation {
			continue
		}
		ev, sub, ok := ownerOf(events, mm.MarketID)
		if !ok {
			continue
		}
		out = append(out, Candidate{Event: ev, Market: sub, Category: mm.Category, Confidence: conf, Matched: matched})
	}
	return out
}

func ownerOf(events []domain.MarketEvent, marketID string) (domain.MarketEvent, domain.SubMarket, bool) {
	for _, ev := range events {
		if sub, ok := ev.HasMarket(marketID); ok {
			return ev, sub, true
		}
	}
	return domain.MarketEvent{}, domain.SubMarket{}, false
}
