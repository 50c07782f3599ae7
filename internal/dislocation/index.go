package dislocation

import "github.com/alanyoungcy/newsgap/internal/domain"

// BuildIndex flattens every sub-market of every event into a matcher record.
func BuildIndex(events []domain.MarketEvent) []domain.MarketMatcher {
	var index []domain.MarketMatcher
	for _, ev := range events {
		for _, m := range ev.Markets {
			text := m.Question
			if text == "" {
				text = ev.Title
			}
			index = append(index, domain.MarketMatcher{
				MarketID:    m.ID,
				MarketTitle: text,
				Keywords:    ExtractKeywords(text),
				Category:    DetectCategory(ev.Category + " " + m.Question),
			})
		}
	}
	return index
}
