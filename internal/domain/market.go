package domain

import "context"

// Platform identifies the venue a market event was pulled from.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
)

// MarketEvent groups one or more binary sub-markets under a single question
// family (e.g. "Bitcoin price end of year" with one market per strike).
type MarketEvent struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Slug     string      `json:"slug,omitempty"`
	Category string      `json:"category,omitempty"`
	Volume   float64     `json:"volume"`
	EndDate  string      `json:"endDate,omitempty"`
	Platform Platform    `json:"platform,omitempty"`
	Markets  []SubMarket `json:"markets"`
}

// SubMarket is a single YES/NO market inside an event. OutcomePrices holds
// the YES and NO implied probabilities as numeric strings, in that order.
type SubMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Slug          string   `json:"slug,omitempty"`
	ConditionID   string   `json:"conditionId,omitempty"`
	OutcomePrices []string `json:"outcomePrices"`
	Volume        float64  `json:"volume"`
	EndDate       string   `json:"endDate,omitempty"`
}

// HasMarket reports whether the event owns a sub-market with the given id.
func (e MarketEvent) HasMarket(id string) (SubMarket, bool) {
	for _, m := range e.Markets {
		if m.ID == id {
			return m, true
		}
	}
	return SubMarket{}, false
}

// MarketSource returns the current set of open market events.
type MarketSource interface {
	FetchEvents(ctx context.Context) ([]MarketEvent, error)
}
