package kalshi

import (
	"strconv"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// KalshiEvent represents an event with nested markets as returned by
// GET /events?with_nested_markets=true.
type KalshiEvent struct {
	EventTicker  string         `json:"event_ticker"`
	SeriesTicker string         `json:"series_ticker"`
	Title        string         `json:"title"`
	SubTitle     string         `json:"sub_title"`
	Category     string         `json:"category"`
	Markets      []KalshiMarket `json:"markets"`
}

// KalshiMarket represents a market as returned by the Kalshi REST API.
// Prices are in cents (1-99).
type KalshiMarket struct {
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle"`
	YesSubTitle    string  `json:"yes_sub_title"`
	Status         string  `json:"status"` // "open", "active", "closed", "settled"
	YesBid         float64 `json:"yes_bid"`
	YesAsk         float64 `json:"yes_ask"`
	NoBid          float64 `json:"no_bid"`
	NoAsk          float64 `json:"no_ask"`
	LastPrice      float64 `json:"last_price"`
	Volume         int64   `json:"volume"`
	Volume24H      int64   `json:"volume_24h"`
	OpenInterest   int64   `json:"open_interest"`
	ExpirationTime string  `json:"expiration_time"`
	CloseTime      string  `json:"close_time"`
}

// KalshiEventsResponse is the paginated /events envelope.
type KalshiEventsResponse struct {
	Events []KalshiEvent `json:"events"`
	Cursor string        `json:"cursor"`
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// Conversion helpers
// --------------------------------------------------------------------------

// YesProbability returns the implied YES probability in [0, 1]. The last
// trade wins; otherwise the bid/ask midpoint; otherwise ok is false.
func (m *KalshiMarket) YesProbability() (p float64, ok bool) {
	switch {
	case m.LastPrice > 0:
		return m.LastPrice / 100, true
	case m.YesBid > 0 && m.YesAsk > 0:
		return (m.YesBid + m.YesAsk) / 200, true
	case m.YesAsk > 0:
		return m.YesAsk / 100, true
	default:
		return 0, false
	}
}

// ToDomainSubMarket converts a Kalshi market. A market with no usable price
// carries no outcome prices so the detector applies its defaults.
func (m *KalshiMarket) ToDomainSubMarket(eventTitle string) domain.SubMarket {
	question := m.Title
	if question == "" {
		question = eventTitle
		if m.YesSubTitle != "" {
			question += " " + m.YesSubTitle
		}
	}
	sm := domain.SubMarket{
		ID:       m.Ticker,
		Question: question,
		Slug:     m.Ticker,
		Volume:   float64(m.Volume),
		EndDate:  firstNonEmpty(m.CloseTime, m.ExpirationTime),
	}
	if yes, ok := m.YesProbability(); ok {
		sm.OutcomePrices = []string{formatProb(yes), formatProb(1 - yes)}
	}
	return sm
}

// ToDomainEvent converts a Kalshi event. Event volume is the sum of its
// markets' contract volume.
func (e *KalshiEvent) ToDomainEvent() domain.MarketEvent {
	ev := domain.MarketEvent{
		ID:       e.EventTicker,
		Title:    e.Title,
		Slug:     e.EventTicker,
		Category: e.Category,
		Platform: domain.PlatformKalshi,
	}
	for i := range e.Markets {
		m := &e.Markets[i]
		if m.Status == "closed" || m.Status == "settled" {
			continue
		}
		sm := m.ToDomainSubMarket(e.Title)
		ev.Volume += sm.Volume
		if ev.EndDate == "" || (sm.EndDate != "" && sm.EndDate > ev.EndDate) {
			ev.EndDate = sm.EndDate
		}
		ev.Markets = append(ev.Markets, sm)
	}
	return ev
}

func formatProb(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
