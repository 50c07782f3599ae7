package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or a numeric string. Gamma sends
// volume both ways depending on the endpoint.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIEvent represents an event as returned by the Polymarket Gamma API.
// An event groups one or more related markets.
type APIEvent struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Slug     string      `json:"slug"`
	Category string      `json:"category"`
	Active   flexBool    `json:"active"`
	Closed   bool        `json:"closed"`
	Volume   flexFloat   `json:"volume"`
	EndDate  string      `json:"endDate"`
	Tags     []APITag    `json:"tags"`
	Markets  []APIMarket `json:"markets"`
}

// APITag is a taxonomy label attached to an event.
type APITag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	ConditionID   string    `json:"conditionId"`
	Slug          string    `json:"slug"`
	Active        flexBool  `json:"active"`
	Closed        bool      `json:"closed"`
	Outcomes      string    `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string    `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	Volume        flexFloat `json:"volume"`
	VolumeNum     flexFloat `json:"volumeNum"`
	EndDate       string    `json:"endDate"`
}

// --------------------------------------------------------------------------
// Conversion helpers: API types -> domain types
// --------------------------------------------------------------------------

// ToDomainEvent converts an APIEvent to a domain.MarketEvent. Closed markets
// are dropped. When the event has no category the first tag label is used.
func (e *APIEvent) ToDomainEvent() domain.MarketEvent {
	ev := domain.MarketEvent{
		ID:       e.ID,
		Title:    e.Title,
		Slug:     e.Slug,
		Category: e.Category,
		Volume:   float64(e.Volume),
		EndDate:  e.EndDate,
		Platform: domain.PlatformPolymarket,
	}
	if ev.Category == "" && len(e.Tags) > 0 {
		ev.Category = e.Tags[0].Label
	}
	for i := range e.Markets {
		if e.Markets[i].Closed {
			continue
		}
		ev.Markets = append(ev.Markets, e.Markets[i].ToDomainSubMarket())
	}
	return ev
}

// ToDomainSubMarket converts a Gamma APIMarket to a domain.SubMarket.
func (m *APIMarket) ToDomainSubMarket() domain.SubMarket {
	vol := float64(m.VolumeNum)
	if vol == 0 {
		vol = float64(m.Volume)
	}
	return domain.SubMarket{
		ID:            m.ID,
		Question:      m.Question,
		Slug:          m.Slug,
		ConditionID:   m.ConditionID,
		OutcomePrices: decodeStringList(m.OutcomePrices),
		Volume:        vol,
		EndDate:       m.EndDate,
	}
}

// decodeStringList unpacks Gamma's JSON-in-a-string arrays. Malformed input
// yields nil and the detector falls back to its default prices.
func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
