package domain

import (
	"encoding/json"
	"time"
)

// Category is the topical bucket a market falls into. It is informational
// only and never gates correlation.
type Category string

const (
	CategoryCrypto   Category = "crypto"
	CategoryPolitics Category = "politics"
	CategoryEconomy  Category = "economy"
	CategoryTech     Category = "tech"
	CategorySports   Category = "sports"
	CategoryGeneral  Category = "general"
)

// Direction says which way the market is mispriced relative to the news.
type Direction string

const (
	// BullishGap: news is more positive than the market price implies.
	BullishGap Direction = "BULLISH_GAP"
	// BearishGap: news is less positive than (or equal to) the market.
	BearishGap Direction = "BEARISH_GAP"
)

// Conviction buckets a dislocation score.
type Conviction string

const (
	ConvictionHigh   Conviction = "HIGH"
	ConvictionMedium Conviction = "MEDIUM"
	ConvictionLow    Conviction = "LOW"
)

// MarketMatcher is one searchable index record per sub-market.
type MarketMatcher struct {
	MarketID    string
	MarketTitle string
	Keywords    []string
	Category    Category
}

// SignalNews is the news side of a dislocation signal.
type SignalNews struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Source           string         `json:"source"`
	URL              string         `json:"url,omitempty"`
	Sentiment        float64        `json:"sentiment"`
	SentimentLabel   SentimentLabel `json:"sentimentLabel"`
	PublishedAt      string         `json:"publishedAt"`
	FreshnessMinutes int            `json:"freshnessMinutes"`
}

// SignalMarket is the market side of a dislocation signal.
type SignalMarket struct {
	ID              string   `json:"id"`
	EventID         string   `json:"eventId"`
	Title           string   `json:"title"`
	EventTitle      string   `json:"eventTitle"`
	Slug            string   `json:"slug,omitempty"`
	ConditionID     string   `json:"conditionId,omitempty"`
	Platform        Platform `json:"platform,omitempty"`
	Category        Category `json:"category"`
	YesPrice        float64  `json:"yesPrice"`
	NoPrice         float64  `json:"noPrice"`
	MarketSentiment float64  `json:"marketSentiment"`
	Volume          float64  `json:"volume"`
	EventVolume     float64  `json:"eventVolume"`
	EndDate         string   `json:"endDate,omitempty"`
}

// DislocationSignal is one ranked news/market mismatch.
type DislocationSignal struct {
	ID                    string       `json:"id"`
	Score                 int          `json:"score"`
	Direction             Direction    `json:"direction"`
	News                  SignalNews   `json:"newsItem"`
	Market                SignalMarket `json:"market"`
	Narrative             string       `json:"narrative"`
	Conviction            Conviction   `json:"conviction"`
	ActionableWindow      string       `json:"actionableWindow"`
	MatchedKeywords       []string     `json:"matchedKeywords"`
	CorrelationConfidence float64      `json:"correlationConfidence"`
}

// DislocationMeta summarises a detection run.
type DislocationMeta struct {
	GeneratedAt         time.Time `json:"generatedAt"`
	NewsSourcesScanned  int       `json:"newsSourcesScanned"`
	MarketsScanned      int       `json:"marketsScanned"`
	SignalCount         int       `json:"signalCount"`
	AvgDislocationScore float64   `json:"avgDislocationScore"`
}

// DislocationResult is the output of one detection run.
type DislocationResult struct {
	Signals []DislocationSignal `json:"signals"`
	Meta    DislocationMeta     `json:"meta"`
}

// MarshalJSON always renders signals as an array, never null.
func (r DislocationResult) MarshalJSON() ([]byte, error) {
	type alias DislocationResult
	out := alias(r)
	if out.Signals == nil {
		out.Signals = []DislocationSignal{}
	}
	return json.Marshal(out)
}

// HighConviction returns the subset of signals rated HIGH.
func (r DislocationResult) HighConviction() []DislocationSignal {
	var out []DislocationSignal
	for _, s := range r.Signals {
		if s.Conviction == ConvictionHigh {
			out = append(out, s)
		}
	}
	return out
}

// DislocationRun is a persisted detection run.
type DislocationRun struct {
	ID           string            `json:"id"`
	StartedAt    time.Time         `json:"startedAt"`
	Duration     time.Duration     `json:"durationNs"`
	SourceErrors []string          `json:"sourceErrors,omitempty"`
	SnapshotPath string            `json:"snapshotPath,omitempty"`
	Result       DislocationResult `json:"result"`
}

// ScanSnapshot bundles a run's inputs and output so it can be replayed.
type ScanSnapshot struct {
	RunID  string            `json:"runId"`
	Now    time.Time         `json:"now"`
	News   []NewsItem        `json:"news"`
	Events []MarketEvent     `json:"events"`
	Result DislocationResult `json:"result"`
}

// ScanStatus is a summary of the scanner's current operational state.
type ScanStatus struct {
	Mode          string    `json:"mode"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
	LastRunID     string    `json:"lastRunId,omitempty"`
	LastRunAt     time.Time `json:"lastRunAt,omitzero"`
	LastSignals   int       `json:"lastSignalCount"`
	TotalRuns     int64     `json:"totalRuns"`
	WSClients     int       `json:"wsClients"`
}
