package domain

import (
	"context"
	"strings"
)

// SentimentLabel is the qualitative sentiment a news provider attaches to a
// headline.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentBullish  SentimentLabel = "BULLISH"
	SentimentBearish  SentimentLabel = "BEARISH"
)

// Normalize folds provider-specific spellings onto the canonical labels.
// Unknown values become neutral.
func (s SentimentLabel) Normalize() SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	case "bullish":
		return SentimentBullish
	case "bearish":
		return SentimentBearish
	default:
		return SentimentNeutral
	}
}

// NewsItem is a single headline as delivered by a news source. PublishedAt is
// kept as the provider sent it: either a relative string ("2h ago") or an
// absolute timestamp.
type NewsItem struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Source      string         `json:"source"`
	URL         string         `json:"url,omitempty"`
	PublishedAt string         `json:"publishedAt"`
	Sentiment   SentimentLabel `json:"sentiment"`
}

// NewsSource returns the current batch of headlines.
type NewsSource interface {
	FetchNews(ctx context.Context) ([]NewsItem, error)
}
