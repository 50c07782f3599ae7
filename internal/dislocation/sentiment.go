package dislocation

import (
	"strconv"
	"strings"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

const (
	newsSentimentMagnitude = 0.6
	defaultPrice           = 0.5
)

// NewsSentiment maps a headline label onto the shared [-1, 1] scale.
func NewsSentiment(label domain.SentimentLabel) float64 {
	switch label.Normalize() {
	case domain.SentimentPositive, domain.SentimentBullish:
		return newsSentimentMagnitude
	case domain.SentimentNegative, domain.SentimentBearish:
		return -newsSentimentMagnitude
	default:
		return 0
	}
}

// OutcomePrices returns the YES and NO prices of a sub-market, defaulting
// each missing or malformed value to 0.5.
func OutcomePrices(m domain.SubMarket) (yes, no float64) {
	return priceAt(m.OutcomePrices, 0), priceAt(m.OutcomePrices, 1)
}

func priceAt(prices []string, i int) float64 {
	if i >= len(prices) {
		return defaultPrice
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(prices[i]), 64)
	if err != nil {
		return defaultPrice
	}
	return v
}

// MarketSentiment rescales a YES probability so that 1.0 maps to +1 and 0
// maps to -1.
func MarketSentiment(yesPrice float64) float64 {
	return (yesPrice - 0.5) * 2
}
