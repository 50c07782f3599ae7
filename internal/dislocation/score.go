package dislocation

import (
	"math"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

const (
	// ScoreFloor drops noise before ranking.
	ScoreFloor = 10
	// DislocationThreshold is the minimum score of a published signal.
	DislocationThreshold = 25

	highVolume          = 1_000_000
	highVolumeWeight    = 1.5
	minFreshnessWeight  = 0.2
	freshnessDecayPerHr = 0.1
	scoreScale          = 50
	maxScore            = 100
	highConvictionScore = 60
	midConvictionScore  = 40
)

// ScoreInput carries the factors combined into a dislocation score.
type ScoreInput struct {
	NewsSentiment    float64
	MarketSentiment  float64
	FreshnessMinutes int
	EventVolume      float64
	Confidence       float64
}

// Scored is the scorer's verdict for one pair.
type Scored struct {
	Score      int
	Direction  domain.Direction
	Conviction domain.Conviction
}

// Score grades a correlated pair on a 0-100 scale. The second return value is
// false when the score falls under ScoreFloor.
func Score(in ScoreInput) (Scored, bool) {
	raw := math.Abs(in.NewsSentiment - in.MarketSentiment)
	age := math.Max(0, float64(in.FreshnessMinutes))
	freshness := math.Max(minFreshnessWeight, 1-age*freshnessDecayPerHr/60)
	volume := 1.0
	if in.EventVolume > highVolume {
		volume = highVolumeWeight
	}
	score := int(math.Round(math.Min(maxScore, raw*scoreScale*freshness*volume*(1+in.Confidence))))
	if score < ScoreFloor {
		return Scored{}, false
	}
	dir := domain.BearishGap
	if in.NewsSentiment > in.MarketSentiment {
		dir = domain.BullishGap
	}
	return Scored{Score: score, Direction: dir, Conviction: ConvictionFor(score)}, true
}

// ConvictionFor buckets a score.
func ConvictionFor(score int) domain.Conviction {
	switch {
	case score >= highConvictionScore:
		return domain.ConvictionHigh
	case score >= midConvictionScore:
		return domain.ConvictionMedium
	default:
		return domain.ConvictionLow
	}
}
