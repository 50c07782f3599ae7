package dislocation

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// Narrative renders the one-paragraph explanation attached to a signal.
func Narrative(source string, newsSentiment float64, dir domain.Direction, yesPrice float64) string {
	adjective := "neutral"
	switch {
	case newsSentiment > 0.3:
		adjective = "bullish"
	case newsSentiment < -0.3:
		adjective = "bearish"
	}
	gap, move := "overpricing", "down"
	if dir == domain.BullishGap {
		gap, move = "underpricing", "up"
	}
	return fmt.Sprintf(
		"%s is reporting %s news, but the market is %s this outcome at %d%% YES. Expect the price to move %s as traders absorb the headline.",
		source, adjective, gap, int(math.Round(yesPrice*100)), move,
	)
}
