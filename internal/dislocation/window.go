package dislocation

import (
	"fmt"
	"math"
)

// ActionableWindow estimates how long the gap is likely to stay open. Liquid
// events reprice faster, so they get shorter windows.
func ActionableWindow(eventVolume float64, freshnessMinutes int) string {
	base := 120
	switch {
	case eventVolume > 5_000_000:
		base = 30
	case eventVolume > 1_000_000:
		base = 60
	}
	remaining := max(5, base-freshnessMinutes)
	switch {
	case remaining < 30:
		return fmt.Sprintf("~%d minutes", remaining)
	case remaining < 120:
		return fmt.Sprintf("~%d minutes", int(math.Round(float64(remaining)/30))*30)
	default:
		return fmt.Sprintf("~%d hours", int(math.Round(float64(remaining)/60)))
	}
}
