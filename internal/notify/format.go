package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// FormatSignal renders a dislocation signal as an alert title and body.
func FormatSignal(sig domain.DislocationSignal) (title, message string) {
	title = fmt.Sprintf("%s %s (score %d)", sig.Conviction, sig.Direction, sig.Score)

	var b strings.Builder
	fmt.Fprintf(&b, "Market: %s\n", sig.Market.Title)
	fmt.Fprintf(&b, "YES %.0f%% | volume $%.0f", sig.Market.YesPrice*100, sig.Market.Volume)
	if sig.Market.Platform != "" {
		fmt.Fprintf(&b, " | %s", sig.Market.Platform)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "News: %s (%s, %dm ago)\n", sig.News.Title, sig.News.Source, sig.News.FreshnessMinutes)
	if sig.News.URL != "" {
		fmt.Fprintf(&b, "%s\n", sig.News.URL)
	}
	fmt.Fprintf(&b, "%s\n", sig.Narrative)
	fmt.Fprintf(&b, "Window: %s", sig.ActionableWindow)
	return title, b.String()
}

// FormatScanFailure renders a failed scan or failed source as an alert.
func FormatScanFailure(runID string, errs []string) (title, message string) {
	title = "Dislocation scan degraded"
	if runID != "" {
		title += " (" + runID + ")"
	}
	return title, strings.Join(errs, "\n")
}
