package news

import (
	"strings"
	"unicode"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

var defaultBullish = []string{
	"surge", "surges", "soar", "soars", "rally", "rallies", "gain", "gains", "jump", "jumps",
	"record", "high", "beat", "beats", "approve", "approved", "approval", "win", "wins", "won",
	"boost", "boosts", "rise", "rises", "climb", "climbs", "upgrade", "inflows", "breakthrough", "bullish",
}

var defaultBearish = []string{
	"crash", "crashes", "plunge", "plunges", "fall", "falls", "drop", "drops", "slump", "slumps",
	"low", "miss", "misses", "reject", "rejected", "ban", "bans", "lose", "loses", "lost",
	"cut", "cuts", "fear", "fears", "downgrade", "outflows", "lawsuit", "hack", "fades", "bearish",
}

// Labeler assigns a coarse sentiment label to a headline by counting lexicon
// hits. More bullish than bearish words is positive and vice versa.
type Labeler struct {
	bullish map[string]struct{}
	bearish map[string]struct{}
}

// NewLabeler builds a labeler from the default lexicon plus any extra words.
func NewLabeler(extraBullish, extraBearish []string) *Labeler {
	l := &Labeler{
		bullish: make(map[string]struct{}),
		bearish: make(map[string]struct{}),
	}
	for _, w := range append(append([]string{}, defaultBullish...), extraBullish...) {
		l.bullish[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range append(append([]string{}, defaultBearish...), extraBearish...) {
		l.bearish[strings.ToLower(w)] = struct{}{}
	}
	return l
}

// Label classifies a headline.
func (l *Labeler) Label(headline string) domain.SentimentLabel {
	net := 0
	words := strings.FieldsFunc(strings.ToLower(headline), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if _, ok := l.bullish[w]; ok {
			net++
		}
		if _, ok := l.bearish[w]; ok {
			net--
		}
	}
	switch {
	case net > 0:
		return domain.SentimentPositive
	case net < 0:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
