package dislocation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultFreshnessMinutes is used when a publish time cannot be parsed.
const DefaultFreshnessMinutes = 60

var relativeForms = []struct {
	re  *regexp.Regexp
	mul int
}{
	{regexp.MustCompile(`(\d+)m`), 1},
	{regexp.MustCompile(`(\d+)h`), 60},
	{regexp.MustCompile(`(\d+)d`), 1440},
}

var absoluteLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FreshnessMinutes returns how many whole minutes ago publishedAt was,
// relative to now. Relative forms ("10m", "2h ago", "3d") are tried first.
// Timestamps in the future count as zero. Relative ages too large to
// represent fall back to DefaultFreshnessMinutes.
func FreshnessMinutes(publishedAt string, now time.Time) int {
	s := strings.TrimSpace(publishedAt)
	for _, form := range relativeForms {
		if m := form.re.FindStringSubmatch(s); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n > math.MaxInt/form.mul {
				break
			}
			return n * form.mul
		}
	}
	for _, layout := range absoluteLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		elapsed := now.Sub(t)
		if elapsed < 0 {
			return 0
		}
		return int(elapsed / time.Minute)
	}
	return DefaultFreshnessMinutes
}
