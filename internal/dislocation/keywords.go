// Package dislocation detects gaps between headline sentiment and the
// probability a prediction market is pricing. Everything here is pure: the
// only time input is the now value handed to Detect.
package dislocation

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxKeywords bounds the number of tokens kept per text.
const MaxKeywords = 10

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "will": {}, "be": {},
	"to": {}, "in": {}, "on": {}, "at": {}, "by": {}, "for": {}, "of": {},
	"and": {}, "or": {}, "if": {}, "than": {}, "before": {}, "after": {},
	"yes": {}, "no": {},
}

// ExtractKeywords lower-cases text, strips punctuation and returns up to
// MaxKeywords significant tokens in their original order.
func ExtractKeywords(text string) []string {
	cleaned := nonAlnum.ReplaceAllString(strings.Map(spaceToBlank, strings.ToLower(text)), "")
	out := make([]string, 0, MaxKeywords)
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

// spaceToBlank maps every Unicode space, such as U+00A0, to an ASCII blank.
func spaceToBlank(r rune) rune {
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}
