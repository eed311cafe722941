package matcher

import (
	"regexp"
	"strings"
)

// stopWords are dropped before keyword comparison; they carry no signal for
// deciding whether two questions describe the same event.
var stopWords = map[string]struct{}{
	"will": {}, "be": {}, "the": {}, "a": {}, "an": {}, "and": {}, "or": {},
	"but": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {},
}

var numberPattern = regexp.MustCompile(`\$[\d,]+(?:\.\d+)?|\d+%|\b\d{1,3}(?:,\d{3})*(?:\.\d+)?\b`)

// normalizeTitle casefolds and strips punctuation, collapsing whitespace.
func normalizeTitle(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// keywords returns the significant tokens of a title.
func keywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(normalizeTitle(text)) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// keywordOverlap computes Jaccard similarity between two keyword sets.
func keywordOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// extractNumbers pulls dollar amounts, percentages and bare numbers out of
// a title. "Will BTC hit $100,000?" and "Bitcoin above $100,000" agree on
// the number even when the words differ.
func extractNumbers(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range numberPattern.FindAllString(text, -1) {
		out[m] = struct{}{}
	}
	return out
}

// numbersAgree reports whether any numeric token is shared. Titles with no
// numbers on either side neither agree nor disagree.
func numbersAgree(a, b map[string]struct{}) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	for n := range a {
		if _, ok := b[n]; ok {
			return true
		}
	}
	return false
}
