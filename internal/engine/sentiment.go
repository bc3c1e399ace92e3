package engine

import (
	"math"
	"strings"
	"unicode"
)

// emotionalWords are chat tokens treated as excitement markers.
var emotionalWords = map[string]struct{}{
	"great":   {},
	"wow":     {},
	"amazing": {},
	"funny":   {},
	"wtf":     {},
	"nice":    {},
	"lol":     {},
}

// chatSentiment scores the excitement of one window's chat text in [0, 1].
// Message volume drives most of the score, keyword hits the rest.
func chatSentiment(messages []string) float64 {
	var words, emotional int
	for _, msg := range messages {
		for _, tok := range tokenize(msg) {
			words++
			if _, ok := emotionalWords[tok]; ok {
				emotional++
			}
		}
	}
	if words == 0 {
		return 0
	}

	intensity := math.Min(1, float64(words)/40)
	score := 0.7*intensity + 0.3*math.Min(1, float64(emotional)/5)
	return math.Min(1, math.Max(0, score))
}

// tokenize lowercases text and splits it into word runs, stripping
// punctuation so "lol!!!" counts as "lol".
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
