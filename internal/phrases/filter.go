package phrases

import (
	"strings"

	"github.com/verte-zerg/voicebridge/internal/model"
)

// childMaxWords is the longest prompt offered in child mode.
const childMaxWords = 6

// FilterFunc returns true when a phrase should be kept.
type FilterFunc func(string) bool

// FilterForMode returns a mode-specific filter for phrase lists.
func FilterForMode(mode model.Mode) FilterFunc {
	switch mode {
	case model.ModeChild:
		return shortPhrase
	default:
		return func(string) bool { return true }
	}
}

func shortPhrase(phrase string) bool {
	n := len(strings.Fields(phrase))
	return n > 0 && n <= childMaxWords
}

// Filter returns the phrases fn keeps.
func Filter(phrases []string, fn FilterFunc) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if fn(p) {
			out = append(out, p)
		}
	}
	return out
}
