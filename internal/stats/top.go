package stats

import (
	"github.com/verte-zerg/voicebridge/internal/model"
)

// TopPhonemesByFrequency returns the top N phonemes by error count.
// A non-positive n returns every phoneme.
func TopPhonemesByFrequency(aggs []model.PhonemeAggregate, n int) []string {
	if len(aggs) == 0 {
		return nil
	}
	items := make([]model.PhonemeAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Count > 0 {
			items = append(items, agg)
		}
	}
	sortPhonemes(items)
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for _, item := range items[:n] {
		out = append(out, item.Phoneme)
	}
	return out
}
