package stats

import (
	"github.com/verte-zerg/voicebridge/internal/model"
)

// SelectWeakPhonemes selects the most frequently mispronounced phonemes.
func SelectWeakPhonemes(aggs []model.PhonemeAggregate, top int) map[string]struct{} {
	weakSet := map[string]struct{}{}
	if len(aggs) == 0 {
		return weakSet
	}
	for _, p := range TopPhonemesByFrequency(aggs, top) {
		weakSet[p] = struct{}{}
	}
	return weakSet
}
