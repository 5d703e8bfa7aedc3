package stats

import (
	"errors"
	"math"
	"time"

	"github.com/verte-zerg/voicebridge/internal/model"
)

var (
	// ErrEmptyHistory is returned when there is nothing to average.
	ErrEmptyHistory = errors.New("metrics history is empty")
	// ErrNonFiniteResult is returned when a mean is not a finite number.
	ErrNonFiniteResult = errors.New("averaged metrics are not finite")
)

// FinalMetrics reduces per-utterance readings into one session summary.
//
// The five scores are per-field arithmetic means. Phoneme errors are
// concatenated in reading order without de-duplication. Suggestions are a
// set union that keeps first-seen order. The summary is stamped with at.
// Each reading is scaled by 1/n before summing so scores near the float64
// limit do not overflow the running total.
func FinalMetrics(history []model.SpeechMetrics, at time.Time) (model.SpeechMetrics, error) {
	if len(history) == 0 {
		return model.SpeechMetrics{}, ErrEmptyHistory
	}
	n := float64(len(history))
	var clarity, nasality, pacing, breath, overall float64
	errCount := 0
	for _, m := range history {
		clarity += m.ClarityScore / n
		nasality += m.NasalityScore / n
		pacing += m.PacingScore / n
		breath += m.BreathControlScore / n
		overall += m.OverallScore / n
		errCount += len(m.PhonemeErrors)
	}
	for _, v := range [...]float64{clarity, nasality, pacing, breath, overall} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.SpeechMetrics{}, ErrNonFiniteResult
		}
	}

	phonemeErrors := make([]model.PhonemeError, 0, errCount)
	seen := map[string]struct{}{}
	var suggestions []string
	for _, m := range history {
		phonemeErrors = append(phonemeErrors, m.PhonemeErrors...)
		for _, s := range m.Suggestions {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			suggestions = append(suggestions, s)
		}
	}

	return model.SpeechMetrics{
		ClarityScore:       clarity,
		NasalityScore:      nasality,
		PacingScore:        pacing,
		BreathControlScore: breath,
		OverallScore:       overall,
		PhonemeErrors:      phonemeErrors,
		Suggestions:        suggestions,
		Timestamp:          at,
	}, nil
}

// PhonemeCounts tallies phoneme errors across readings.
func PhonemeCounts(history []model.SpeechMetrics) map[string]int {
	counts := map[string]int{}
	for _, m := range history {
		for _, pe := range m.PhonemeErrors {
			counts[pe.Phoneme]++
		}
	}
	return counts
}
