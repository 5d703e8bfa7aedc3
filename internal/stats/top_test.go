package stats

import (
	"testing"

	"github.com/verte-zerg/voicebridge/internal/model"
)

func TestTopPhonemesByFrequency(t *testing.T) {
	aggs := []model.PhonemeAggregate{
		{Phoneme: "p", Count: 3},
		{Phoneme: "s", Count: 4},
		{Phoneme: "k", Count: 3},
		{Phoneme: "m", Count: 0},
	}
	top := TopPhonemesByFrequency(aggs, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 phonemes, got %d", len(top))
	}
	if top[0] != "s" || top[1] != "k" {
		t.Fatalf("unexpected order: %v", top)
	}
	if all := TopPhonemesByFrequency(aggs, 0); len(all) != 3 {
		t.Fatalf("expected zero-count phonemes to be skipped, got %v", all)
	}
}

func TestSelectWeakPhonemes(t *testing.T) {
	weak := SelectWeakPhonemes([]model.PhonemeAggregate{
		{Phoneme: "s", Count: 5},
		{Phoneme: "p", Count: 1},
	}, 1)
	if _, ok := weak["s"]; !ok || len(weak) != 1 {
		t.Fatalf("expected only s to be weak, got %v", weak)
	}
	if len(SelectWeakPhonemes(nil, 3)) != 0 {
		t.Fatalf("expected empty weak set without aggregates")
	}
}
