package generator

import "testing"

func TestGenerateUsesOnlyGivenPhrases(t *testing.T) {
	g := NewWithSeed(1)
	phrases := []string{"one", "two", "three"}
	got := g.Generate(phrases, 20)
	if len(got) != 20 {
		t.Fatalf("expected 20 prompts, got %d", len(got))
	}
	allowed := map[string]bool{"one": true, "two": true, "three": true}
	for i, p := range got {
		if !allowed[p] {
			t.Fatalf("unexpected prompt %q", p)
		}
		if i > 0 && got[i-1] == p {
			t.Fatalf("immediate repeat of %q at %d", p, i)
		}
	}
}

func TestGenerateEmpty(t *testing.T) {
	g := NewWithSeed(1)
	if got := g.Generate(nil, 5); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := g.GenerateWeighted([]string{"a"}, 0, nil, 2); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestGenerateWeightedFavorsWeakPhonemes(t *testing.T) {
	g := NewWithSeed(42)
	phrases := []string{"round the rugged rock", "a big blue bag"}
	weak := map[string]struct{}{"r": {}}
	got := g.GenerateWeighted(phrases, 1000, weak, 5)
	withR := 0
	for _, p := range got {
		if p == phrases[0] {
			withR++
		}
	}
	// weights are 1+3*5=16 vs 1
	if withR < 900 {
		t.Fatalf("expected weak phrase to dominate, got %d/1000", withR)
	}
}

func TestWeakCount(t *testing.T) {
	weak := map[string]struct{}{"th": {}, "S": {}}
	if got := WeakCount("She sells three things", weak); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
}
