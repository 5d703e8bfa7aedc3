// Package generator picks practice prompts.
package generator

import (
	"math/rand"
	"strings"
	"time"
)

// Generator produces randomized prompt sequences.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate selects phrases uniformly, avoiding an immediate repeat.
func (g *Generator) Generate(phrases []string, count int) []string {
	if len(phrases) == 0 || count <= 0 {
		return nil
	}
	result := make([]string, 0, count)
	last := -1
	for i := 0; i < count; i++ {
		idx := g.rnd.Intn(len(phrases))
		if idx == last && len(phrases) > 1 {
			idx = (idx + 1) % len(phrases)
		}
		result = append(result, phrases[idx])
		last = idx
	}
	return result
}

// GenerateWeighted selects phrases with a bias toward weak phonemes. Each
// occurrence of a weak phoneme in a phrase adds factor to its weight.
func (g *Generator) GenerateWeighted(phrases []string, count int, weak map[string]struct{}, factor float64) []string {
	if len(phrases) == 0 || count <= 0 {
		return nil
	}
	if len(weak) == 0 || factor <= 0 {
		return g.Generate(phrases, count)
	}
	weights := make([]float64, len(phrases))
	total := 0.0
	for i, phrase := range phrases {
		w := 1.0 + float64(WeakCount(phrase, weak))*factor
		weights[i] = w
		total += w
	}

	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		r := g.rnd.Float64() * total
		acc := 0.0
		idx := len(weights) - 1
		for j, w := range weights {
			acc += w
			if r <= acc {
				idx = j
				break
			}
		}
		result = append(result, phrases[idx])
	}
	return result
}

// WeakCount counts occurrences of weak phonemes in a phrase, matched by
// spelling.
func WeakCount(phrase string, weak map[string]struct{}) int {
	lower := strings.ToLower(phrase)
	n := 0
	for p := range weak {
		if p == "" {
			continue
		}
		n += strings.Count(lower, strings.ToLower(p))
	}
	return n
}
