package profile

import "math"

// baseLevelStep is the experience needed to leave level 1. Each later step
// is 1.5x the previous one.
const baseLevelStep = 100

// LevelForExperience maps cumulative experience to a level starting at 1.
func LevelForExperience(xp int) int {
	level, _ := levelAndNext(xp)
	return level
}

// ExperienceToNextLevel returns the experience still needed to level up.
func ExperienceToNextLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	_, next := levelAndNext(xp)
	return next - xp
}

// levelAndNext stops at the last threshold representable as an int; past it
// the level stays fixed and the next threshold is math.MaxInt.
func levelAndNext(xp int) (int, int) {
	level, step, next := 1, baseLevelStep, baseLevelStep
	for xp >= next {
		level++
		step = step * 3 / 2
		if step > math.MaxInt-next {
			return level, math.MaxInt
		}
		next += step
	}
	return level, next
}
