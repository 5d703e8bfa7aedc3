package model

import (
	"fmt"
	"strings"
)

// Mode selects the adult or child practice tree.
type Mode string

const (
	ModeAdult Mode = "adult"
	ModeChild Mode = "child"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAdult || m == ModeChild
}

// SessionType is the kind of practice a session runs.
type SessionType string

const (
	TypeScenario      SessionType = "scenario"
	TypeFreePractice  SessionType = "free_practice"
	TypeExercise      SessionType = "exercise"
	TypePronunciation SessionType = "pronunciation"
)

// Valid reports whether t is a known session type.
func (t SessionType) Valid() bool {
	switch t {
	case TypeScenario, TypeFreePractice, TypeExercise, TypePronunciation:
		return true
	}
	return false
}

// Scenario is an optional guided conversation topic. Empty means none.
type Scenario string

const (
	ScenarioNone          Scenario = ""
	ScenarioOrderingFood  Scenario = "ordering_food"
	ScenarioPhoneCall     Scenario = "phone_call"
	ScenarioIntroductions Scenario = "introductions"
	ScenarioJobInterview  Scenario = "job_interview"
	ScenarioShopping      Scenario = "shopping"
	ScenarioDoctorVisit   Scenario = "doctor_visit"
	ScenarioStorytime     Scenario = "storytime"
	ScenarioAnimals       Scenario = "animals"
)

// Scenarios lists every named scenario.
var Scenarios = []Scenario{
	ScenarioOrderingFood,
	ScenarioPhoneCall,
	ScenarioIntroductions,
	ScenarioJobInterview,
	ScenarioShopping,
	ScenarioDoctorVisit,
	ScenarioStorytime,
	ScenarioAnimals,
}

// Valid reports whether s is empty or a known scenario.
func (s Scenario) Valid() bool {
	if s == ScenarioNone {
		return true
	}
	for _, known := range Scenarios {
		if s == known {
			return true
		}
	}
	return false
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(v string) (Mode, error) {
	m := Mode(normalizeEnum(v))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q (want adult or child)", v)
	}
	return m, nil
}

// ParseSessionType parses a session type; "free-practice" is accepted too.
func ParseSessionType(v string) (SessionType, error) {
	t := SessionType(normalizeEnum(v))
	if !t.Valid() {
		return "", fmt.Errorf("unknown session type %q", v)
	}
	return t, nil
}

// ParseScenario parses a scenario name; empty input yields ScenarioNone.
func ParseScenario(v string) (Scenario, error) {
	s := Scenario(normalizeEnum(v))
	if !s.Valid() {
		return "", fmt.Errorf("unknown scenario %q", v)
	}
	return s, nil
}

func normalizeEnum(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.ReplaceAll(v, "-", "_")
}
