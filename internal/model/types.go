// Package model defines shared data structures.
package model

import (
	"math"
	"time"
)

// Config defines practice settings.
type Config struct {
	Mode       Mode
	Type       SessionType
	Scenario   Scenario
	Prompts    int
	FocusWeak  bool
	WeakTop    int
	WeakFactor float64
	WeakWindow int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Mode        Mode
	Since       *time.Time
	Last        int
	CurveWindow int
}

// PhonemeError marks one mispronounced phoneme within an utterance.
type PhonemeError struct {
	Phoneme  string `json:"phoneme"`
	Position int    `json:"position"`
	Context  string `json:"context,omitempty"`
}

// SpeechMetrics is one analysis result for a single recorded utterance.
// Scores are produced by the analyzer and never re-derived locally.
type SpeechMetrics struct {
	ClarityScore       float64        `json:"clarityScore"`
	NasalityScore      float64        `json:"nasalityScore"`
	PacingScore        float64        `json:"pacingScore"`
	BreathControlScore float64        `json:"breathControlScore"`
	OverallScore       float64        `json:"overallScore"`
	PhonemeErrors      []PhonemeError `json:"phonemeErrors"`
	Suggestions        []string       `json:"suggestions"`
	Timestamp          time.Time      `json:"timestamp"`
}

// Finite reports whether every score is a finite number.
func (m SpeechMetrics) Finite() bool {
	for _, v := range []float64{m.ClarityScore, m.NasalityScore, m.PacingScore, m.BreathControlScore, m.OverallScore} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (m SpeechMetrics) Clone() SpeechMetrics {
	out := m
	if m.PhonemeErrors != nil {
		out.PhonemeErrors = append([]PhonemeError(nil), m.PhonemeErrors...)
	}
	if m.Suggestions != nil {
		out.Suggestions = append([]string(nil), m.Suggestions...)
	}
	return out
}

// PracticeSession is one practice interaction, from start to close.
type PracticeSession struct {
	ID                   string
	Mode                 Mode
	Type                 SessionType
	Scenario             Scenario
	StartTime            time.Time
	EndTime              *time.Time
	MetricsHistory       []SpeechMetrics
	FinalMetrics         *SpeechMetrics
	Notes                []string
	Transcript           string
	ProcessedAudioBase64 string
	ProcessedAudioFormat string
}

// IsOpen reports whether the session has not been closed.
func (s PracticeSession) IsOpen() bool {
	return s.EndTime == nil
}

// Duration is now-StartTime while open and frozen once closed.
func (s PracticeSession) Duration(now time.Time) time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}

// Clone returns a deep copy so callers never share slices with the owner.
func (s PracticeSession) Clone() PracticeSession {
	out := s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	if s.MetricsHistory != nil {
		out.MetricsHistory = make([]SpeechMetrics, len(s.MetricsHistory))
		for i, m := range s.MetricsHistory {
			out.MetricsHistory[i] = m.Clone()
		}
	}
	if s.FinalMetrics != nil {
		fm := s.FinalMetrics.Clone()
		out.FinalMetrics = &fm
	}
	if s.Notes != nil {
		out.Notes = append([]string(nil), s.Notes...)
	}
	return out
}

// UserProfile holds durable profile fields and session counters.
type UserProfile struct {
	Name            string `json:"name"`
	Mode            Mode   `json:"mode"`
	TotalSessions   int    `json:"totalSessions"`
	TotalMinutes    int    `json:"totalMinutes"`
	CurrentStreak   int    `json:"currentStreak"`
	LongestStreak   int    `json:"longestStreak"`
	LastSessionDate string `json:"lastSessionDate,omitempty"`
}

// GameProgress holds gamification counters.
type GameProgress struct {
	Stars                 int      `json:"stars"`
	Experience            int      `json:"experience"`
	Level                 int      `json:"level"`
	ExperienceToNextLevel int      `json:"experienceToNextLevel"`
	Badges                []string `json:"badges"`
}

// SessionSummary is a lightweight history row.
type SessionSummary struct {
	ID           string
	Mode         Mode
	Type         SessionType
	Scenario     Scenario
	StartTime    time.Time
	EndTime      time.Time
	DurationMs   int64
	OverallScore float64
	ClarityScore float64
	Nasality     float64
	Breath       float64
	Readings     int
}

// PhonemeAggregate aggregates phoneme errors across sessions.
type PhonemeAggregate struct {
	Phoneme  string
	Count    int
	Sessions int
}
