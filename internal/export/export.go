// Package export writes sessions and profile data as shareable JSON.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/verte-zerg/voicebridge/internal/model"
)

// BundleVersion is bumped when the bundle layout changes.
const BundleVersion = 1

// SessionDocument is the exported shape of one session.
type SessionDocument struct {
	ID           string     `json:"id"`
	Mode         string     `json:"mode"`
	Type         string     `json:"type"`
	Scenario     string     `json:"scenario"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime"`
	Duration     int64      `json:"duration"`
	Transcript   string     `json:"transcript"`
	Notes        []string   `json:"notes"`
	OverallScore *float64   `json:"overallScore"`
}

// Bundle is a full export of profile, progress and history.
type Bundle struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exportedAt"`
	Profile    model.UserProfile  `json:"profile"`
	Progress   model.GameProgress `json:"progress"`
	Sessions   []SessionDocument  `json:"sessions"`
}

// NewSessionDocument converts a session. Duration is in whole seconds,
// measured to now for a session that is still open.
func NewSessionDocument(s model.PracticeSession, now time.Time) SessionDocument {
	doc := SessionDocument{
		ID:         s.ID,
		Mode:       string(s.Mode),
		Type:       string(s.Type),
		Scenario:   string(s.Scenario),
		StartTime:  s.StartTime.UTC(),
		Duration:   int64(math.Round(s.Duration(now).Seconds())),
		Transcript: s.Transcript,
		Notes:      s.Notes,
	}
	if doc.Notes == nil {
		doc.Notes = []string{}
	}
	if s.EndTime != nil {
		end := s.EndTime.UTC()
		doc.EndTime = &end
	}
	if s.FinalMetrics != nil {
		score := s.FinalMetrics.OverallScore
		doc.OverallScore = &score
	}
	return doc
}

// NewBundle assembles a bundle stamped with now.
func NewBundle(p model.UserProfile, progress model.GameProgress, sessions []model.PracticeSession, now time.Time) Bundle {
	docs := make([]SessionDocument, 0, len(sessions))
	for _, s := range sessions {
		docs = append(docs, NewSessionDocument(s, now))
	}
	if progress.Badges == nil {
		progress.Badges = []string{}
	}
	return Bundle{
		Version:    BundleVersion,
		ExportedAt: now.UTC(),
		Profile:    p,
		Progress:   progress,
		Sessions:   docs,
	}
}

// WriteSessions writes sessions as an indented JSON array.
func WriteSessions(w io.Writer, sessions []model.PracticeSession, now time.Time) error {
	docs := make([]SessionDocument, 0, len(sessions))
	for _, s := range sessions {
		docs = append(docs, NewSessionDocument(s, now))
	}
	return writeJSON(w, docs)
}

// WriteBundle writes the bundle as indented JSON.
func WriteBundle(w io.Writer, b Bundle) error {
	return writeJSON(w, b)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Source reads stored sessions.
type Source interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionSummary, error)
	GetSession(ctx context.Context, id string) (model.PracticeSession, error)
}

// Collect loads every stored session matching cfg, oldest first.
func Collect(ctx context.Context, src Source, cfg model.StatsConfig) ([]model.PracticeSession, error) {
	summaries, err := src.ListSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	out := make([]model.PracticeSession, 0, len(summaries))
	for _, sum := range summaries {
		s, err := src.GetSession(ctx, sum.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
