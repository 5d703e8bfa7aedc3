// Package history connects the session manager to durable storage and the
// profile counters.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/voicebridge/internal/analyzer"
	"github.com/verte-zerg/voicebridge/internal/model"
	"github.com/verte-zerg/voicebridge/internal/profile"
	"github.com/verte-zerg/voicebridge/internal/session"
)

// SessionStore persists closed sessions.
type SessionStore interface {
	InsertSession(ctx context.Context, s model.PracticeSession) error
	GetSession(ctx context.Context, id string) (model.PracticeSession, error)
	AddNote(ctx context.Context, id, text string) error
	UpdateNotes(ctx context.Context, id string, notes []string) error
	DeleteSession(ctx context.Context, id string) error
	ClearSessions(ctx context.Context) (int64, error)
}

// Service is the one path by which a session is closed, saved and counted.
type Service struct {
	Sessions *session.Manager
	Store    SessionStore
	Profile  *profile.Store
	Log      zerolog.Logger
}

// Finish closes the session, saves it and updates profile counters.
//
// When saving or counting fails the closed session is still returned with
// the error, so the caller can retry persistence or export it.
func (s *Service) Finish(ctx context.Context, id string, opts session.EndOptions) (model.PracticeSession, profile.Reward, error) {
	closed, err := s.Sessions.End(id, opts)
	if err != nil {
		return model.PracticeSession{}, profile.Reward{}, err
	}
	if err := s.Store.InsertSession(ctx, closed); err != nil {
		s.Log.Error().Err(err).Str("session_id", id).Msg("save session")
		return closed, profile.Reward{}, fmt.Errorf("save session %s: %w", id, err)
	}
	end := *closed.EndTime
	if _, err := s.Profile.RecordSession(ctx, closed.Duration(end), end); err != nil {
		return closed, profile.Reward{}, fmt.Errorf("record session %s: %w", id, err)
	}
	reward, err := s.Profile.Reward(ctx, closed)
	if err != nil {
		return closed, profile.Reward{}, fmt.Errorf("reward session %s: %w", id, err)
	}
	return closed, reward, nil
}

// Batch runs a whole session from pre-recorded files: start, analyze with
// bounded parallelism, fold in order, finish. Any failure before the
// session closes abandons it. reqs is not modified.
func (s *Service) Batch(ctx context.Context, a analyzer.Analyzer, cfg model.Config, reqs []analyzer.Request, parallel int) (model.PracticeSession, profile.Reward, error) {
	if len(reqs) == 0 {
		return model.PracticeSession{}, profile.Reward{}, fmt.Errorf("batch: %w", session.ErrEmptyMetricsHistory)
	}
	started, err := s.Sessions.Start(cfg.Mode, cfg.Type, cfg.Scenario)
	if err != nil {
		return model.PracticeSession{}, profile.Reward{}, err
	}
	reqs = append([]analyzer.Request(nil), reqs...)
	for i := range reqs {
		reqs[i].Mode = cfg.Mode
	}

	results, err := analyzer.AnalyzeAll(ctx, a, reqs, parallel)
	if err != nil {
		s.abandon(started.ID)
		return model.PracticeSession{}, profile.Reward{}, err
	}

	var transcript []string
	for _, res := range results {
		if err := s.Sessions.Update(started.ID, res.Metrics); err != nil {
			s.abandon(started.ID)
			return model.PracticeSession{}, profile.Reward{}, err
		}
		if t := strings.TrimSpace(res.Transcript); t != "" {
			transcript = append(transcript, t)
		}
	}
	closed, reward, err := s.Finish(ctx, started.ID, session.EndOptions{Transcript: strings.Join(transcript, " ")})
	if err != nil && s.Sessions.IsActive(started.ID) {
		s.abandon(started.ID)
	}
	return closed, reward, err
}

func (s *Service) abandon(id string) {
	if _, err := s.Sessions.Abandon(id); err != nil {
		s.Log.Warn().Err(err).Str("session_id", id).Msg("abandon session")
	}
}

// AddNote appends a note to any session, open or stored.
func (s *Service) AddNote(ctx context.Context, id, text string) error {
	err := s.Sessions.AddNote(id, text)
	if !notActive(err) {
		return err
	}
	return s.Store.AddNote(ctx, id, text)
}

// UpdateNotes replaces the notes of any session, open or stored.
func (s *Service) UpdateNotes(ctx context.Context, id string, notes []string) error {
	err := s.Sessions.UpdateNotes(id, notes)
	if !notActive(err) {
		return err
	}
	return s.Store.UpdateNotes(ctx, id, notes)
}

// Get returns the open session with id, or the stored one.
func (s *Service) Get(ctx context.Context, id string) (model.PracticeSession, error) {
	if active, ok := s.Sessions.Active(); ok && active.ID == id {
		return active, nil
	}
	return s.Store.GetSession(ctx, id)
}

// Delete removes one stored session.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.DeleteSession(ctx, id)
}

// Clear deletes every stored session. Profile counters are kept.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	n, err := s.Store.ClearSessions(ctx)
	if err != nil {
		return 0, err
	}
	s.Log.Info().Int64("sessions", n).Msg("history cleared")
	return n, nil
}

func notActive(err error) bool {
	return errors.Is(err, session.ErrNoActiveSession) || errors.Is(err, session.ErrSessionMismatch)
}
