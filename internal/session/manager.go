// Package session owns the lifecycle of the single active practice session.
//
// A Manager holds at most one open session. Start hands back the session ID,
// which every later call must present; a call with no open session or with a
// stale ID fails instead of being ignored. End is the linearization point:
// the final metrics are computed under the same lock that guards Update, so
// no reading can slip in after the summary has been taken.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/voicebridge/internal/model"
	"github.com/verte-zerg/voicebridge/internal/observe"
	"github.com/verte-zerg/voicebridge/internal/stats"
)

// Manager aggregates readings into the active practice session.
type Manager struct {
	mu     sync.Mutex
	active *model.PracticeSession

	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
	metrics *observe.Recorder
}

// EndOptions carries optional values applied when a session closes.
type EndOptions struct {
	// FinalMetrics overrides the averaged summary. Required when no
	// readings were folded.
	FinalMetrics         *model.SpeechMetrics
	Transcript           string
	ProcessedAudioBase64 string
	ProcessedAudioFormat string
}

// NewManager creates a Manager with no active session.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a new session and makes it the active one.
func (m *Manager) Start(mode model.Mode, typ model.SessionType, scenario model.Scenario) (model.PracticeSession, error) {
	if !mode.Valid() {
		return model.PracticeSession{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if !typ.Valid() {
		return model.PracticeSession{}, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	if !scenario.Valid() {
		return model.PracticeSession{}, fmt.Errorf("%w: %q", ErrInvalidScenario, scenario)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return model.PracticeSession{}, fmt.Errorf("%w: %s", ErrSessionActive, m.active.ID)
	}
	s := &model.PracticeSession{
		ID:        m.newID(),
		Mode:      mode,
		Type:      typ,
		Scenario:  scenario,
		StartTime: m.now(),
	}
	m.active = s
	m.metrics.SessionStarted(string(mode))
	m.log.Info().
		Str("session_id", s.ID).
		Str("mode", string(mode)).
		Str("type", string(typ)).
		Str("scenario", string(scenario)).
		Msg("session started")
	return s.Clone(), nil
}

// Update appends one reading to the active session.
func (m *Manager) Update(id string, metrics model.SpeechMetrics) error {
	if !metrics.Finite() {
		return ErrNonFiniteMetrics
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeFor(id)
	if err != nil {
		m.log.Warn().Err(err).Str("session_id", id).Msg("reading rejected")
		return err
	}
	reading := metrics.Clone()
	if reading.Timestamp.IsZero() {
		reading.Timestamp = m.now()
	}
	s.MetricsHistory = append(s.MetricsHistory, reading)
	m.metrics.ReadingFolded()
	m.log.Debug().
		Str("session_id", id).
		Int("readings", len(s.MetricsHistory)).
		Float64("overall", reading.OverallScore).
		Msg("reading folded")
	return nil
}

// End closes the active session and computes its final metrics.
//
// Without opts.FinalMetrics the summary is the average of the folded
// readings; with no readings either, End fails with ErrEmptyMetricsHistory
// and the session stays open.
func (m *Manager) End(id string, opts EndOptions) (model.PracticeSession, error) {
	if opts.FinalMetrics != nil && !opts.FinalMetrics.Finite() {
		return model.PracticeSession{}, ErrNonFiniteMetrics
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeFor(id)
	if err != nil {
		return model.PracticeSession{}, err
	}

	now := m.now()
	var final model.SpeechMetrics
	if opts.FinalMetrics != nil {
		final = opts.FinalMetrics.Clone()
		if final.Timestamp.IsZero() {
			final.Timestamp = now
		}
	} else {
		final, err = stats.FinalMetrics(s.MetricsHistory, now)
		if errors.Is(err, stats.ErrEmptyHistory) {
			return model.PracticeSession{}, fmt.Errorf("session %s: %w", id, ErrEmptyMetricsHistory)
		}
		if err != nil {
			return model.PracticeSession{}, err
		}
	}

	s.FinalMetrics = &final
	s.EndTime = &now
	s.Transcript = opts.Transcript
	s.ProcessedAudioBase64 = opts.ProcessedAudioBase64
	s.ProcessedAudioFormat = opts.ProcessedAudioFormat
	m.active = nil

	m.metrics.SessionFinished(string(s.Mode), final.OverallScore)
	m.log.Info().
		Str("session_id", id).
		Int("readings", len(s.MetricsHistory)).
		Float64("overall", final.OverallScore).
		Dur("duration", s.Duration(now)).
		Msg("session finished")
	return s.Clone(), nil
}

// Abandon releases the active session without closing it. The returned
// session has no end time and no final metrics.
func (m *Manager) Abandon(id string) (model.PracticeSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeFor(id)
	if err != nil {
		return model.PracticeSession{}, err
	}
	m.active = nil
	m.metrics.SessionAbandoned()
	m.log.Info().
		Str("session_id", id).
		Int("readings", len(s.MetricsHistory)).
		Msg("session abandoned")
	return s.Clone(), nil
}

// AddNote appends a note to the active session.
func (m *Manager) AddNote(id, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyNote
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeFor(id)
	if err != nil {
		return err
	}
	s.Notes = append(s.Notes, text)
	return nil
}

// UpdateNotes replaces the notes of the active session.
func (m *Manager) UpdateNotes(id string, notes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.activeFor(id)
	if err != nil {
		return err
	}
	s.Notes = append([]string(nil), notes...)
	return nil
}

// Active returns a snapshot of the open session, if any.
func (m *Manager) Active() (model.PracticeSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return model.PracticeSession{}, false
	}
	return m.active.Clone(), true
}

// IsActive reports whether id is the open session.
func (m *Manager) IsActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil && m.active.ID == id
}

// activeFor must be called with mu held.
func (m *Manager) activeFor(id string) (*model.PracticeSession, error) {
	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	if m.active.ID != id {
		return nil, fmt.Errorf("%w: %s is not the active session", ErrSessionMismatch, id)
	}
	return m.active, nil
}
