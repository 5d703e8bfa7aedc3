package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/voicebridge/internal/analyzer"
	"github.com/verte-zerg/voicebridge/internal/generator"
	"github.com/verte-zerg/voicebridge/internal/history"
	"github.com/verte-zerg/voicebridge/internal/model"
	"github.com/verte-zerg/voicebridge/internal/profile"
	"github.com/verte-zerg/voicebridge/internal/session"
	"github.com/verte-zerg/voicebridge/internal/store"
)

type stubAnalyzer struct {
	result analyzer.Result
	err    error
}

func (s stubAnalyzer) Analyze(_ context.Context, _ analyzer.Request) (analyzer.Result, error) {
	return s.result, s.err
}

func newTestModel(t *testing.T, a analyzer.Analyzer, prompts int) *Model {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "voicebridge.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	prof, err := profile.Open(context.Background(), st)
	if err != nil {
		t.Fatalf("open profile: %v", err)
	}
	svc := &history.Service{Sessions: session.NewManager(), Store: st, Profile: prof, Log: zerolog.Nop()}
	cfg := model.Config{Mode: model.ModeAdult, Type: model.TypeFreePractice, Prompts: prompts, WeakTop: 3, WeakWindow: 5}
	m, err := NewModel(Deps{
		Service:  svc,
		Analyzer: a,
		Reader:   st,
		Gen:      generator.NewWithSeed(1),
		Log:      zerolog.Nop(),
	}, cfg, []string{"good morning", "thank you"}, nil)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

// runAnalysis types a path, presses enter and feeds the command result back.
func runAnalysis(t *testing.T, m *Model, path string) {
	t.Helper()
	m.audioInput.SetValue(path)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected analyze command")
	}
	m.Update(cmd())
}

func TestRenderFooterFormats(t *testing.T) {
	m := &Model{
		session:     model.PracticeSession{MetricsHistory: make([]model.SpeechMetrics, 2)},
		hasLast:     true,
		lastOverall: 72.4,
		allOverall:  68.1,
		allCount:    12,
		streak:      3,
	}
	out := m.renderFooter()
	if !containsAll(out, []string{"Readings 2", "Last 72.4", "All-time 68.1 over 12", "Streak 3d"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestNewModelStartsSession(t *testing.T) {
	m := newTestModel(t, stubAnalyzer{}, 2)
	if m.session.ID == "" || !m.deps.Service.Sessions.IsActive(m.session.ID) {
		t.Fatalf("expected an active session")
	}
	if len(m.prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(m.prompts))
	}
	if !strings.Contains(m.View(), "prompt 1/2") {
		t.Fatalf("expected prompt counter in view")
	}
}

func TestAnalysisFoldsReadingAndFinishes(t *testing.T) {
	a := stubAnalyzer{result: analyzer.Result{
		Metrics:    model.SpeechMetrics{ClarityScore: 90, OverallScore: 92, Suggestions: []string{"Slow down"}},
		Transcript: "good morning",
	}}
	m := newTestModel(t, a, 2)
	id := m.session.ID

	runAnalysis(t, m, "one.wav")
	if m.state != statePractice || len(m.session.MetricsHistory) != 1 {
		t.Fatalf("expected one reading while practicing, got %d", len(m.session.MetricsHistory))
	}
	if m.last == nil || m.running == nil || m.running.OverallScore != 92 {
		t.Fatalf("expected last and running metrics")
	}

	runAnalysis(t, m, "two.wav")
	if m.state != stateSummary {
		t.Fatalf("expected summary after the last prompt")
	}
	if m.finished.ID != id || m.finished.Transcript != "good morning good morning" {
		t.Fatalf("unexpected finished session: %+v", m.finished)
	}
	if m.reward.Stars != 3 || len(m.reward.NewBadges) == 0 {
		t.Fatalf("unexpected reward: %+v", m.reward)
	}
	if !m.hasLast || m.lastOverall != 92 || m.allCount != 1 || m.streak != 1 {
		t.Fatalf("footer not refreshed: %+v", m)
	}
	if m.deps.Service.Sessions.IsActive(id) {
		t.Fatalf("session should be closed")
	}
	if !strings.Contains(m.View(), "Session complete") {
		t.Fatalf("expected summary view")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != statePractice || m.session.ID == id {
		t.Fatalf("expected a new session after enter")
	}
}

func TestAnalysisFailureKeepsSessionOpen(t *testing.T) {
	m := newTestModel(t, stubAnalyzer{err: errors.New("down")}, 2)
	runAnalysis(t, m, "one.wav")
	if m.errMsg == "" || m.pending {
		t.Fatalf("expected error message and no pending analysis")
	}
	if m.promptIdx != 0 || !m.deps.Service.Sessions.IsActive(m.session.ID) {
		t.Fatalf("expected the same prompt and an open session")
	}
}

func TestFinishWithoutReadings(t *testing.T) {
	m := newTestModel(t, stubAnalyzer{}, 2)
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	if m.state != statePractice || !strings.Contains(m.errMsg, "at least one clip") {
		t.Fatalf("expected empty-history message, got %q", m.errMsg)
	}
	if !m.deps.Service.Sessions.IsActive(m.session.ID) {
		t.Fatalf("session should stay open")
	}
}

func TestNoteInputAddsNote(t *testing.T) {
	m := newTestModel(t, stubAnalyzer{}, 2)
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusNote {
		t.Fatalf("expected note focus")
	}
	m.noteInput.SetValue("felt rushed")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.session.Notes) != 1 || m.session.Notes[0] != "felt rushed" {
		t.Fatalf("unexpected notes: %v", m.session.Notes)
	}
	if m.noteInput.Value() != "" {
		t.Fatalf("note input should be cleared")
	}
}

func TestEscAbandons(t *testing.T) {
	m := newTestModel(t, stubAnalyzer{}, 2)
	id := m.session.ID
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if m.deps.Service.Sessions.IsActive(id) {
		t.Fatalf("session should be abandoned")
	}
}

func TestStaleAnalysisIgnored(t *testing.T) {
	m := newTestModel(t, stubAnalyzer{}, 2)
	m.pending = true
	m.Update(analyzedMsg{sessionID: "other", result: analyzer.Result{Metrics: model.SpeechMetrics{OverallScore: 50}}})
	if len(m.session.MetricsHistory) != 0 || m.pending {
		t.Fatalf("stale result should be dropped")
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
