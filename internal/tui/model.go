// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/voicebridge/internal/analyzer"
	"github.com/verte-zerg/voicebridge/internal/generator"
	"github.com/verte-zerg/voicebridge/internal/history"
	"github.com/verte-zerg/voicebridge/internal/model"
	"github.com/verte-zerg/voicebridge/internal/profile"
	"github.com/verte-zerg/voicebridge/internal/session"
	statsPkg "github.com/verte-zerg/voicebridge/internal/stats"
)

// HistoryReader supplies footer totals and weak phonemes.
type HistoryReader interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionSummary, error)
	RecentPhonemeAggregates(ctx context.Context, window int, mode model.Mode) ([]model.PhonemeAggregate, error)
}

// Deps are the collaborators of the practice screen.
type Deps struct {
	Service  *history.Service
	Analyzer analyzer.Analyzer
	Reader   HistoryReader
	Gen      *generator.Generator
	Log      zerolog.Logger
}

const (
	focusAudio = iota
	focusNote
)

const (
	statePractice = iota
	stateSummary
)

type analyzedMsg struct {
	sessionID string
	path      string
	result    analyzer.Result
	err       error
	elapsed   time.Duration
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	deps    Deps
	config  model.Config
	phrases []string
	weakSet map[string]struct{}

	width  int
	height int

	state      int
	focus      int
	audioInput textinput.Model
	noteInput  textinput.Model

	session     model.PracticeSession
	prompts     []string
	promptIdx   int
	pending     bool
	transcripts []string

	last    *model.SpeechMetrics
	running *model.SpeechMetrics
	status  string
	errMsg  string

	finished model.PracticeSession
	reward   profile.Reward

	lastOverall float64
	hasLast     bool
	allOverall  float64
	allCount    int
	streak      int
}

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	weakStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true).Underline(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	suggestStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	headlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

// NewModel constructs the practice TUI and starts a session.
func NewModel(deps Deps, cfg model.Config, phrases []string, weakSet map[string]struct{}) (*Model, error) {
	m := &Model{
		deps:    deps,
		config:  cfg,
		phrases: phrases,
		weakSet: weakSet,
	}
	m.initInputs()
	if err := m.startSession(); err != nil {
		return nil, err
	}
	m.loadFooterStats()
	return m, nil
}

func (m *Model) initInputs() {
	m.audioInput = textinput.New()
	m.audioInput.Prompt = "audio> "
	m.audioInput.Placeholder = "path to recorded clip (.wav, .mp3, .webm)"
	m.audioInput.CharLimit = 512
	m.audioInput.Focus()

	m.noteInput = textinput.New()
	m.noteInput.Prompt = "note>  "
	m.noteInput.Placeholder = "add a note to this session"
	m.noteInput.CharLimit = 280
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case analyzedMsg:
		m.handleAnalyzed(msg)
		return m, nil
	case tea.KeyMsg:
		if m.state == stateSummary {
			return m.updateSummary(msg)
		}
		return m.updatePractice(msg)
	default:
		return m, nil
	}
}

func (m *Model) updatePractice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.abandon()
		return m, tea.Quit
	case tea.KeyEsc:
		m.abandon()
		return m, tea.Quit
	case tea.KeyCtrlF:
		m.finish()
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab:
		m.toggleFocus()
		return m, nil
	case tea.KeyEnter:
		if m.focus == focusNote {
			m.submitNote()
			return m, nil
		}
		return m, m.submitAudio()
	}

	var cmd tea.Cmd
	if m.focus == focusNote {
		m.noteInput, cmd = m.noteInput.Update(msg)
	} else {
		m.audioInput, cmd = m.audioInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) updateSummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		if err := m.startSession(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.state = statePractice
		return m, nil
	}
	if msg.Type == tea.KeyRunes && string(msg.Runes) == "q" {
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	if m.state == stateSummary {
		content = m.renderSummary()
	} else {
		content = m.renderPractice()
	}
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	w := int(float64(m.width) * 0.70)
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) renderPractice() string {
	width := m.contentWidth()
	var b strings.Builder

	b.WriteString(labelStyle.Render(m.headerLine()))
	b.WriteString("\n\n")
	if prompt := m.currentPrompt(); prompt != "" {
		b.WriteString(wrapStyledRunes(buildPromptRunes(prompt, m.weakSet), width))
		b.WriteString("\n\n")
	}

	b.WriteString(m.audioInput.View())
	b.WriteString("\n")
	b.WriteString(m.noteInput.View())
	b.WriteString("\n\n")

	if m.last != nil {
		b.WriteString(renderMetricsLine("Last", *m.last))
		b.WriteString("\n")
	}
	if m.running != nil {
		b.WriteString(renderMetricsLine(fmt.Sprintf("Avg (%d)", len(m.session.MetricsHistory)), *m.running))
		b.WriteString("\n")
	}
	if m.last != nil && len(m.last.Suggestions) > 0 {
		tips := "Tips: " + strings.Join(m.last.Suggestions, " · ")
		b.WriteString(wrapStyledRunes(plainRunes(tips, suggestStyle), width))
		b.WriteString("\n")
	}
	if m.pending {
		b.WriteString(labelStyle.Render("Analyzing…"))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(labelStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("enter analyze · tab note · ctrl+f finish · esc abandon"))
	return b.String()
}

func (m *Model) headerLine() string {
	parts := []string{string(m.config.Mode), string(m.config.Type)}
	if m.config.Scenario != model.ScenarioNone {
		parts = append(parts, string(m.config.Scenario))
	}
	if len(m.prompts) > 0 {
		parts = append(parts, fmt.Sprintf("prompt %d/%d", min(m.promptIdx+1, len(m.prompts)), len(m.prompts)))
	}
	return strings.Join(parts, " · ")
}

func renderMetricsLine(title string, sm model.SpeechMetrics) string {
	return fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		labelStyle.Render(title+":"),
		valueStyle.Render(fmt.Sprintf("%.1f", sm.OverallScore)),
		labelStyle.Render("clarity"),
		valueStyle.Render(fmt.Sprintf("%.1f", sm.ClarityScore)),
		labelStyle.Render("nasality"),
		valueStyle.Render(fmt.Sprintf("%.1f", sm.NasalityScore)),
		labelStyle.Render("pacing"),
		valueStyle.Render(fmt.Sprintf("%.1f", sm.PacingScore)),
		labelStyle.Render("breath"),
		valueStyle.Render(fmt.Sprintf("%.1f", sm.BreathControlScore)),
	)
}

func (m *Model) renderSummary() string {
	var b strings.Builder
	s := m.finished
	b.WriteString(headlineStyle.Render("Session complete"))
	b.WriteString("\n\n")
	if s.FinalMetrics != nil {
		b.WriteString(renderMetricsLine("Final", *s.FinalMetrics))
		b.WriteString("\n")
	}
	if s.EndTime != nil {
		b.WriteString(labelStyle.Render(fmt.Sprintf("Readings %d · %s", len(s.MetricsHistory), s.Duration(*s.EndTime).Round(time.Second))))
		b.WriteString("\n")
	}
	if s.FinalMetrics != nil && len(s.FinalMetrics.Suggestions) > 0 {
		b.WriteString(wrapStyledRunes(plainRunes("Focus next: "+strings.Join(s.FinalMetrics.Suggestions, " · "), suggestStyle), m.contentWidth()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(valueStyle.Render(fmt.Sprintf("+%d stars · +%d xp", m.reward.Stars, m.reward.Experience)))
	if m.reward.LeveledUp() {
		b.WriteString(headlineStyle.Render(fmt.Sprintf("  Level up! %d", m.reward.LevelAfter)))
	}
	b.WriteString("\n")
	for _, badge := range m.reward.NewBadges {
		b.WriteString(headlineStyle.Render("Badge: " + badge.Name))
		b.WriteString(labelStyle.Render(" - " + badge.Description))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("enter new session · esc quit"))
	return b.String()
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Readings %d", len(m.session.MetricsHistory))}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.1f", m.lastOverall))
	}
	if m.allCount > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.1f over %d", m.allOverall, m.allCount))
	}
	if m.streak > 0 {
		segments = append(segments, fmt.Sprintf("Streak %dd", m.streak))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) currentPrompt() string {
	if m.promptIdx < len(m.prompts) {
		return m.prompts[m.promptIdx]
	}
	return ""
}

func (m *Model) toggleFocus() {
	if m.focus == focusAudio {
		m.focus = focusNote
		m.audioInput.Blur()
		m.noteInput.Focus()
		return
	}
	m.focus = focusAudio
	m.noteInput.Blur()
	m.audioInput.Focus()
}

func (m *Model) submitAudio() tea.Cmd {
	if m.pending {
		return nil
	}
	path := strings.TrimSpace(m.audioInput.Value())
	if path == "" {
		return nil
	}
	m.pending = true
	m.errMsg = ""
	req := analyzer.Request{
		AudioPath:    path,
		Mode:         m.config.Mode,
		ExpectedText: m.currentPrompt(),
	}
	return analyzeCmd(m.deps.Analyzer, m.session.ID, req)
}

func analyzeCmd(a analyzer.Analyzer, sessionID string, req analyzer.Request) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res, err := a.Analyze(context.Background(), req)
		return analyzedMsg{
			sessionID: sessionID,
			path:      req.AudioPath,
			result:    res,
			err:       err,
			elapsed:   time.Since(start),
		}
	}
}

func (m *Model) handleAnalyzed(msg analyzedMsg) {
	m.pending = false
	if msg.sessionID != m.session.ID || m.state != statePractice {
		return
	}
	if msg.err != nil {
		m.errMsg = fmt.Sprintf("analysis failed: %v", msg.err)
		m.deps.Log.Warn().Err(msg.err).Str("path", msg.path).Msg("analysis failed")
		return
	}
	if err := m.deps.Service.Sessions.Update(m.session.ID, msg.result.Metrics); err != nil {
		m.errMsg = fmt.Sprintf("failed to record reading: %v", err)
		return
	}
	if t := strings.TrimSpace(msg.result.Transcript); t != "" {
		m.transcripts = append(m.transcripts, t)
	}
	m.refreshActive()
	last := msg.result.Metrics.Clone()
	m.last = &last
	m.audioInput.SetValue("")
	m.status = fmt.Sprintf("Analyzed %s in %s", msg.path, msg.elapsed.Round(time.Millisecond))

	m.promptIdx++
	if m.promptIdx >= len(m.prompts) {
		m.finish()
	}
}

func (m *Model) refreshActive() {
	active, ok := m.deps.Service.Sessions.Active()
	if !ok {
		return
	}
	m.session = active
	avg, err := statsPkg.FinalMetrics(active.MetricsHistory, time.Now())
	if err != nil {
		m.running = nil
		return
	}
	m.running = &avg
}

func (m *Model) submitNote() {
	text := strings.TrimSpace(m.noteInput.Value())
	if text == "" {
		return
	}
	if err := m.deps.Service.AddNote(context.Background(), m.session.ID, text); err != nil {
		m.errMsg = fmt.Sprintf("failed to add note: %v", err)
		return
	}
	m.noteInput.SetValue("")
	m.status = "Note added"
	m.refreshActive()
}

func (m *Model) finish() {
	if m.pending {
		m.status = "Wait for the analysis to finish"
		return
	}
	closed, reward, err := m.deps.Service.Finish(context.Background(), m.session.ID, session.EndOptions{
		Transcript: strings.Join(m.transcripts, " "),
	})
	if errors.Is(err, session.ErrEmptyMetricsHistory) {
		m.errMsg = "Record at least one clip before finishing"
		return
	}
	if err != nil && closed.ID == "" {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	if err != nil {
		m.errMsg = fmt.Sprintf("session not saved: %v", err)
		m.deps.Log.Error().Err(err).Str("session_id", closed.ID).Msg("finish")
	}
	m.finished = closed
	m.reward = reward
	m.state = stateSummary
	if closed.FinalMetrics != nil {
		m.lastOverall = closed.FinalMetrics.OverallScore
		m.hasLast = true
		m.allOverall = (m.allOverall*float64(m.allCount) + closed.FinalMetrics.OverallScore) / float64(m.allCount+1)
		m.allCount++
	}
	if m.deps.Service.Profile != nil {
		m.streak = m.deps.Service.Profile.Profile().CurrentStreak
	}
	if m.config.FocusWeak {
		m.refreshWeakSet()
	}
}

func (m *Model) abandon() {
	if m.state != statePractice || m.session.ID == "" {
		return
	}
	if _, err := m.deps.Service.Sessions.Abandon(m.session.ID); err != nil {
		m.deps.Log.Debug().Err(err).Msg("abandon")
	}
}

func (m *Model) startSession() error {
	s, err := m.deps.Service.Sessions.Start(m.config.Mode, m.config.Type, m.config.Scenario)
	if err != nil {
		return err
	}
	m.session = s
	m.promptIdx = 0
	m.transcripts = nil
	m.last = nil
	m.running = nil
	m.status = ""
	m.errMsg = ""
	m.prompts = m.generatePrompts()
	m.audioInput.SetValue("")
	m.noteInput.SetValue("")
	return nil
}

func (m *Model) generatePrompts() []string {
	if m.deps.Gen == nil || len(m.phrases) == 0 {
		return nil
	}
	count := m.config.Prompts
	if count <= 0 {
		count = 1
	}
	if m.config.FocusWeak && len(m.weakSet) > 0 {
		return m.deps.Gen.GenerateWeighted(m.phrases, count, m.weakSet, m.config.WeakFactor)
	}
	return m.deps.Gen.Generate(m.phrases, count)
}

func (m *Model) loadFooterStats() {
	if m.deps.Reader == nil {
		return
	}
	sessions, err := m.deps.Reader.ListSessions(context.Background(), model.StatsConfig{Mode: m.config.Mode})
	if err != nil {
		m.deps.Log.Warn().Err(err).Msg("failed to load session stats")
		return
	}
	if m.deps.Service.Profile != nil {
		m.streak = m.deps.Service.Profile.Profile().CurrentStreak
	}
	if len(sessions) == 0 {
		return
	}
	m.lastOverall = sessions[len(sessions)-1].OverallScore
	m.hasLast = true
	totals := statsPkg.Summarize(sessions)
	m.allOverall = totals.AvgOverall
	m.allCount = totals.Sessions
}

func (m *Model) refreshWeakSet() {
	if m.deps.Reader == nil {
		return
	}
	aggs, err := m.deps.Reader.RecentPhonemeAggregates(context.Background(), m.config.WeakWindow, m.config.Mode)
	if err != nil {
		m.deps.Log.Warn().Err(err).Msg("failed to load weak phonemes")
		return
	}
	m.weakSet = statsPkg.SelectWeakPhonemes(aggs, m.config.WeakTop)
}
