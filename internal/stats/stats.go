// Package stats contains metrics aggregation and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/voicebridge/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - minVal) / (maxVal - minVal) * float64(last)))
		idx = max(0, min(idx, last))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Totals summarizes a set of closed sessions.
type Totals struct {
	Sessions     int
	AvgOverall   float64
	BestOverall  float64
	AvgClarity   float64
	AvgNasality  float64
	AvgBreath    float64
	TotalMinutes float64
}

// Summarize averages session scores.
func Summarize(sessions []model.SessionSummary) Totals {
	t := Totals{Sessions: len(sessions)}
	if len(sessions) == 0 {
		return t
	}
	for _, s := range sessions {
		t.AvgOverall += s.OverallScore
		t.AvgClarity += s.ClarityScore
		t.AvgNasality += s.Nasality
		t.AvgBreath += s.Breath
		t.TotalMinutes += float64(s.DurationMs) / 60000.0
		if s.OverallScore > t.BestOverall {
			t.BestOverall = s.OverallScore
		}
	}
	n := float64(len(sessions))
	t.AvgOverall /= n
	t.AvgClarity /= n
	t.AvgNasality /= n
	t.AvgBreath /= n
	return t
}

// RenderSummary prints a summary block for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionSummary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	t := Summarize(sessions)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", t.Sessions),
		fmt.Sprintf("Practice time: %.1f min", t.TotalMinutes),
		fmt.Sprintf("Avg overall: %.1f", t.AvgOverall),
		fmt.Sprintf("Best overall: %.1f", t.BestOverall),
		fmt.Sprintf("Avg clarity: %.1f", t.AvgClarity),
		fmt.Sprintf("Avg nasality: %.1f (lower is better)", t.AvgNasality),
		fmt.Sprintf("Avg breath control: %.1f", t.AvgBreath),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderMetrics prints one metrics reading or session summary.
func RenderMetrics(w io.Writer, title string, m model.SpeechMetrics) error {
	headers := []string{"Metric", "Score"}
	rows := [][]string{
		{"Overall", fmt.Sprintf("%.1f", m.OverallScore)},
		{"Clarity", fmt.Sprintf("%.1f", m.ClarityScore)},
		{"Nasality", fmt.Sprintf("%.1f", m.NasalityScore)},
		{"Pacing", fmt.Sprintf("%.2f", m.PacingScore)},
		{"Breath control", fmt.Sprintf("%.1f", m.BreathControlScore)},
		{"Phoneme errors", fmt.Sprintf("%d", len(m.PhonemeErrors))},
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, s := range m.Suggestions {
		if _, err := fmt.Fprintf(w, "  tip: %s\n", s); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves prints progress curves for overall score and clarity.
func RenderCurves(w io.Writer, sessions []model.SessionSummary, window int) error {
	return RenderCurvesWithSize(w, sessions, window, 0, false)
}

// RenderCurvesWithSize prints progress curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionSummary, window, totalWidth int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	overall := make([]float64, len(sessions))
	clarity := make([]float64, len(sessions))
	breath := make([]float64, len(sessions))
	for i, s := range sessions {
		overall[i] = s.OverallScore
		clarity[i] = s.ClarityScore
		breath[i] = s.Breath
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Progress", []Series{
		{Name: "Overall", Values: MovingAverage(overall, window)},
		{Name: "Clarity", Values: MovingAverage(clarity, window)},
		{Name: "Breath", Values: MovingAverage(breath, window)},
	}, width, useColor)
}

// RenderPhonemeTable prints phoneme error aggregates, most frequent first.
func RenderPhonemeTable(w io.Writer, aggs []model.PhonemeAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No phoneme errors recorded.")
		return err
	}
	rows := make([]model.PhonemeAggregate, len(aggs))
	copy(rows, aggs)
	sortPhonemes(rows)

	if _, err := fmt.Fprintln(w, "Phoneme Errors"); err != nil {
		return err
	}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			"/" + r.Phoneme + "/",
			fmt.Sprintf("%d", r.Count),
			fmt.Sprintf("%d", r.Sessions),
		})
	}
	lines := formatTable([]string{"Phoneme", "Errors", "Sessions"}, tableRows, map[int]bool{1: true, 2: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func sortPhonemes(rows []model.PhonemeAggregate) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Phoneme < rows[j].Phoneme
		}
		return rows[i].Count > rows[j].Count
	})
}
