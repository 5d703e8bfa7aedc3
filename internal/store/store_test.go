package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/voicebridge/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "voicebridge.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func closedSession(id string, start time.Time, overall float64, phonemes ...string) model.PracticeSession {
	end := start.Add(90 * time.Second)
	var errs []model.PhonemeError
	for i, p := range phonemes {
		errs = append(errs, model.PhonemeError{Phoneme: p, Position: i, Context: "word"})
	}
	reading := model.SpeechMetrics{
		ClarityScore:       overall + 5,
		NasalityScore:      20,
		PacingScore:        3.1,
		BreathControlScore: 70,
		OverallScore:       overall,
		PhonemeErrors:      errs,
		Suggestions:        []string{"Slow down"},
		Timestamp:          start.Add(30 * time.Second),
	}
	final := reading.Clone()
	final.Timestamp = end
	return model.PracticeSession{
		ID:             id,
		Mode:           model.ModeAdult,
		Type:           model.TypeFreePractice,
		StartTime:      start,
		EndTime:        &end,
		MetricsHistory: []model.SpeechMetrics{reading},
		FinalMetrics:   &final,
		Notes:          []string{"felt good"},
		Transcript:     "hello there",
	}
}

func TestInsertAndGetSession(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	session := closedSession("s1", start, 80, "s", "p")

	if err := st.InsertSession(ctx, session); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	got, err := st.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Mode != model.ModeAdult || got.Type != model.TypeFreePractice {
		t.Fatalf("unexpected mode/type: %s/%s", got.Mode, got.Type)
	}
	if !got.StartTime.Equal(start) || got.EndTime == nil || !got.EndTime.Equal(*session.EndTime) {
		t.Fatalf("unexpected times: %v - %v", got.StartTime, got.EndTime)
	}
	if len(got.MetricsHistory) != 1 || len(got.MetricsHistory[0].PhonemeErrors) != 2 {
		t.Fatalf("unexpected history: %+v", got.MetricsHistory)
	}
	if got.FinalMetrics == nil || got.FinalMetrics.OverallScore != 80 {
		t.Fatalf("unexpected final metrics: %+v", got.FinalMetrics)
	}
	if len(got.FinalMetrics.Suggestions) != 1 || got.FinalMetrics.Suggestions[0] != "Slow down" {
		t.Fatalf("unexpected suggestions: %v", got.FinalMetrics.Suggestions)
	}
	if len(got.Notes) != 1 || got.Notes[0] != "felt good" {
		t.Fatalf("unexpected notes: %v", got.Notes)
	}
	if got.Transcript != "hello there" {
		t.Fatalf("unexpected transcript: %q", got.Transcript)
	}
}

func TestInsertRejectsOpenSession(t *testing.T) {
	st := openTestStore(t)
	open := model.PracticeSession{ID: "open", StartTime: time.Now()}
	if err := st.InsertSession(context.Background(), open); !errors.Is(err, ErrSessionOpen) {
		t.Fatalf("expected ErrSessionOpen, got %v", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.GetSession(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSessionsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		s := closedSession(id, base.Add(time.Duration(i)*24*time.Hour), float64(60+10*i))
		if id == "b" {
			s.Mode = model.ModeChild
		}
		if err := st.InsertSession(ctx, s); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	all, err := st.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if all[1].OverallScore != 70 || all[1].Readings != 1 || all[1].DurationMs != 90000 {
		t.Fatalf("unexpected summary: %+v", all[1])
	}

	adult, err := st.ListSessions(ctx, model.StatsConfig{Mode: model.ModeAdult})
	if err != nil {
		t.Fatalf("list adult sessions: %v", err)
	}
	if len(adult) != 2 {
		t.Fatalf("expected 2 adult sessions, got %d", len(adult))
	}

	since := base.Add(36 * time.Hour)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list recent sessions: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "c" {
		t.Fatalf("unexpected recent sessions: %+v", recent)
	}
}

func TestPhonemeAggregates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	if err := st.InsertSession(ctx, closedSession("a", base, 70, "s", "s", "p")); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := st.InsertSession(ctx, closedSession("b", base.Add(time.Hour), 75, "s")); err != nil {
		t.Fatalf("insert b: %v", err)
	}

	aggs, err := st.ListPhonemeAggregates(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	byPhoneme := map[string]model.PhonemeAggregate{}
	for _, agg := range aggs {
		byPhoneme[agg.Phoneme] = agg
	}
	if byPhoneme["s"].Count != 3 || byPhoneme["s"].Sessions != 2 {
		t.Fatalf("unexpected s aggregate: %+v", byPhoneme["s"])
	}
	if byPhoneme["p"].Count != 1 {
		t.Fatalf("unexpected p aggregate: %+v", byPhoneme["p"])
	}

	recent, err := st.RecentPhonemeAggregates(ctx, 1, "")
	if err != nil {
		t.Fatalf("recent aggregates: %v", err)
	}
	if len(recent) != 1 || recent[0].Phoneme != "s" || recent[0].Count != 1 {
		t.Fatalf("unexpected recent aggregates: %+v", recent)
	}
}

func TestNotes(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.InsertSession(ctx, closedSession("n", time.Now(), 70)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.AddNote(ctx, "n", "second"); err != nil {
		t.Fatalf("add note: %v", err)
	}
	if err := st.AddNote(ctx, "n", "   "); !errors.Is(err, ErrEmptyNote) {
		t.Fatalf("expected ErrEmptyNote, got %v", err)
	}
	if err := st.AddNote(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, err := st.GetSession(ctx, "n")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Notes) != 2 || got.Notes[1] != "second" {
		t.Fatalf("unexpected notes: %v", got.Notes)
	}

	if err := st.UpdateNotes(ctx, "n", []string{"replaced"}); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	got, err = st.GetSession(ctx, "n")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Notes) != 1 || got.Notes[0] != "replaced" {
		t.Fatalf("unexpected notes after update: %v", got.Notes)
	}
}

func TestDeleteAndClear(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := st.InsertSession(ctx, closedSession(id, base.Add(time.Duration(i)*time.Hour), 70, "s")); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if err := st.DeleteSession(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteSession(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	n, err := st.ClearSessions(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 cleared sessions, got %d", n)
	}
	aggs, err := st.ListPhonemeAggregates(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	if len(aggs) != 0 {
		t.Fatalf("expected child rows to be removed, got %+v", aggs)
	}
}

func TestProfileSettings(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, found, err := st.LoadProfile(ctx); err != nil || found {
		t.Fatalf("expected no profile, found=%v err=%v", found, err)
	}
	want := model.UserProfile{Name: "Sam", Mode: model.ModeChild, TotalSessions: 3, CurrentStreak: 2, LastSessionDate: "2026-04-02"}
	if err := st.SaveProfile(ctx, want); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	want.TotalSessions = 4
	if err := st.SaveProfile(ctx, want); err != nil {
		t.Fatalf("overwrite profile: %v", err)
	}
	got, found, err := st.LoadProfile(ctx)
	if err != nil || !found {
		t.Fatalf("load profile: found=%v err=%v", found, err)
	}
	if got.Name != "Sam" || got.TotalSessions != 4 || got.LastSessionDate != "2026-04-02" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	if err := st.SaveProgress(ctx, model.GameProgress{Stars: 5, Experience: 120, Level: 2, Badges: []string{"first_session"}}); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	progress, found, err := st.LoadProgress(ctx)
	if err != nil || !found {
		t.Fatalf("load progress: found=%v err=%v", found, err)
	}
	if progress.Stars != 5 || progress.Level != 2 || len(progress.Badges) != 1 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}
