package analyzer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/voicebridge/internal/model"
)

func writeAudio(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestAnalyzeSendsAudioAndDecodesScores(t *testing.T) {
	var got analyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"clarity_score": 82.5, "nasality_score": 18, "pacing_score": 3.1,
			"breath_control_score": 70, "overall_score": 77,
			"phoneme_errors": [{"phoneme": "r", "position": 2, "context": "red"}],
			"suggestions": ["Slow down"], "transcript": "red car"
		}`))
	}))
	defer srv.Close()

	path := writeAudio(t, "clip.MP3", []byte("fake-audio"))
	c := NewHTTPClient(srv.URL+"/", WithTimeout(time.Second))
	res, err := c.Analyze(context.Background(), Request{AudioPath: path, Mode: model.ModeChild, ExpectedText: "red car"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if got.Format != "mp3" || got.Mode != "child" || got.ExpectedText != "red car" {
		t.Fatalf("unexpected request body: %+v", got)
	}
	raw, err := base64.StdEncoding.DecodeString(got.Audio)
	if err != nil || string(raw) != "fake-audio" {
		t.Fatalf("unexpected audio payload %q (%v)", raw, err)
	}

	m := res.Metrics
	if m.ClarityScore != 82.5 || m.OverallScore != 77 || m.PacingScore != 3.1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	if len(m.PhonemeErrors) != 1 || m.PhonemeErrors[0].Phoneme != "r" || m.PhonemeErrors[0].Context != "red" {
		t.Fatalf("unexpected phoneme errors: %+v", m.PhonemeErrors)
	}
	if res.Transcript != "red car" || m.Timestamp.IsZero() {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestAnalyzeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Analyze(context.Background(), Request{Audio: []byte("x")})
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}

func TestAnalyzeBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"clarity_score": "high"`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).Analyze(context.Background(), Request{Audio: []byte("x")})
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewHTTPClient(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.Analyze(context.Background(), Request{Audio: []byte("x")})
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed on timeout, got %v", err)
	}
}

func TestAnalyzeWithoutAudio(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1")
	if _, err := c.Analyze(context.Background(), Request{}); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]string{
		"a.wav":      "wav",
		"b.WEBM":     "webm",
		"c.opus":     "ogg",
		"noext":      DefaultFormat,
		"dir/d.flac": "flac",
	}
	for path, want := range cases {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Fatalf("FormatFromPath(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	if _, err := FormatFromPath("notes.txt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadAudioRejectsEmptyFile(t *testing.T) {
	path := writeAudio(t, "empty.wav", nil)
	if _, _, err := ReadAudio(path); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

type fakeAnalyzer struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	fail     string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req Request) (Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if req.ExpectedText == f.fail {
		return Result{}, ErrAnalysisFailed
	}
	return Result{Transcript: req.ExpectedText}, nil
}

func TestAnalyzeAllKeepsOrderAndLimit(t *testing.T) {
	f := &fakeAnalyzer{fail: "-"}
	reqs := make([]Request, 8)
	for i := range reqs {
		reqs[i] = Request{Audio: []byte("x"), ExpectedText: string(rune('a' + i))}
	}
	results, err := AnalyzeAll(context.Background(), f, reqs, 2)
	if err != nil {
		t.Fatalf("analyze all: %v", err)
	}
	for i, res := range results {
		if res.Transcript != reqs[i].ExpectedText {
			t.Fatalf("result %d out of order: %q", i, res.Transcript)
		}
	}
	if peak := f.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 in flight, saw %d", peak)
	}
}

func TestAnalyzeAllFails(t *testing.T) {
	f := &fakeAnalyzer{fail: "b"}
	reqs := []Request{{AudioPath: "a.wav", ExpectedText: "a"}, {AudioPath: "b.wav", ExpectedText: "b"}}
	_, err := AnalyzeAll(context.Background(), f, reqs, 4)
	if !errors.Is(err, ErrAnalysisFailed) || !strings.Contains(err.Error(), "b.wav") {
		t.Fatalf("expected wrapped failure for b.wav, got %v", err)
	}
}
