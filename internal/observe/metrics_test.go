package observe

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder()
	r.SessionStarted("adult")
	r.SessionStarted("adult")
	r.SessionStarted("child")
	r.SessionFinished("adult", 82)
	r.SessionAbandoned()
	r.ReadingFolded()
	r.ReadingFolded()
	r.AnalyzerRequest(120*time.Millisecond, nil)
	r.AnalyzerRequest(time.Second, errors.New("boom"))

	if got := testutil.ToFloat64(r.sessionsStarted.WithLabelValues("adult")); got != 2 {
		t.Fatalf("expected 2 adult sessions started, got %v", got)
	}
	if got := testutil.ToFloat64(r.sessionsFinished.WithLabelValues("adult")); got != 1 {
		t.Fatalf("expected 1 finished session, got %v", got)
	}
	if got := testutil.ToFloat64(r.sessionsAbandoned); got != 1 {
		t.Fatalf("expected 1 abandoned session, got %v", got)
	}
	if got := testutil.ToFloat64(r.readingsFolded); got != 2 {
		t.Fatalf("expected 2 readings, got %v", got)
	}
	if got := testutil.ToFloat64(r.analyzerRequests.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 failed analyzer request, got %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.SessionStarted("adult")
	r.SessionFinished("adult", 50)
	r.SessionAbandoned()
	r.ReadingFolded()
	r.AnalyzerRequest(time.Second, nil)
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("expected nil recorder to skip textfile, got %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ReadingFolded()
	path := filepath.Join(t.TempDir(), "voicebridge.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "voicebridge_session_readings_total 1") {
		t.Fatalf("unexpected textfile contents: %s", data)
	}
}
