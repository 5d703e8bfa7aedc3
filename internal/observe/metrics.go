// Package observe provides Prometheus metrics for practice sessions.
package observe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voicebridge"

// Recorder owns the practice metrics on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	sessionsStarted   *prometheus.CounterVec
	sessionsFinished  *prometheus.CounterVec
	sessionsAbandoned prometheus.Counter
	readingsFolded    prometheus.Counter
	sessionScore      prometheus.Histogram

	analyzerRequests *prometheus.CounterVec
	analyzerLatency  prometheus.Histogram
}

// NewRecorder registers every metric on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Practice sessions started, by mode.",
		}, []string{"mode"}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "finished_total",
			Help:      "Practice sessions closed with final metrics, by mode.",
		}, []string{"mode"}),
		sessionsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "abandoned_total",
			Help:      "Practice sessions abandoned without final metrics.",
		}),
		readingsFolded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "readings_total",
			Help:      "Per-utterance metrics readings folded into sessions.",
		}),
		sessionScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "overall_score",
			Help:      "Final overall score of closed sessions.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		analyzerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "requests_total",
			Help:      "Speech analysis requests, by outcome.",
		}, []string{"outcome"}),
		analyzerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "request_duration_seconds",
			Help:      "Speech analysis request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	r.registry.MustRegister(
		r.sessionsStarted,
		r.sessionsFinished,
		r.sessionsAbandoned,
		r.readingsFolded,
		r.sessionScore,
		r.analyzerRequests,
		r.analyzerLatency,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// SessionStarted counts a started session.
func (r *Recorder) SessionStarted(mode string) {
	if r == nil {
		return
	}
	r.sessionsStarted.WithLabelValues(mode).Inc()
}

// SessionFinished counts a closed session and observes its overall score.
func (r *Recorder) SessionFinished(mode string, overall float64) {
	if r == nil {
		return
	}
	r.sessionsFinished.WithLabelValues(mode).Inc()
	r.sessionScore.Observe(overall)
}

// SessionAbandoned counts an abandoned session.
func (r *Recorder) SessionAbandoned() {
	if r == nil {
		return
	}
	r.sessionsAbandoned.Inc()
}

// ReadingFolded counts one folded reading.
func (r *Recorder) ReadingFolded() {
	if r == nil {
		return
	}
	r.readingsFolded.Inc()
}

// AnalyzerRequest records one analysis call.
func (r *Recorder) AnalyzerRequest(elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.analyzerRequests.WithLabelValues(outcome).Inc()
	r.analyzerLatency.Observe(elapsed.Seconds())
}

// WriteTextfile writes the current metrics in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
