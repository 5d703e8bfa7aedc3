package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/voicebridge/internal/observe"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator sets the session ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r *observe.Recorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}
