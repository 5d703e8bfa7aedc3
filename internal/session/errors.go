package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrNoActiveSession     = errors.New("no active session")
	ErrSessionActive       = errors.New("a session is already active")
	ErrSessionMismatch     = errors.New("session is not active")
	ErrEmptyMetricsHistory = errors.New("no readings to average and no final metrics supplied")
	ErrNonFiniteMetrics    = errors.New("metrics contain non-finite scores")
	ErrEmptyNote           = errors.New("note text is empty")
	ErrInvalidMode         = errors.New("invalid mode")
	ErrInvalidType         = errors.New("invalid session type")
	ErrInvalidScenario     = errors.New("invalid scenario")
)
