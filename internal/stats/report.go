package stats

import (
	"context"

	"github.com/verte-zerg/voicebridge/internal/model"
)

// Reader is the slice of the store the report needs.
type Reader interface {
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionSummary, error)
	ListPhonemeAggregates(ctx context.Context, sessionIDs []string) ([]model.PhonemeAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions         []model.SessionSummary
	WindowSessionIDs []string
	PhonemesAll      []model.PhonemeAggregate
	PhonemesWindow   []model.PhonemeAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st Reader, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	all, err := st.ListPhonemeAggregates(ctx, sessionIDs(sessions))
	if err != nil {
		return Report{}, err
	}
	window, err := st.ListPhonemeAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		PhonemesAll:      all,
		PhonemesWindow:   window,
	}, nil
}

func sessionIDs(sessions []model.SessionSummary) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionSummary, window int) []string {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
