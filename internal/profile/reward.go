package profile

import (
	"context"

	"github.com/verte-zerg/voicebridge/internal/model"
)

const experiencePerReading = 10

// Reward is what a finished session earned.
type Reward struct {
	Stars       int
	Experience  int
	LevelBefore int
	LevelAfter  int
	NewBadges   []Badge
}

// LeveledUp reports whether the reward crossed a level threshold.
func (r Reward) LeveledUp() bool {
	return r.LevelAfter > r.LevelBefore
}

// StarsForScore maps an overall score to 0-3 stars.
func StarsForScore(overall float64) int {
	switch {
	case overall >= 90:
		return 3
	case overall >= 75:
		return 2
	case overall >= 50:
		return 1
	default:
		return 0
	}
}

// ExperienceForSession is 10 per reading plus a tenth of the overall score.
func ExperienceForSession(s model.PracticeSession) int {
	xp := experiencePerReading * len(s.MetricsHistory)
	if s.FinalMetrics != nil && s.FinalMetrics.OverallScore > 0 {
		xp += int(s.FinalMetrics.OverallScore / 10)
	}
	return xp
}

// Reward grants stars, experience and badges for a closed session. Call it
// after RecordSession so streak and total badges see the new session.
func (s *Store) Reward(ctx context.Context, session model.PracticeSession) (Reward, error) {
	if session.FinalMetrics == nil {
		return Reward{}, ErrSessionNotClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := Reward{
		Stars:       StarsForScore(session.FinalMetrics.OverallScore),
		Experience:  ExperienceForSession(session),
		LevelBefore: s.progress.Level,
		NewBadges:   EvaluateBadges(s.profile, s.progress, session),
	}
	next, err := s.updateProgressLocked(ctx, func(p *model.GameProgress) error {
		if err := addAmount(&p.Stars, r.Stars); err != nil {
			return err
		}
		if err := addAmount(&p.Experience, r.Experience); err != nil {
			return err
		}
		for _, b := range r.NewBadges {
			p.Badges = append(p.Badges, string(b.ID))
		}
		return nil
	})
	if err != nil {
		return Reward{}, err
	}
	r.LevelAfter = next.Level
	s.log.Info().
		Str("session_id", session.ID).
		Int("stars", r.Stars).
		Int("xp", r.Experience).
		Int("level", r.LevelAfter).
		Int("badges", len(r.NewBadges)).
		Msg("session rewarded")
	return r, nil
}
