package profile

import (
	"slices"

	"github.com/verte-zerg/voicebridge/internal/model"
)

// BadgeID identifies an achievement.
type BadgeID string

const (
	BadgeFirstSession BadgeID = "first_session"
	BadgeStreak3      BadgeID = "streak_3"
	BadgeStreak7      BadgeID = "streak_7"
	BadgeClearSpeaker BadgeID = "clear_speaker"
	BadgeDedicated    BadgeID = "dedicated"
	BadgeMarathon     BadgeID = "marathon"
)

// Badge describes an achievement.
type Badge struct {
	ID          BadgeID
	Name        string
	Description string
}

// AllBadges lists every badge by ID.
var AllBadges = map[BadgeID]Badge{
	BadgeFirstSession: {ID: BadgeFirstSession, Name: "First Words", Description: "Finished a first practice session"},
	BadgeStreak3:      {ID: BadgeStreak3, Name: "On a Roll", Description: "Practiced 3 days in a row"},
	BadgeStreak7:      {ID: BadgeStreak7, Name: "Week Strong", Description: "Practiced 7 days in a row"},
	BadgeClearSpeaker: {ID: BadgeClearSpeaker, Name: "Clear Speaker", Description: "Overall score of 90 or more in a session"},
	BadgeDedicated:    {ID: BadgeDedicated, Name: "Dedicated", Description: "Finished 10 sessions"},
	BadgeMarathon:     {ID: BadgeMarathon, Name: "Marathon", Description: "Practiced 60 minutes in total"},
}

// EvaluateBadges returns badges earned by the profile and session that are
// not yet in progress.Badges.
func EvaluateBadges(p model.UserProfile, progress model.GameProgress, s model.PracticeSession) []Badge {
	var earned []BadgeID

	if p.TotalSessions >= 1 {
		earned = append(earned, BadgeFirstSession)
	}
	if p.CurrentStreak >= 3 {
		earned = append(earned, BadgeStreak3)
	}
	if p.CurrentStreak >= 7 {
		earned = append(earned, BadgeStreak7)
	}
	if s.FinalMetrics != nil && s.FinalMetrics.OverallScore >= 90 {
		earned = append(earned, BadgeClearSpeaker)
	}
	if p.TotalSessions >= 10 {
		earned = append(earned, BadgeDedicated)
	}
	if p.TotalMinutes >= 60 {
		earned = append(earned, BadgeMarathon)
	}

	var out []Badge
	for _, id := range earned {
		if slices.Contains(progress.Badges, string(id)) {
			continue
		}
		out = append(out, AllBadges[id])
	}
	return out
}
