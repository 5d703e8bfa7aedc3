// Package profile keeps the durable profile counters and game progress.
package profile

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/voicebridge/internal/model"
)

const dateLayout = "2006-01-02"

// Persister loads and saves profile state.
type Persister interface {
	LoadProfile(ctx context.Context) (model.UserProfile, bool, error)
	SaveProfile(ctx context.Context, p model.UserProfile) error
	LoadProgress(ctx context.Context) (model.GameProgress, bool, error)
	SaveProgress(ctx context.Context, p model.GameProgress) error
}

// Store holds the profile in memory and writes through on every mutation.
// A failed write leaves the in-memory state unchanged.
type Store struct {
	mu       sync.Mutex
	persist  Persister
	profile  model.UserProfile
	progress model.GameProgress

	loc *time.Location
	log zerolog.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLocation sets the time zone that defines calendar days for streaks.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// Open loads profile state from p, falling back to defaults.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	s := &Store{
		persist: p,
		loc:     time.Local,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	prof, found, err := p.LoadProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !found {
		prof = defaultProfile()
	}
	prog, found, err := p.LoadProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if !found {
		prog = model.GameProgress{}
	}
	s.profile = prof
	s.progress = withLevel(prog)
	return s, nil
}

func defaultProfile() model.UserProfile {
	return model.UserProfile{Mode: model.ModeAdult}
}

// Profile returns a copy of the profile.
func (s *Store) Profile() model.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Progress returns a copy of the game progress.
func (s *Store) Progress() model.GameProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProgress(s.progress)
}

// RecordSession counts one closed session of the given duration finished at.
//
// Streaks follow calendar days in the store's location: a second session on
// the same day keeps the streak, the next day extends it, and any gap
// resets it to 1. A session dated before the last recorded day only updates
// the totals.
func (s *Store) RecordSession(ctx context.Context, duration time.Duration, at time.Time) (model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.profile
	next.TotalSessions++
	if duration > 0 {
		next.TotalMinutes += int(math.Round(duration.Minutes()))
	}

	day := at.In(s.loc).Format(dateLayout)
	switch {
	case next.LastSessionDate == "":
		next.CurrentStreak = 1
		next.LastSessionDate = day
	case day == next.LastSessionDate:
		if next.CurrentStreak == 0 {
			next.CurrentStreak = 1
		}
	case day < next.LastSessionDate:
		// out of order; totals only
	default:
		if s.isNextDay(next.LastSessionDate, day) {
			next.CurrentStreak++
		} else {
			next.CurrentStreak = 1
		}
		next.LastSessionDate = day
	}
	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)

	if err := s.persist.SaveProfile(ctx, next); err != nil {
		return s.profile, fmt.Errorf("save profile: %w", err)
	}
	s.profile = next
	s.log.Debug().
		Int("total_sessions", next.TotalSessions).
		Int("total_minutes", next.TotalMinutes).
		Int("streak", next.CurrentStreak).
		Msg("session recorded")
	return next, nil
}

func (s *Store) isNextDay(last, day string) bool {
	t, err := time.ParseInLocation(dateLayout, last, s.loc)
	if err != nil {
		return false
	}
	return t.AddDate(0, 0, 1).Format(dateLayout) == day
}

// AddStars adds n stars.
func (s *Store) AddStars(ctx context.Context, n int) (model.GameProgress, error) {
	if n < 0 {
		return model.GameProgress{}, fmt.Errorf("stars %d: %w", n, ErrNegativeAmount)
	}
	return s.updateProgress(ctx, func(p *model.GameProgress) error {
		return addAmount(&p.Stars, n)
	})
}

// AddExperience adds n experience and recomputes the level.
func (s *Store) AddExperience(ctx context.Context, n int) (model.GameProgress, error) {
	if n < 0 {
		return model.GameProgress{}, fmt.Errorf("experience %d: %w", n, ErrNegativeAmount)
	}
	return s.updateProgress(ctx, func(p *model.GameProgress) error {
		return addAmount(&p.Experience, n)
	})
}

// SetName updates the display name.
func (s *Store) SetName(ctx context.Context, name string) error {
	return s.updateProfile(ctx, func(p *model.UserProfile) {
		p.Name = strings.TrimSpace(name)
	})
}

// SetMode updates the default practice mode.
func (s *Store) SetMode(ctx context.Context, mode model.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return s.updateProfile(ctx, func(p *model.UserProfile) {
		p.Mode = mode
	})
}

// Reset clears counters and progress, keeping the name and mode.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prof := defaultProfile()
	prof.Name = s.profile.Name
	if s.profile.Mode.Valid() {
		prof.Mode = s.profile.Mode
	}
	prog := withLevel(model.GameProgress{})
	if err := s.persist.SaveProfile(ctx, prof); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if err := s.persist.SaveProgress(ctx, prog); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	s.profile = prof
	s.progress = prog
	s.log.Info().Msg("profile reset")
	return nil
}

func (s *Store) updateProfile(ctx context.Context, fn func(*model.UserProfile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.profile
	fn(&next)
	if err := s.persist.SaveProfile(ctx, next); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	s.profile = next
	return nil
}

func (s *Store) updateProgress(ctx context.Context, fn func(*model.GameProgress) error) (model.GameProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateProgressLocked(ctx, fn)
}

func (s *Store) updateProgressLocked(ctx context.Context, fn func(*model.GameProgress) error) (model.GameProgress, error) {
	next := cloneProgress(s.progress)
	if err := fn(&next); err != nil {
		return cloneProgress(s.progress), err
	}
	next = withLevel(next)
	if err := s.persist.SaveProgress(ctx, next); err != nil {
		return cloneProgress(s.progress), fmt.Errorf("save progress: %w", err)
	}
	s.progress = next
	return cloneProgress(next), nil
}

// addAmount adds a non-negative n to *counter, refusing to wrap around.
func addAmount(counter *int, n int) error {
	if n > math.MaxInt-*counter {
		return fmt.Errorf("%d + %d: %w", *counter, n, ErrAmountOverflow)
	}
	*counter += n
	return nil
}

func withLevel(p model.GameProgress) model.GameProgress {
	p.Level = LevelForExperience(p.Experience)
	p.ExperienceToNextLevel = ExperienceToNextLevel(p.Experience)
	return p
}

func cloneProgress(p model.GameProgress) model.GameProgress {
	if p.Badges != nil {
		p.Badges = append([]string(nil), p.Badges...)
	}
	return p
}
