package profile_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/verte-zerg/voicebridge/internal/model"
	"github.com/verte-zerg/voicebridge/internal/profile"
)

type memPersister struct {
	mu       sync.Mutex
	profile  *model.UserProfile
	progress *model.GameProgress
	saves    int
	failSave error
}

func (m *memPersister) LoadProfile(context.Context) (model.UserProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return model.UserProfile{}, false, nil
	}
	return *m.profile, true, nil
}

func (m *memPersister) SaveProfile(_ context.Context, p model.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.saves++
	m.profile = &p
	return nil
}

func (m *memPersister) LoadProgress(context.Context) (model.GameProgress, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.progress == nil {
		return model.GameProgress{}, false, nil
	}
	return *m.progress, true, nil
}

func (m *memPersister) SaveProgress(_ context.Context, p model.GameProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave != nil {
		return m.failSave
	}
	m.saves++
	m.progress = &p
	return nil
}

func day(d, hour int) time.Time {
	return time.Date(2026, 5, d, hour, 0, 0, 0, time.UTC)
}

func openStore(p profile.Persister) *profile.Store {
	s, err := profile.Open(context.Background(), p, profile.WithLocation(time.UTC))
	So(err, ShouldBeNil)
	return s
}

func TestOpenDefaults(t *testing.T) {
	Convey("Given an empty persister", t, func() {
		s := openStore(&memPersister{})

		Convey("Then the profile starts at level 1 with no sessions", func() {
			So(s.Profile().TotalSessions, ShouldEqual, 0)
			So(s.Profile().Mode, ShouldEqual, model.ModeAdult)
			So(s.Progress().Level, ShouldEqual, 1)
			So(s.Progress().ExperienceToNextLevel, ShouldEqual, 100)
		})
	})

	Convey("Given saved state", t, func() {
		p := &memPersister{
			profile:  &model.UserProfile{Name: "Sam", Mode: model.ModeChild, TotalSessions: 4},
			progress: &model.GameProgress{Experience: 260},
		}
		s := openStore(p)

		Convey("Then it is loaded and the level is derived", func() {
			So(s.Profile().Name, ShouldEqual, "Sam")
			So(s.Profile().TotalSessions, ShouldEqual, 4)
			So(s.Progress().Level, ShouldEqual, 3)
		})
	})
}

func TestRecordSessionStreaks(t *testing.T) {
	Convey("Given a fresh profile", t, func() {
		ctx := context.Background()
		p := &memPersister{}
		s := openStore(p)

		Convey("Sessions on consecutive days build a streak of 2", func() {
			_, err := s.RecordSession(ctx, 10*time.Minute, day(1, 9))
			So(err, ShouldBeNil)
			prof, err := s.RecordSession(ctx, 5*time.Minute, day(2, 20))
			So(err, ShouldBeNil)
			So(prof.CurrentStreak, ShouldEqual, 2)
			So(prof.LongestStreak, ShouldEqual, 2)
			So(prof.TotalSessions, ShouldEqual, 2)
			So(prof.TotalMinutes, ShouldEqual, 15)
			So(p.profile.CurrentStreak, ShouldEqual, 2)
		})

		Convey("Skipping a day resets the streak to 1", func() {
			_, _ = s.RecordSession(ctx, time.Minute, day(1, 9))
			_, _ = s.RecordSession(ctx, time.Minute, day(2, 9))
			prof, err := s.RecordSession(ctx, time.Minute, day(4, 9))
			So(err, ShouldBeNil)
			So(prof.CurrentStreak, ShouldEqual, 1)
			So(prof.LongestStreak, ShouldEqual, 2)
		})

		Convey("Two sessions on the same day keep the streak", func() {
			_, _ = s.RecordSession(ctx, time.Minute, day(1, 1))
			prof, _ := s.RecordSession(ctx, time.Minute, day(1, 23))
			So(prof.CurrentStreak, ShouldEqual, 1)
			So(prof.TotalSessions, ShouldEqual, 2)
		})

		Convey("Midnight ends the calendar day", func() {
			_, _ = s.RecordSession(ctx, time.Minute, time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC))
			prof, _ := s.RecordSession(ctx, time.Minute, time.Date(2026, 5, 2, 0, 1, 0, 0, time.UTC))
			So(prof.CurrentStreak, ShouldEqual, 2)
		})

		Convey("An older session only updates totals", func() {
			_, _ = s.RecordSession(ctx, time.Minute, day(5, 9))
			prof, _ := s.RecordSession(ctx, time.Minute, day(3, 9))
			So(prof.CurrentStreak, ShouldEqual, 1)
			So(prof.LastSessionDate, ShouldEqual, "2026-05-05")
			So(prof.TotalSessions, ShouldEqual, 2)
		})

		Convey("Durations round to whole minutes", func() {
			prof, _ := s.RecordSession(ctx, 90*time.Second, day(1, 9))
			So(prof.TotalMinutes, ShouldEqual, 2)
			prof, _ = s.RecordSession(ctx, 20*time.Second, day(1, 10))
			So(prof.TotalMinutes, ShouldEqual, 2)
		})
	})
}

func TestRecordSessionPersistFailure(t *testing.T) {
	Convey("Given a persister that fails on save", t, func() {
		boom := errors.New("disk full")
		p := &memPersister{}
		s := openStore(p)
		p.failSave = boom

		Convey("The error is returned and memory is unchanged", func() {
			_, err := s.RecordSession(context.Background(), time.Minute, day(1, 9))
			So(errors.Is(err, boom), ShouldBeTrue)
			So(s.Profile().TotalSessions, ShouldEqual, 0)
			_, err = s.AddStars(context.Background(), 3)
			So(errors.Is(err, boom), ShouldBeTrue)
			So(s.Progress().Stars, ShouldEqual, 0)
		})
	})
}

func TestCounters(t *testing.T) {
	Convey("Given a fresh profile", t, func() {
		ctx := context.Background()
		s := openStore(&memPersister{})

		Convey("Stars and experience add up and drive the level", func() {
			_, err := s.AddStars(ctx, 2)
			So(err, ShouldBeNil)
			prog, err := s.AddExperience(ctx, 120)
			So(err, ShouldBeNil)
			So(prog.Stars, ShouldEqual, 2)
			So(prog.Level, ShouldEqual, 2)
			So(prog.ExperienceToNextLevel, ShouldEqual, 130)
		})

		Convey("Negative amounts are rejected", func() {
			_, err := s.AddStars(ctx, -1)
			So(errors.Is(err, profile.ErrNegativeAmount), ShouldBeTrue)
			_, err = s.AddExperience(ctx, -5)
			So(errors.Is(err, profile.ErrNegativeAmount), ShouldBeTrue)
		})

		Convey("Sums past the int range are rejected and leave the counters alone", func() {
			_, err := s.AddExperience(ctx, math.MaxInt)
			So(err, ShouldBeNil)
			_, err = s.AddExperience(ctx, 1)
			So(errors.Is(err, profile.ErrAmountOverflow), ShouldBeTrue)
			So(s.Progress().Experience, ShouldEqual, math.MaxInt)
			So(s.Progress().ExperienceToNextLevel, ShouldBeGreaterThanOrEqualTo, 0)

			_, err = s.AddStars(ctx, math.MaxInt)
			So(err, ShouldBeNil)
			_, err = s.AddStars(ctx, 3)
			So(errors.Is(err, profile.ErrAmountOverflow), ShouldBeTrue)
			So(s.Progress().Stars, ShouldEqual, math.MaxInt)
		})

		Convey("Name and mode are editable and survive a reset", func() {
			So(s.SetName(ctx, "  Ada "), ShouldBeNil)
			So(s.SetMode(ctx, model.ModeChild), ShouldBeNil)
			So(errors.Is(s.SetMode(ctx, model.Mode("x")), profile.ErrInvalidMode), ShouldBeTrue)
			_, _ = s.AddExperience(ctx, 500)
			_, _ = s.RecordSession(ctx, time.Minute, day(1, 9))

			So(s.Reset(ctx), ShouldBeNil)
			So(s.Profile().Name, ShouldEqual, "Ada")
			So(s.Profile().Mode, ShouldEqual, model.ModeChild)
			So(s.Profile().TotalSessions, ShouldEqual, 0)
			So(s.Progress().Experience, ShouldEqual, 0)
			So(s.Progress().Level, ShouldEqual, 1)
		})
	})
}

func TestConcurrentRecordSession(t *testing.T) {
	Convey("Given many sessions closing at once", t, func() {
		s := openStore(&memPersister{})
		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.RecordSession(context.Background(), time.Minute, day(1, 9))
			}()
		}
		wg.Wait()

		Convey("Every increment is counted", func() {
			So(s.Profile().TotalSessions, ShouldEqual, 40)
			So(s.Profile().TotalMinutes, ShouldEqual, 40)
			So(s.Profile().CurrentStreak, ShouldEqual, 1)
		})
	})
}
