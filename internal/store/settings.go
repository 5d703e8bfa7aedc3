package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/verte-zerg/voicebridge/internal/model"
)

const (
	keyProfile  = "profile"
	keyProgress = "progress"
)

// LoadProfile reads the stored profile; found is false when none was saved.
func (s *Store) LoadProfile(ctx context.Context) (model.UserProfile, bool, error) {
	var p model.UserProfile
	found, err := s.getSetting(ctx, keyProfile, &p)
	return p, found, err
}

// SaveProfile stores the profile.
func (s *Store) SaveProfile(ctx context.Context, p model.UserProfile) error {
	return s.putSetting(ctx, keyProfile, p)
}

// LoadProgress reads stored game progress; found is false when none was saved.
func (s *Store) LoadProgress(ctx context.Context) (model.GameProgress, bool, error) {
	var p model.GameProgress
	found, err := s.getSetting(ctx, keyProgress, &p)
	return p, found, err
}

// SaveProgress stores game progress.
func (s *Store) SaveProgress(ctx context.Context, p model.GameProgress) error {
	return s.putSetting(ctx, keyProgress, p)
}

func (s *Store) getSetting(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) putSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(raw))
	return err
}
