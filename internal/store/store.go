// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/voicebridge/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Fixed-width UTC timestamps keep text ordering equal to time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// finalSeq marks rows that belong to a session's final metrics.
const finalSeq = -1

// Store wraps SQLite access for session and profile data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; sqlite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			type TEXT NOT NULL,
			scenario TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			transcript TEXT NOT NULL,
			audio_base64 TEXT NOT NULL,
			audio_format TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_readings (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			clarity REAL NOT NULL,
			nasality REAL NOT NULL,
			pacing REAL NOT NULL,
			breath REAL NOT NULL,
			overall REAL NOT NULL,
			suggestions TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS phoneme_errors (
			session_id TEXT NOT NULL,
			reading_seq INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			phoneme TEXT NOT NULL,
			position INTEGER NOT NULL,
			context TEXT NOT NULL,
			PRIMARY KEY (session_id, reading_seq, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS session_notes (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_phoneme_errors_phoneme ON phoneme_errors(phoneme);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a closed session with its readings, final metrics and notes.
func (s *Store) InsertSession(ctx context.Context, session model.PracticeSession) (err error) {
	if session.IsOpen() || session.FinalMetrics == nil {
		return ErrSessionOpen
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, mode, type, scenario, started_at, ended_at, duration_ms, transcript, audio_base64, audio_format)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		string(session.Mode),
		string(session.Type),
		string(session.Scenario),
		formatTime(session.StartTime),
		formatTime(*session.EndTime),
		session.Duration(*session.EndTime).Milliseconds(),
		session.Transcript,
		session.ProcessedAudioBase64,
		session.ProcessedAudioFormat,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for i, m := range session.MetricsHistory {
		if err = insertReading(ctx, tx, session.ID, i, m); err != nil {
			return err
		}
	}
	if err = insertReading(ctx, tx, session.ID, finalSeq, *session.FinalMetrics); err != nil {
		return err
	}
	if err = insertNotes(ctx, tx, session.ID, 0, session.Notes); err != nil {
		return err
	}

	return tx.Commit()
}

func insertReading(ctx context.Context, tx *sql.Tx, sessionID string, seq int, m model.SpeechMetrics) error {
	suggestions, err := json.Marshal(nonNil(m.Suggestions))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_readings (session_id, seq, clarity, nasality, pacing, breath, overall, suggestions, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, m.ClarityScore, m.NasalityScore, m.PacingScore, m.BreathControlScore, m.OverallScore,
		string(suggestions), formatTime(m.Timestamp),
	); err != nil {
		return fmt.Errorf("insert reading %d: %w", seq, err)
	}
	for i, pe := range m.PhonemeErrors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO phoneme_errors (session_id, reading_seq, idx, phoneme, position, context)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, seq, i, pe.Phoneme, pe.Position, pe.Context,
		); err != nil {
			return fmt.Errorf("insert phoneme error: %w", err)
		}
	}
	return nil
}

func insertNotes(ctx context.Context, tx *sql.Tx, sessionID string, start int, notes []string) error {
	for i, note := range notes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_notes (session_id, seq, body) VALUES (?, ?, ?)`,
			sessionID, start+i, note,
		); err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
	}
	return nil
}

// GetSession loads a full session by id.
func (s *Store) GetSession(ctx context.Context, id string) (model.PracticeSession, error) {
	var (
		session          model.PracticeSession
		mode, typ, scen  string
		startedAt, ended string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mode, type, scenario, started_at, ended_at, transcript, audio_base64, audio_format
		 FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &mode, &typ, &scen, &startedAt, &ended, &session.Transcript, &session.ProcessedAudioBase64, &session.ProcessedAudioFormat)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PracticeSession{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.PracticeSession{}, err
	}
	session.Mode = model.Mode(mode)
	session.Type = model.SessionType(typ)
	session.Scenario = model.Scenario(scen)
	if session.StartTime, err = parseTime(startedAt); err != nil {
		return model.PracticeSession{}, err
	}
	end, err := parseTime(ended)
	if err != nil {
		return model.PracticeSession{}, err
	}
	session.EndTime = &end

	readings, err := s.loadReadings(ctx, id)
	if err != nil {
		return model.PracticeSession{}, err
	}
	if final, ok := readings[finalSeq]; ok {
		session.FinalMetrics = &final
		delete(readings, finalSeq)
	}
	session.MetricsHistory = make([]model.SpeechMetrics, len(readings))
	for seq, m := range readings {
		if seq < 0 || seq >= len(session.MetricsHistory) {
			return model.PracticeSession{}, fmt.Errorf("session %s: reading sequence %d out of range", id, seq)
		}
		session.MetricsHistory[seq] = m
	}

	if session.Notes, err = s.loadNotes(ctx, id); err != nil {
		return model.PracticeSession{}, err
	}
	return session, nil
}

func (s *Store) loadReadings(ctx context.Context, id string) (map[int]model.SpeechMetrics, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, clarity, nasality, pacing, breath, overall, suggestions, recorded_at
		 FROM session_readings WHERE session_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	readings := map[int]model.SpeechMetrics{}
	for rows.Next() {
		var (
			seq         int
			m           model.SpeechMetrics
			suggestions string
			recordedAt  string
		)
		if err := rows.Scan(&seq, &m.ClarityScore, &m.NasalityScore, &m.PacingScore, &m.BreathControlScore, &m.OverallScore, &suggestions, &recordedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(suggestions), &m.Suggestions); err != nil {
			return nil, fmt.Errorf("decode suggestions: %w", err)
		}
		if m.Timestamp, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		readings[seq] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	errRows, err := s.db.QueryContext(ctx,
		`SELECT reading_seq, phoneme, position, context
		 FROM phoneme_errors WHERE session_id = ? ORDER BY reading_seq, idx`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := errRows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for errRows.Next() {
		var (
			seq int
			pe  model.PhonemeError
		)
		if err := errRows.Scan(&seq, &pe.Phoneme, &pe.Position, &pe.Context); err != nil {
			return nil, err
		}
		m := readings[seq]
		m.PhonemeErrors = append(m.PhonemeErrors, pe)
		readings[seq] = m
	}
	return readings, errRows.Err()
}

func (s *Store) loadNotes(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM session_notes WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var notes []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		notes = append(notes, body)
	}
	return notes, rows.Err()
}

// ListSessions returns session summaries filtered by stats config.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionSummary, error) {
	clauses := []string{"r.seq = ?"}
	args := []any{finalSeq}
	if cfg.Mode != "" {
		clauses = append(clauses, "s.mode = ?")
		args = append(args, string(cfg.Mode))
	}
	if cfg.Since != nil {
		clauses = append(clauses, "s.ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT s.id, s.mode, s.type, s.scenario, s.started_at, s.ended_at, s.duration_ms,
			r.overall, r.clarity, r.nasality, r.breath,
			(SELECT COUNT(*) FROM session_readings c WHERE c.session_id = s.id AND c.seq >= 0)
		FROM sessions s
		JOIN session_readings r ON r.session_id = s.id
		WHERE %s
		ORDER BY s.ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionSummary
	for rows.Next() {
		var (
			sum              model.SessionSummary
			mode, typ, scen  string
			startedAt, ended string
		)
		if err := rows.Scan(&sum.ID, &mode, &typ, &scen, &startedAt, &ended, &sum.DurationMs,
			&sum.OverallScore, &sum.ClarityScore, &sum.Nasality, &sum.Breath, &sum.Readings); err != nil {
			return nil, err
		}
		sum.Mode = model.Mode(mode)
		sum.Type = model.SessionType(typ)
		sum.Scenario = model.Scenario(scen)
		if sum.StartTime, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if sum.EndTime, err = parseTime(ended); err != nil {
			return nil, err
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListPhonemeAggregates counts final-metrics phoneme errors across sessions.
func (s *Store) ListPhonemeAggregates(ctx context.Context, sessionIDs []string) ([]model.PhonemeAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, 0, len(sessionIDs)+1)
	args = append(args, finalSeq)
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT phoneme, COUNT(*) AS errors, COUNT(DISTINCT session_id) AS sessions
		FROM phoneme_errors
		WHERE reading_seq = ? AND session_id IN (%s)
		GROUP BY phoneme`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.PhonemeAggregate
	for rows.Next() {
		var agg model.PhonemeAggregate
		if err := rows.Scan(&agg.Phoneme, &agg.Count, &agg.Sessions); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RecentPhonemeAggregates aggregates phoneme errors over the latest window sessions.
func (s *Store) RecentPhonemeAggregates(ctx context.Context, window int, mode model.Mode) ([]model.PhonemeAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE (? = '' OR mode = ?) ORDER BY ended_at DESC LIMIT ?`,
		string(mode), string(mode), window)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return s.ListPhonemeAggregates(ctx, ids)
}

// AddNote appends a note to a stored session.
func (s *Store) AddNote(ctx context.Context, id, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyNote
	}
	return s.withSession(ctx, id, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq) + 1, 0) FROM session_notes WHERE session_id = ?`, id,
		).Scan(&next); err != nil {
			return err
		}
		return insertNotes(ctx, tx, id, next, []string{text})
	})
}

// UpdateNotes replaces every note of a stored session.
func (s *Store) UpdateNotes(ctx context.Context, id string, notes []string) error {
	return s.withSession(ctx, id, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_notes WHERE session_id = ?`, id); err != nil {
			return err
		}
		return insertNotes(ctx, tx, id, 0, notes)
	})
}

func (s *Store) withSession(ctx context.Context, id string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		err = fmt.Errorf("session %s: %w", id, ErrNotFound)
		return err
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

var childTables = []string{"session_readings", "phoneme_errors", "session_notes"}

// DeleteSession removes a session and its child rows.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.withSession(ctx, id, func(tx *sql.Tx) error {
		for _, table := range childTables {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE session_id = ?`, table), id); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		return err
	})
}

// ClearSessions deletes every stored session and returns how many were removed.
func (s *Store) ClearSessions(ctx context.Context) (n int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	for _, table := range childTables {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return 0, err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, err
	}
	if n, err = res.RowsAffected(); err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(timeLayout, v)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
