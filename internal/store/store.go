// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/recall/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for the best streak and round history.
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
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			target TEXT NOT NULL,
			input TEXT NOT NULL,
			success INTEGER NOT NULL,
			shown_ms INTEGER NOT NULL,
			played_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_played_at ON rounds(played_at);`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetInt reads an integer value. The bool is false when the key is absent.
func (s *Store) GetInt(ctx context.Context, key string) (int, bool, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// SetInt writes an integer value, replacing any previous one.
func (s *Store) SetInt(ctx context.Context, key string, value int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// DeleteKey removes a key. Missing keys are not an error.
func (s *Store) DeleteKey(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// InsertRound stores a finished round.
func (s *Store) InsertRound(ctx context.Context, rec model.RoundRecord) (int64, error) {
	success := 0
	if rec.Success {
		success = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (session_id, level, target, input, success, shown_ms, played_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.Level,
		rec.Target,
		rec.Input,
		success,
		rec.ShownMs,
		rec.PlayedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRounds returns stored rounds in play order, filtered by stats config.
// Last keeps only the most recent N rounds.
func (s *Store) ListRounds(ctx context.Context, cfg model.StatsConfig) ([]model.RoundRow, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "played_at >= ?")
		args = append(args, cfg.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, session_id, level, target, input, success, shown_ms, played_at
		FROM rounds
		WHERE %s
		ORDER BY played_at ASC, id ASC`, strings.Join(clauses, " AND "))
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

	var result []model.RoundRow
	for rows.Next() {
		var row model.RoundRow
		var success int
		var playedAt string
		if err := rows.Scan(&row.ID, &row.SessionID, &row.Level, &row.Target, &row.Input, &success, &row.ShownMs, &playedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, playedAt)
		if err != nil {
			return nil, err
		}
		row.PlayedAt = parsed
		row.Success = success != 0
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(result) > cfg.Last {
		result = result[len(result)-cfg.Last:]
	}
	return result, nil
}
