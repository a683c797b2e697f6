// Package audit persists a record of every advisory run for cost
// tracking and debugging.
package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/finquill/advisor/core"
)

// Store is a SQLite-backed run log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database and initializes the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	createSQL := `CREATE TABLE IF NOT EXISTS advisory_runs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(createSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record inserts one run record.
func (s *Store) Record(ctx context.Context, rec *core.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO advisory_runs
		(id, user_id, attempts, prompt_tokens, completion_tokens, success, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Attempts, rec.PromptTokens, rec.CompletionTokens,
		boolToInt(rec.Success), rec.Error, rec.DurationMs, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*core.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, attempts, prompt_tokens, completion_tokens, success, error, duration_ms, created_at
		FROM advisory_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []*core.RunRecord
	for rows.Next() {
		rec := &core.RunRecord{}
		var success int
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Attempts, &rec.PromptTokens,
			&rec.CompletionTokens, &success, &rec.Error, &rec.DurationMs, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		rec.Success = success != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
