package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/clicker/internal/domain/document"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scores (
    hash         TEXT PRIMARY KEY,
    video_id     TEXT NOT NULL,
    judge_name   TEXT NOT NULL DEFAULT '',
    date_ms      INTEGER NOT NULL,
    scores_json  TEXT NOT NULL,
    published_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS scores_video_id ON scores (video_id);
`

// SQLiteStore persists documents in a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: ensure directory: %v", ErrTransport, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %v", ErrTransport, err)
	}
	// Pragmas below are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: apply pragma %q: %v", ErrTransport, pragma, execErr)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", ErrTransport, err)
	}

	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// QueryByHash implements Store.
func (s *SQLiteStore) QueryByHash(ctx context.Context, hash string) (document.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, video_id, judge_name, date_ms, scores_json FROM scores WHERE hash = ? LIMIT 2`,
		hash,
	)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: query score: %v", ErrTransport, err)
	}
	defer func() { _ = rows.Close() }()

	var (
		found []document.Document
		raw   string
	)
	for rows.Next() {
		var doc document.Document
		if err := rows.Scan(&doc.Hash, &doc.VideoID, &doc.JudgeName, &doc.Date, &raw); err != nil {
			return document.Document{}, fmt.Errorf("%w: scan score: %v", ErrTransport, err)
		}
		if err := json.Unmarshal([]byte(raw), &doc.Scores); err != nil {
			return document.Document{}, fmt.Errorf("%w: decode scores: %v", ErrTransport, err)
		}
		found = append(found, doc)
	}
	if err := rows.Err(); err != nil {
		return document.Document{}, fmt.Errorf("%w: iterate scores: %v", ErrTransport, err)
	}
	if len(found) != 1 {
		return document.Document{}, fmt.Errorf("%w: %s (%d matches)", ErrNotFound, hash, len(found))
	}
	return found[0], nil
}

// Publish implements Store.
func (s *SQLiteStore) Publish(ctx context.Context, doc document.Document) error {
	if doc.Hash == "" {
		return ErrInvalidHash
	}
	raw, err := json.Marshal(doc.Scores)
	if err != nil {
		return fmt.Errorf("%w: encode scores: %v", ErrTransport, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (hash, video_id, judge_name, date_ms, scores_json, published_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT (hash) DO NOTHING`,
		doc.Hash, doc.VideoID, doc.JudgeName, doc.Date, string(raw),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: insert score: %v", ErrTransport, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrTransport, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrConflict, doc.Hash)
	}
	return nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM scores`).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: count scores: %v", ErrTransport, err)
	}
	return n, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
