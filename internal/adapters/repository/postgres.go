package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/clicker/internal/domain/document"
)

// DBTX is the subset of a pgx pool the Postgres store uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS scores (
    hash         TEXT PRIMARY KEY,
    video_id     TEXT NOT NULL,
    judge_name   TEXT NOT NULL DEFAULT '',
    date_ms      BIGINT NOT NULL,
    scores       JSONB NOT NULL,
    published_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scores_video_id ON scores (video_id);
`

// PostgresStore persists documents in Postgres.
type PostgresStore struct {
	db    DBTX
	close func()
}

// OpenPostgres connects a pool to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrTransport, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrTransport, err)
	}
	s := &PostgresStore{db: pool, close: pool.Close}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing connection. Close is a no-op; the caller
// owns db.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the scores table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("%w: apply schema: %v", ErrTransport, err)
	}
	return nil
}

// QueryByHash implements Store.
func (s *PostgresStore) QueryByHash(ctx context.Context, hash string) (document.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT hash, video_id, judge_name, date_ms, scores FROM scores WHERE hash = $1 LIMIT 2`,
		hash,
	)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: query score: %v", ErrTransport, err)
	}
	defer rows.Close()

	var found []document.Document
	for rows.Next() {
		var (
			doc document.Document
			raw []byte
		)
		if err := rows.Scan(&doc.Hash, &doc.VideoID, &doc.JudgeName, &doc.Date, &raw); err != nil {
			return document.Document{}, fmt.Errorf("%w: scan score: %v", ErrTransport, err)
		}
		if err := json.Unmarshal(raw, &doc.Scores); err != nil {
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
func (s *PostgresStore) Publish(ctx context.Context, doc document.Document) error {
	if doc.Hash == "" {
		return ErrInvalidHash
	}
	raw, err := json.Marshal(doc.Scores)
	if err != nil {
		return fmt.Errorf("%w: encode scores: %v", ErrTransport, err)
	}
	tag, err := s.db.Exec(ctx,
		`INSERT INTO scores (hash, video_id, judge_name, date_ms, scores)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (hash) DO NOTHING`,
		doc.Hash, doc.VideoID, doc.JudgeName, doc.Date, raw,
	)
	if err != nil {
		return fmt.Errorf("%w: insert score: %v", ErrTransport, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrConflict, doc.Hash)
	}
	return nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM scores`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count scores: %v", ErrTransport, err)
	}
	return int(n), nil
}

// Close closes the pool when the store opened it.
func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
