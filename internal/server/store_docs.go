package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playperu/meimei/internal/meimei"
)

// DocStore implements Store with a JSONB document table.
type DocStore struct {
	db *sql.DB
}

func NewDocStore(ctx context.Context, db *sql.DB) (*DocStore, error) {
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			complete   INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL,
			data       JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sessions_updated_at ON sessions (complete, updated_at)`,
	} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("creating table: %w", err)
		}
	}

	return &DocStore{db: db}, nil
}

func (s *DocStore) get(ctx context.Context, table, id string, dest any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, table), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", table, id, meimei.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (s *DocStore) SaveSession(ctx context.Context, doc sessionDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, complete, updated_at, data) VALUES (?, ?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET complete = excluded.complete, updated_at = excluded.updated_at, data = excluded.data`,
		doc.ID, doc.State.Complete, formatTime(doc.UpdatedAt), string(data),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", doc.ID, err)
	}
	return nil
}

func (s *DocStore) LoadSession(ctx context.Context, id string) (sessionDoc, error) {
	var doc sessionDoc
	err := s.get(ctx, "sessions", id, &doc)
	return doc, err
}

// DeleteSessionsBefore removes completed sessions last touched before cutoff.
func (s *DocStore) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE complete = 1 AND updated_at < ?`, formatTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
