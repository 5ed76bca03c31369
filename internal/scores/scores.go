// Package scores keeps the top minigame scores per namespace in SQLite.
package scores

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

const (
	DefaultNamespace = "flag_minigame_top_scores"
	MaxScores        = 5
)

type Store struct {
	db *sql.DB
}

func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS top_scores (
		namespace TEXT PRIMARY KEY,
		data      JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("creating table: %w", err)
	}
	return &Store{db: db}, nil
}

// Add records score and keeps the best MaxScores, highest first. It
// returns the updated list.
func (s *Store) Add(ctx context.Context, namespace string, score int) ([]int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	top, err := top(ctx, tx, namespace)
	if err != nil {
		return nil, err
	}
	top = append(top, score)
	slices.SortStableFunc(top, func(a, b int) int { return b - a })
	if len(top) > MaxScores {
		top = top[:MaxScores]
	}

	data, err := json.Marshal(top)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO top_scores (namespace, data) VALUES (?, jsonb(?))
		 ON CONFLICT(namespace) DO UPDATE SET data = excluded.data`,
		namespace, string(data),
	); err != nil {
		return nil, fmt.Errorf("saving scores: %w", err)
	}
	return top, tx.Commit()
}

// Top returns the stored scores, highest first. An unknown namespace has
// no scores.
func (s *Store) Top(ctx context.Context, namespace string) ([]int, error) {
	return top(ctx, s.db, namespace)
}

func (s *Store) Reset(ctx context.Context, namespace string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM top_scores WHERE namespace = ?`, namespace)
	return err
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func top(ctx context.Context, q querier, namespace string) ([]int, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT json(data) FROM top_scores WHERE namespace = ?`, namespace,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return []int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading scores: %w", err)
	}
	var scores []int
	if err := json.Unmarshal([]byte(data), &scores); err != nil {
		return nil, fmt.Errorf("decoding scores: %w", err)
	}
	return scores, nil
}
