package server

import (
	"context"
	"time"

	"github.com/playperu/meimei/internal/session"
)

// sessionDoc is the persisted form of a play-through.
type sessionDoc struct {
	ID        string        `json:"id"`
	State     session.State `json:"state"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Store persists session snapshots. A missing session wraps
// meimei.ErrNotFound.
type Store interface {
	SaveSession(ctx context.Context, doc sessionDoc) error
	LoadSession(ctx context.Context, id string) (sessionDoc, error)
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
