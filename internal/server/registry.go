package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/playperu/meimei/internal/game"
	"github.com/playperu/meimei/internal/meimei"
	"github.com/playperu/meimei/internal/session"
)

// liveSession is one controller plus the lock that serializes its input.
type liveSession struct {
	mu        sync.Mutex
	id        string
	ctl       *game.Controller
	createdAt time.Time
	lastUsed  time.Time
}

// Registry keeps live sessions in memory and falls back to the store on a
// miss, so sessions survive restarts and eviction.
type Registry struct {
	cat     session.Catalog
	cfg     session.Config
	store   Store
	broker  *Broker
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
	loads   singleflight.Group

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

func NewRegistry(cat session.Catalog, cfg session.Config, store Store, broker *Broker, metrics *Metrics, logger *slog.Logger) *Registry {
	return &Registry{
		cat:      cat,
		cfg:      cfg,
		store:    store,
		broker:   broker,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*liveSession),
	}
}

// Create starts a new play-through under a fresh id.
func (r *Registry) Create(ctx context.Context) (*liveSession, error) {
	id := uuid.NewString()
	ls := r.build(id)
	ls.createdAt = r.now()

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if err := ls.ctl.Start(); err != nil {
		return nil, err
	}
	r.metrics.SessionsStarted.Inc()
	if err := r.save(ctx, ls); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = ls
	r.mu.Unlock()
	r.logger.Info("session started", "session", id)
	return ls, nil
}

// Get returns the live session, reloading it from the store when it is not
// in memory. Unknown ids wrap ErrUnknownSession.
func (r *Registry) Get(ctx context.Context, id string) (*liveSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("session %q: %w", id, ErrUnknownSession)
	}

	r.mu.RLock()
	ls, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return ls, nil
	}

	v, err, _ := r.loads.Do(id, func() (any, error) { return r.load(ctx, id) })
	if err != nil {
		return nil, err
	}
	return v.(*liveSession), nil
}

// load reads a session from the store and installs it. Loads of one id are
// collapsed so a stale read never replaces a newer live copy.
func (r *Registry) load(ctx context.Context, id string) (*liveSession, error) {
	r.mu.RLock()
	ls, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return ls, nil
	}

	doc, err := r.store.LoadSession(ctx, id)
	if errors.Is(err, meimei.ErrNotFound) {
		return nil, fmt.Errorf("session %q: %w", id, ErrUnknownSession)
	}
	if err != nil {
		return nil, err
	}
	loaded := r.build(id)
	loaded.createdAt = doc.CreatedAt
	if err := loaded.ctl.Model().Restore(doc.State); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ls, ok := r.sessions[id]; ok {
		return ls, nil
	}
	r.sessions[id] = loaded
	r.logger.Debug("session reloaded", "session", id)
	return loaded, nil
}

// lock returns the session with its mutex held. It retries when eviction
// dropped the session between lookup and locking, so every caller works on
// the instance the registry holds.
func (r *Registry) lock(ctx context.Context, id string) (*liveSession, error) {
	for {
		ls, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		ls.mu.Lock()
		r.mu.RLock()
		current := r.sessions[id]
		r.mu.RUnlock()
		if current == ls {
			return ls, nil
		}
		ls.mu.Unlock()
	}
}

// Update runs fn with the session locked and persists the result. When fn
// or the save fails the in-memory state is rolled back to what it was.
func (r *Registry) Update(ctx context.Context, id string, fn func(*game.Controller) error) error {
	ls, err := r.lock(ctx, id)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()

	prev := ls.ctl.Model().Snapshot()
	err = fn(ls.ctl)
	if err == nil {
		err = r.save(ctx, ls)
	}
	if err != nil {
		r.rollback(ls, prev)
	}
	return err
}

// View runs fn with the session locked without persisting.
func (r *Registry) View(ctx context.Context, id string, fn func(*game.Controller) error) error {
	ls, err := r.lock(ctx, id)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()
	ls.lastUsed = r.now()
	return fn(ls.ctl)
}

// Evict drops sessions idle for longer than ttl from memory. They stay in
// the store and reload on the next request.
func (r *Registry) Evict(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, ls := range r.sessions {
		if !ls.mu.TryLock() {
			continue
		}
		idle := ls.lastUsed.Before(cutoff)
		ls.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// RunEviction evicts idle sessions every ttl/2 until ctx is done. Completed
// sessions untouched for retention are deleted from the store.
func (r *Registry) RunEviction(ctx context.Context, ttl, retention time.Duration) error {
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if n := r.Evict(ttl); n > 0 {
			r.logger.Info("evicted idle sessions", "count", n)
		}
		if retention <= 0 {
			continue
		}
		n, err := r.store.DeleteSessionsBefore(ctx, r.now().Add(-retention))
		if err != nil {
			r.logger.Error("pruning sessions", "error", err)
			continue
		}
		if n > 0 {
			r.logger.Info("pruned completed sessions", "count", n)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) build(id string) *liveSession {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	model := session.New(r.cat, r.cfg, rng)
	ctl := game.NewController(model, game.Collaborators{
		Listener: &sessionListener{id: id, broker: r.broker, metrics: r.metrics},
	}, r.logger.With("session", id))
	return &liveSession{id: id, ctl: ctl, lastUsed: r.now()}
}

// rollback restores prev. If that fails the session is dropped so the next
// request reloads the last saved copy.
func (r *Registry) rollback(ls *liveSession, prev session.State) {
	err := ls.ctl.Model().Restore(prev)
	if err == nil {
		return
	}
	r.logger.Error("rolling back session", "session", ls.id, "error", err)
	r.mu.Lock()
	if r.sessions[ls.id] == ls {
		delete(r.sessions, ls.id)
	}
	r.mu.Unlock()
}

func (r *Registry) save(ctx context.Context, ls *liveSession) error {
	now := r.now()
	ls.lastUsed = now
	return r.store.SaveSession(ctx, sessionDoc{
		ID:        ls.id,
		State:     ls.ctl.Model().Snapshot(),
		CreatedAt: ls.createdAt,
		UpdatedAt: now,
	})
}

// sessionListener forwards controller events to subscribers and metrics.
type sessionListener struct {
	id      string
	broker  *Broker
	metrics *Metrics
}

func (l *sessionListener) LocationAdvanced(e meimei.LocationAdvancedEvent) {
	l.broker.Publish(l.id, SessionEvent{
		Type:         EventLocationAdvanced,
		LocationID:   e.Location.ID,
		LocationName: e.Location.Name,
		VisitedCount: e.VisitedCount,
	})
}

func (l *sessionListener) SessionComplete(e meimei.SessionCompleteEvent) {
	l.metrics.SessionsCompleted.Inc()
	l.metrics.DaysTraveled.Observe(float64(e.TotalDaysTraveled))
	l.broker.Publish(l.id, SessionEvent{
		Type:              EventSessionComplete,
		TotalDaysTraveled: e.TotalDaysTraveled,
		VisitedCount:      len(e.VisitedIDs),
		VisitedIDs:        e.VisitedIDs,
	})
}
