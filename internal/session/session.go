// Package session tracks one play-through of the location-guessing game:
// the current target, every click, the visited set and the day cost.
//
// A Model is not safe for concurrent use. Callers serialize access the
// way a browser serializes input events.
package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/playperu/meimei/internal/hittest"
	"github.com/playperu/meimei/internal/meimei"
)

const DefaultTargetVisits = 10

// Catalog is the read-only location lookup a session plays against.
type Catalog interface {
	List(p meimei.Projection) ([]meimei.Location, error)
	ByID(id string) (meimei.Location, error)
}

type Config struct {
	Projection   meimei.Projection
	TargetVisits int
}

func (c Config) withDefaults() Config {
	if c.Projection == "" {
		c.Projection = meimei.ProjectionWorld
	}
	if c.TargetVisits <= 0 {
		c.TargetVisits = DefaultTargetVisits
	}
	return c
}

type Status string

const (
	StatusHit      Status = "hit"
	StatusMiss     Status = "miss"
	StatusRejected Status = "rejected"
)

type AttemptResult struct {
	Status            Status  `json:"status"`
	LocationID        string  `json:"locationId,omitempty"`
	Distance          float64 `json:"distance"`
	CostDays          int     `json:"costDays"`
	TotalDaysTraveled int     `json:"totalDaysTraveled"`
}

func (r AttemptResult) Rejected() bool { return r.Status == StatusRejected }

type AckResult struct {
	Rejected bool `json:"rejected"`
	// Solved is set when the acknowledged attempt was a hit.
	Solved          *meimei.Location `json:"solved,omitempty"`
	HasNextLocation bool             `json:"hasNextLocation"`
	Complete        bool             `json:"complete"`
}

// State is a serializable copy of a session.
type State struct {
	Projection              meimei.Projection `json:"projection"`
	TargetVisits            int               `json:"targetVisits"`
	CurrentLocationID       string            `json:"currentLocationId"`
	VisitedIDs              []string          `json:"visitedIds"`
	Attempts                []meimei.Attempt  `json:"attempts"`
	CostDays                int               `json:"costDays"`
	TotalDaysTraveled       int               `json:"totalDaysTraveled"`
	AwaitingAcknowledgement bool              `json:"awaitingAcknowledgement"`
	ShowingTravelSummary    bool              `json:"showingTravelSummary"`
	Complete                bool              `json:"complete"`
}

// LastWasHit reports whether the most recent attempt solved its location.
func (s State) LastWasHit() bool {
	return len(s.Attempts) > 0 && s.Attempts[len(s.Attempts)-1].WasHit
}

func (s State) clone() State {
	s.VisitedIDs = slices.Clone(s.VisitedIDs)
	s.Attempts = slices.Clone(s.Attempts)
	return s
}

type Model struct {
	cat     Catalog
	cfg     Config
	rng     *rand.Rand
	hinter  *hittest.Hinter
	st      State
	visited map[string]bool
}

// New returns an unstarted model. rng drives target selection and hint
// jitter; pass a seeded source for reproducible games.
func New(cat Catalog, cfg Config, rng *rand.Rand) *Model {
	cfg = cfg.withDefaults()
	return &Model{
		cat:     cat,
		cfg:     cfg,
		rng:     rng,
		hinter:  hittest.NewHinter(rng),
		st:      State{Projection: cfg.Projection, TargetVisits: cfg.TargetVisits, CostDays: 1},
		visited: make(map[string]bool),
	}
}

// StartNewGame resets the session and picks a random first target. When
// the catalog has nothing to offer the session is marked complete and
// meimei.ErrNoLocationsAvailable is returned.
func (m *Model) StartNewGame() error {
	m.st = State{
		Projection:   m.cfg.Projection,
		TargetVisits: m.cfg.TargetVisits,
		CostDays:     1,
	}
	clear(m.visited)

	next, ok, err := m.pickUnvisited()
	if err != nil {
		return err
	}
	if !ok {
		m.st.Complete = true
		return meimei.ErrNoLocationsAvailable
	}
	m.st.CurrentLocationID = next.ID
	return nil
}

// RecordAttempt hit-tests p (source-image pixels) against the current
// target. After a hit, further attempts are rejected until Acknowledge; a
// miss allows an immediate follow-up guess.
func (m *Model) RecordAttempt(p meimei.Point) (AttemptResult, error) {
	if m.st.CurrentLocationID == "" || m.st.Complete {
		return m.rejected(), nil
	}
	if m.st.AwaitingAcknowledgement && m.st.LastWasHit() {
		return m.rejected(), nil
	}

	target, err := m.cat.ByID(m.st.CurrentLocationID)
	if err != nil {
		return AttemptResult{}, fmt.Errorf("current target: %w", err)
	}
	res, err := hittest.Evaluate(p, target, m.cfg.Projection)
	if err != nil {
		return AttemptResult{}, err
	}

	m.st.Attempts = append(m.st.Attempts, meimei.Attempt{
		X:          p.X,
		Y:          p.Y,
		WasHit:     res.IsHit,
		LocationID: target.ID,
	})
	m.st.AwaitingAcknowledgement = true

	status := StatusMiss
	if res.IsHit {
		status = StatusHit
		m.visited[target.ID] = true
		m.st.VisitedIDs = append(m.st.VisitedIDs, target.ID)
		m.st.TotalDaysTraveled += m.st.CostDays
		m.st.CostDays = 1
	} else {
		m.st.CostDays++
	}

	return AttemptResult{
		Status:            status,
		LocationID:        target.ID,
		Distance:          res.Distance,
		CostDays:          m.st.CostDays,
		TotalDaysTraveled: m.st.TotalDaysTraveled,
	}, nil
}

// Acknowledge dismisses the result of the last attempt. After a hit it
// moves to a random unvisited location, or completes the session once the
// target visit count is reached or nothing is left. Calling it again
// without a new attempt is rejected and changes nothing.
func (m *Model) Acknowledge() (AckResult, error) {
	if !m.st.AwaitingAcknowledgement {
		return AckResult{Rejected: true, Complete: m.st.Complete}, nil
	}
	m.st.AwaitingAcknowledgement = false

	if !m.st.LastWasHit() {
		return AckResult{HasNextLocation: true}, nil
	}

	solved, err := m.cat.ByID(m.st.CurrentLocationID)
	if err != nil {
		return AckResult{}, fmt.Errorf("solved location: %w", err)
	}
	m.st.ShowingTravelSummary = true
	res := AckResult{Solved: &solved}

	if len(m.st.VisitedIDs) >= m.cfg.TargetVisits {
		m.st.Complete = true
		res.Complete = true
		return res, nil
	}
	next, ok, err := m.pickUnvisited()
	if err != nil {
		return AckResult{}, err
	}
	if !ok {
		m.st.Complete = true
		res.Complete = true
		return res, nil
	}
	m.st.CurrentLocationID = next.ID
	res.HasNextLocation = true
	return res, nil
}

// DismissTravelSummary hides the travel path overlay. It reports whether
// the summary was showing.
func (m *Model) DismissTravelSummary() bool {
	was := m.st.ShowingTravelSummary
	m.st.ShowingTravelSummary = false
	return was
}

// VisitedPath returns the coordinates of every solved location in visit
// order.
func (m *Model) VisitedPath() ([]meimei.Point, error) {
	path := make([]meimei.Point, 0, len(m.st.VisitedIDs))
	for _, id := range m.st.VisitedIDs {
		loc, err := m.cat.ByID(id)
		if err != nil {
			return nil, err
		}
		pl, err := loc.Placement(m.cfg.Projection)
		if err != nil {
			return nil, err
		}
		path = append(path, pl.Point())
	}
	return path, nil
}

// Hint draws a new hint circle for the current target, or false when the
// miss count does not warrant one yet.
func (m *Model) Hint() (hittest.Circle, bool, error) {
	if m.st.CurrentLocationID == "" || m.st.Complete {
		return hittest.Circle{}, false, nil
	}
	loc, err := m.cat.ByID(m.st.CurrentLocationID)
	if err != nil {
		return hittest.Circle{}, false, err
	}
	pl, err := loc.Placement(m.cfg.Projection)
	if err != nil {
		return hittest.Circle{}, false, err
	}
	c, ok := m.hinter.Circle(pl, m.st.CostDays)
	return c, ok, nil
}

// Current returns the active target.
func (m *Model) Current() (meimei.Location, error) {
	if m.st.CurrentLocationID == "" {
		return meimei.Location{}, errors.New("session not started")
	}
	return m.cat.ByID(m.st.CurrentLocationID)
}

func (m *Model) Snapshot() State { return m.st.clone() }

// Restore replaces the model's state with s. Every referenced location must
// exist in the catalog.
func (m *Model) Restore(s State) error {
	if s.Projection != m.cfg.Projection {
		return fmt.Errorf("restoring %s session into %s model: %w", s.Projection, m.cfg.Projection, meimei.ErrInvalidProjection)
	}
	ids := slices.Clone(s.VisitedIDs)
	if s.CurrentLocationID != "" {
		ids = append(ids, s.CurrentLocationID)
	}
	for _, a := range s.Attempts {
		ids = append(ids, a.LocationID)
	}
	for _, id := range ids {
		if _, err := m.cat.ByID(id); err != nil {
			return fmt.Errorf("restoring session: %w", err)
		}
	}
	if s.CostDays < 1 {
		s.CostDays = 1
	}

	m.cfg.TargetVisits = s.TargetVisits
	m.cfg = m.cfg.withDefaults()
	m.st = s.clone()
	m.st.TargetVisits = m.cfg.TargetVisits
	clear(m.visited)
	for _, id := range s.VisitedIDs {
		m.visited[id] = true
	}
	return nil
}

func (m *Model) rejected() AttemptResult {
	return AttemptResult{
		Status:            StatusRejected,
		CostDays:          m.st.CostDays,
		TotalDaysTraveled: m.st.TotalDaysTraveled,
	}
}

func (m *Model) pickUnvisited() (meimei.Location, bool, error) {
	locs, err := m.cat.List(m.cfg.Projection)
	if err != nil {
		return meimei.Location{}, false, err
	}
	locs = slices.DeleteFunc(locs, func(l meimei.Location) bool { return m.visited[l.ID] })
	if len(locs) == 0 {
		return meimei.Location{}, false, nil
	}
	return locs[m.rng.IntN(len(locs))], true, nil
}
