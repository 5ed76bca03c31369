// Package meimei defines the core domain types of the location-guessing game.
// It has no dependencies outside the standard library.
package meimei

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a location id is absent from the catalog. It signals
	// a data/model mismatch and must never be silently defaulted.
	ErrNotFound = errors.New("not found")

	// ErrRejected means an operation arrived in a state that does not permit
	// it. Nothing was changed.
	ErrRejected = errors.New("rejected")

	// ErrNoLocationsAvailable means there is nothing left to guess.
	ErrNoLocationsAvailable = errors.New("no locations available")

	ErrInvalidProjection = errors.New("invalid projection")
)

// Projection names a pixel coordinate system a location is placed in.
type Projection string

const (
	ProjectionWorld     Projection = "worldMap"
	ProjectionContinent Projection = "continentMap"
)

func ParseProjection(s string) (Projection, error) {
	switch p := Projection(s); p {
	case ProjectionWorld, ProjectionContinent:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProjection, s)
}

// Point is a position in source-image pixel space unless stated otherwise.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Placement is a location's coordinate and hit tolerance in one projection.
type Placement struct {
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	ToleranceRadius float64 `json:"tolerance"`
}

func (p Placement) Point() Point { return Point{X: p.X, Y: p.Y} }

type Location struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Region     string                   `json:"region"`
	HintText   string                   `json:"hint"`
	ImageRef   string                   `json:"image,omitempty"`
	Placements map[Projection]Placement `json:"placements"`
}

// Placement returns the location's coordinates in projection p.
func (l Location) Placement(p Projection) (Placement, error) {
	pl, ok := l.Placements[p]
	if !ok {
		return Placement{}, fmt.Errorf("location %q has no %s placement: %w", l.ID, p, ErrInvalidProjection)
	}
	return pl, nil
}

// Attempt is one click recorded against a target location.
type Attempt struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	WasHit     bool    `json:"wasHit"`
	LocationID string  `json:"locationId"`
}

// LocationAdvancedEvent is published when the player solves a location and
// moves on. It drives the postcard and minigame flow.
type LocationAdvancedEvent struct {
	Location     Location `json:"location"`
	VisitedCount int      `json:"visitedCount"`
}

// SessionCompleteEvent is published once per play-through.
type SessionCompleteEvent struct {
	TotalDaysTraveled int      `json:"totalDaysTraveled"`
	VisitedIDs        []string `json:"visitedIds"`
}

func (e LocationAdvancedEvent) Validate() error {
	if e.Location.ID == "" {
		return errors.New("location advanced event: empty location id")
	}
	if e.VisitedCount < 1 {
		return fmt.Errorf("location advanced event: visited count %d", e.VisitedCount)
	}
	return nil
}

// Validate checks that every visited location cost at least one day.
func (e SessionCompleteEvent) Validate() error {
	if e.TotalDaysTraveled < len(e.VisitedIDs) {
		return fmt.Errorf("session complete event: %d days for %d locations", e.TotalDaysTraveled, len(e.VisitedIDs))
	}
	return nil
}
