// Package hittest decides whether a click lands on a location and derives
// the hint circle shown after repeated misses.
package hittest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/playperu/meimei/internal/meimei"
)

var ErrInvalidTransform = errors.New("invalid display transform")

type Result struct {
	IsHit    bool    `json:"isHit"`
	Distance float64 `json:"distance"`
}

// Evaluate compares click against target's placement in projection p. Both
// are in unscaled source-image pixels; the tolerance boundary counts as a hit.
func Evaluate(click meimei.Point, target meimei.Location, p meimei.Projection) (Result, error) {
	pl, err := target.Placement(p)
	if err != nil {
		return Result{}, err
	}
	d := math.Hypot(click.X-pl.X, click.Y-pl.Y)
	return Result{IsHit: d <= pl.ToleranceRadius, Distance: d}, nil
}

// Transform maps the source image onto the screen: the image's top-left
// corner sits at (OriginX, OriginY) and every source pixel is Scale display
// pixels wide.
type Transform struct {
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
	Scale   float64 `json:"scale"`
}

func (t Transform) Validate() error {
	if !(t.Scale > 0) || math.IsInf(t.Scale, 0) {
		return fmt.Errorf("%w: scale %v", ErrInvalidTransform, t.Scale)
	}
	if math.IsNaN(t.OriginX) || math.IsNaN(t.OriginY) || math.IsInf(t.OriginX, 0) || math.IsInf(t.OriginY, 0) {
		return fmt.Errorf("%w: origin (%v,%v)", ErrInvalidTransform, t.OriginX, t.OriginY)
	}
	return nil
}

// ToSource converts a display point to source-image space:
// (display - origin) / scale.
func (t Transform) ToSource(display meimei.Point) (meimei.Point, error) {
	if err := t.Validate(); err != nil {
		return meimei.Point{}, err
	}
	return meimei.Point{
		X: (display.X - t.OriginX) / t.Scale,
		Y: (display.Y - t.OriginY) / t.Scale,
	}, nil
}

func (t Transform) ToDisplay(source meimei.Point) meimei.Point {
	return meimei.Point{
		X: source.X*t.Scale + t.OriginX,
		Y: source.Y*t.Scale + t.OriginY,
	}
}

// Policy is the hint geometry for one miss count: the circle center is
// jittered by up to Jitter pixels per axis and its radius is the location's
// tolerance times Multiplier.
type Policy struct {
	Jitter     int     `json:"jitter"`
	Multiplier float64 `json:"multiplier"`
}

// PolicyFor returns the hint policy for costDays, or false while no hint is
// shown yet. The circle gets tighter the longer the player struggles.
func PolicyFor(costDays int) (Policy, bool) {
	switch {
	case costDays <= 3:
		return Policy{}, false
	case costDays == 4:
		return Policy{Jitter: 50, Multiplier: 5.5}, true
	case costDays == 5:
		return Policy{Jitter: 50, Multiplier: 4.5}, true
	case costDays <= 8:
		return Policy{Jitter: 50, Multiplier: 3}, true
	default:
		return Policy{Jitter: 25, Multiplier: 2}, true
	}
}

type Circle struct {
	Center meimei.Point `json:"center"`
	Radius float64      `json:"radius"`
	Policy
}

// Hinter draws hint circles. Not safe for concurrent use.
type Hinter struct {
	rng *rand.Rand
}

func NewHinter(rng *rand.Rand) *Hinter {
	return &Hinter{rng: rng}
}

// Circle returns a freshly jittered hint circle around target, or false
// when costDays is too low for a hint.
func (h *Hinter) Circle(target meimei.Placement, costDays int) (Circle, bool) {
	pol, ok := PolicyFor(costDays)
	if !ok {
		return Circle{}, false
	}
	return Circle{
		Center: meimei.Point{
			X: target.X + h.offset(pol.Jitter),
			Y: target.Y + h.offset(pol.Jitter),
		},
		Radius: target.ToleranceRadius * pol.Multiplier,
		Policy: pol,
	}, true
}

// offset is a whole-pixel displacement in [-(j-2), j-2].
func (h *Hinter) offset(j int) float64 {
	if j < 2 {
		return 0
	}
	d := float64(h.rng.IntN(j - 1))
	if h.rng.IntN(2) == 0 {
		d = -d
	}
	return d
}
