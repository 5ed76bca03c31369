package hittest

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/playperu/meimei/internal/meimei"
)

func target(x, y, tol float64) meimei.Location {
	return meimei.Location{
		ID:   "t",
		Name: "Target",
		Placements: map[meimei.Projection]meimei.Placement{
			meimei.ProjectionWorld: {X: x, Y: y, ToleranceRadius: tol},
		},
	}
}

func TestEvaluate(t *testing.T) {
	loc := target(100, 100, 10)

	tests := []struct {
		name    string
		click   meimei.Point
		wantHit bool
		wantD   float64
	}{
		{"exact coordinate", meimei.Point{X: 100, Y: 100}, true, 0},
		{"on boundary", meimei.Point{X: 110, Y: 100}, true, 10},
		{"diagonal boundary", meimei.Point{X: 106, Y: 108}, true, 10},
		{"just outside", meimei.Point{X: 110 + 1e-9, Y: 100}, false, 10 + 1e-9},
		{"far away", meimei.Point{X: 500, Y: 500}, false, math.Hypot(400, 400)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.click, loc, meimei.ProjectionWorld)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if got.IsHit != tt.wantHit {
				t.Errorf("IsHit = %v, want %v", got.IsHit, tt.wantHit)
			}
			if math.Abs(got.Distance-tt.wantD) > 1e-9 {
				t.Errorf("Distance = %v, want %v", got.Distance, tt.wantD)
			}
		})
	}
}

func TestEvaluateMissingProjection(t *testing.T) {
	_, err := Evaluate(meimei.Point{}, target(1, 1, 1), meimei.ProjectionContinent)
	if !errors.Is(err, meimei.ErrInvalidProjection) {
		t.Fatalf("error = %v, want ErrInvalidProjection", err)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	tr := Transform{OriginX: 40, OriginY: 12, Scale: 0.5}

	src, err := tr.ToSource(meimei.Point{X: 90, Y: 62})
	if err != nil {
		t.Fatal(err)
	}
	if src != (meimei.Point{X: 100, Y: 100}) {
		t.Fatalf("ToSource = %+v, want (100,100)", src)
	}
	if back := tr.ToDisplay(src); back != (meimei.Point{X: 90, Y: 62}) {
		t.Fatalf("ToDisplay = %+v, want (90,62)", back)
	}
}

func TestTransformRejectsBadScale(t *testing.T) {
	for _, scale := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := (Transform{Scale: scale}).ToSource(meimei.Point{}); !errors.Is(err, ErrInvalidTransform) {
			t.Errorf("scale %v: error = %v, want ErrInvalidTransform", scale, err)
		}
	}
}

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		costDays int
		wantOK   bool
		want     Policy
	}{
		{1, false, Policy{}},
		{3, false, Policy{}},
		{4, true, Policy{Jitter: 50, Multiplier: 5.5}},
		{5, true, Policy{Jitter: 50, Multiplier: 4.5}},
		{6, true, Policy{Jitter: 50, Multiplier: 3}},
		{8, true, Policy{Jitter: 50, Multiplier: 3}},
		{9, true, Policy{Jitter: 25, Multiplier: 2}},
		{40, true, Policy{Jitter: 25, Multiplier: 2}},
	}

	for _, tt := range tests {
		got, ok := PolicyFor(tt.costDays)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("PolicyFor(%d) = %+v, %v; want %+v, %v", tt.costDays, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHintCircleStaysWithinJitter(t *testing.T) {
	h := NewHinter(rand.New(rand.NewPCG(1, 2)))
	pl := meimei.Placement{X: 300, Y: 200, ToleranceRadius: 30}

	for _, costDays := range []int{4, 5, 7, 9, 12} {
		pol, _ := PolicyFor(costDays)
		for range 200 {
			c, ok := h.Circle(pl, costDays)
			if !ok {
				t.Fatalf("costDays %d: no hint", costDays)
			}
			if c.Radius != pl.ToleranceRadius*pol.Multiplier {
				t.Fatalf("costDays %d: radius %v", costDays, c.Radius)
			}
			limit := float64(pol.Jitter - 2)
			if math.Abs(c.Center.X-pl.X) > limit || math.Abs(c.Center.Y-pl.Y) > limit {
				t.Fatalf("costDays %d: center %+v too far from target", costDays, c.Center)
			}
		}
	}
}

func TestHintCircleIsResampled(t *testing.T) {
	h := NewHinter(rand.New(rand.NewPCG(7, 7)))
	pl := meimei.Placement{X: 300, Y: 200, ToleranceRadius: 30}

	first, _ := h.Circle(pl, 4)
	for range 50 {
		next, _ := h.Circle(pl, 4)
		if next.Center != first.Center {
			return
		}
	}
	t.Fatal("hint circle center never moved across 50 redraws")
}

func TestNoHintBeforeFourthDay(t *testing.T) {
	h := NewHinter(rand.New(rand.NewPCG(1, 1)))
	if _, ok := h.Circle(meimei.Placement{X: 1, Y: 1, ToleranceRadius: 1}, 3); ok {
		t.Fatal("expected no hint at costDays=3")
	}
}
