package game

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/playperu/meimei/internal/catalog"
	"github.com/playperu/meimei/internal/hittest"
	"github.com/playperu/meimei/internal/meimei"
	"github.com/playperu/meimei/internal/session"
)

type recorder struct {
	cues      []Cue
	markers   []bool
	messages  []Message
	hints     []hittest.Circle
	paths     [][]meimei.Point
	advanced  []meimei.LocationAdvancedEvent
	completed []meimei.SessionCompleteEvent
	audioErr  error
}

func (r *recorder) ShowMarker(_ meimei.Point, hit bool) { r.markers = append(r.markers, hit) }
func (r *recorder) ShowMessage(m Message) { r.messages = append(r.messages, m) }
func (r *recorder) ClearMessage() {}
func (r *recorder) ShowHint(c hittest.Circle) { r.hints = append(r.hints, c) }
func (r *recorder) ClearHint() {}
func (r *recorder) ShowTravelPath(path []meimei.Point) { r.paths = append(r.paths, path) }
func (r *recorder) ClearTravelPath() {}
func (r *recorder) Play(c Cue) error {
	r.cues = append(r.cues, c)
	return r.audioErr
}
func (r *recorder) LocationAdvanced(e meimei.LocationAdvancedEvent) {
	r.advanced = append(r.advanced, e)
}
func (r *recorder) SessionComplete(e meimei.SessionCompleteEvent) {
	r.completed = append(r.completed, e)
}

func setup(t *testing.T, target int, locs ...meimei.Location) (*Controller, *recorder) {
	t.Helper()
	if locs == nil {
		locs = []meimei.Location{
			loc("A", 100, 100, 10),
			loc("B", 500, 500, 10),
		}
	}
	cat, err := catalog.New(map[meimei.Projection]catalog.Bounds{
		meimei.ProjectionWorld: {Width: 1000, Height: 1000},
	}, locs)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	m := session.New(cat, session.Config{TargetVisits: target}, rand.New(rand.NewPCG(3, 4)))
	ctl := NewController(m, Collaborators{Renderer: rec, Audio: rec, Listener: rec}, slog.Default())
	return ctl, rec
}

func loc(id string, x, y, tol float64) meimei.Location {
	return meimei.Location{
		ID:   id,
		Name: id,
		Placements: map[meimei.Projection]meimei.Placement{
			meimei.ProjectionWorld: {X: x, Y: y, ToleranceRadius: tol},
		},
	}
}

func currentPoint(t *testing.T, ctl *Controller) meimei.Point {
	t.Helper()
	l, err := ctl.Model().Current()
	if err != nil {
		t.Fatal(err)
	}
	pl, _ := l.Placement(meimei.ProjectionWorld)
	return pl.Point()
}

func TestFullSession(t *testing.T) {
	ctl, rec := setup(t, 2)

	if got := ctl.State(); got != StateIdle {
		t.Fatalf("state before start = %s", got)
	}
	if out, _ := ctl.Click(meimei.Point{}); out.Kind != OutcomeRejected {
		t.Fatalf("click before start = %s, want rejected", out.Kind)
	}

	if err := ctl.Start(); err != nil {
		t.Fatal(err)
	}
	if got := ctl.State(); got != StatePlaying {
		t.Fatalf("state after start = %s", got)
	}

	for i := range 2 {
		out, err := ctl.Click(currentPoint(t, ctl))
		if err != nil {
			t.Fatal(err)
		}
		if out.Kind != OutcomeHit {
			t.Fatalf("round %d: click = %s, want hit", i, out.Kind)
		}
		if got := ctl.State(); got != StateAwaitingAck {
			t.Fatalf("round %d: state after hit = %s", i, got)
		}

		// Stray map clicks are ignored until the player continues.
		if out, _ := ctl.Click(meimei.Point{X: 1, Y: 1}); out.Kind != OutcomeIgnored {
			t.Fatalf("round %d: stray click = %s, want ignored", i, out.Kind)
		}

		ack, err := ctl.Continue()
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			if !ack.HasNextLocation {
				t.Fatal("no next location after first hit")
			}
			if got := ctl.State(); got != StateTravelSummary {
				t.Fatalf("state after continue = %s", got)
			}
			if out, _ := ctl.Click(currentPoint(t, ctl)); out.Kind != OutcomeIgnored {
				t.Fatalf("click during travel summary = %s, want ignored", out.Kind)
			}
			if !ctl.DismissTravelSummary() {
				t.Fatal("travel summary was not showing")
			}
		}
	}

	if got := ctl.State(); got != StateComplete {
		t.Fatalf("final state = %s", got)
	}
	if out, _ := ctl.Click(meimei.Point{X: 100, Y: 100}); out.Kind != OutcomeRejected {
		t.Fatalf("click after completion = %s, want rejected", out.Kind)
	}

	if len(rec.advanced) != 2 {
		t.Fatalf("LocationAdvanced fired %d times, want 2", len(rec.advanced))
	}
	if rec.advanced[1].VisitedCount != 2 {
		t.Errorf("second advance visited count = %d", rec.advanced[1].VisitedCount)
	}
	if len(rec.completed) != 1 || rec.completed[0].TotalDaysTraveled != 2 {
		t.Fatalf("SessionComplete = %+v, want one event with 2 days", rec.completed)
	}
	if len(rec.paths) != 2 || len(rec.paths[1]) != 2 {
		t.Fatalf("travel paths = %+v", rec.paths)
	}
	if len(rec.cues) != 2 || rec.cues[0] != CueHit || rec.cues[1] != CueHit {
		t.Fatalf("cues = %v, want two hit cues", rec.cues)
	}
}

func TestMissAllowsImmediateGuess(t *testing.T) {
	ctl, rec := setup(t, 2)
	ctl.Start()

	out, err := ctl.Click(meimei.Point{X: 999, Y: 1})
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeMiss || out.Message == nil || out.Message.Kind != MessageIncorrect {
		t.Fatalf("miss outcome = %+v", out)
	}

	out, err = ctl.Click(currentPoint(t, ctl))
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeHit {
		t.Fatalf("guess after miss = %s, want hit", out.Kind)
	}
	if out.Attempt.TotalDaysTraveled != 2 {
		t.Errorf("total days = %d, want 2", out.Attempt.TotalDaysTraveled)
	}
	if len(rec.markers) != 2 || rec.markers[0] || !rec.markers[1] {
		t.Errorf("markers = %v, want [false true]", rec.markers)
	}
}

func TestHintShownAfterRepeatedMisses(t *testing.T) {
	ctl, rec := setup(t, 2)
	ctl.Start()

	for i := 1; i <= 3; i++ {
		out, _ := ctl.Click(meimei.Point{X: 999, Y: 1})
		wantHint := i >= 3 // cost reaches 4 on the third miss
		if (out.Hint != nil) != wantHint {
			t.Fatalf("miss %d: hint = %+v, want shown=%v", i, out.Hint, wantHint)
		}
	}
	if got := ctl.State(); got != StateShowingHint {
		t.Fatalf("state = %s, want showing_hint", got)
	}
	if rec.hints[0].Multiplier != 5.5 || rec.hints[0].Jitter != 50 {
		t.Fatalf("hint = %+v", rec.hints[0])
	}

	if _, ok, _ := ctl.Hint(); !ok {
		t.Fatal("redraw returned no hint")
	}
	if len(rec.hints) != 2 {
		t.Fatalf("hint drawn %d times, want 2", len(rec.hints))
	}
}

func TestClickDisplayAppliesInverseTransform(t *testing.T) {
	ctl, _ := setup(t, 2)
	ctl.Start()

	tr := hittest.Transform{OriginX: 20, OriginY: 10, Scale: 0.5}
	display := tr.ToDisplay(currentPoint(t, ctl))

	out, err := ctl.ClickDisplay(display, tr)
	if err != nil {
		t.Fatal(err)
	}
	if out.Kind != OutcomeHit {
		t.Fatalf("display click = %s, want hit", out.Kind)
	}

	if _, err := ctl.ClickDisplay(display, hittest.Transform{}); !errors.Is(err, hittest.ErrInvalidTransform) {
		t.Fatalf("zero-scale transform error = %v", err)
	}
}

func TestAudioFailureIsIgnored(t *testing.T) {
	ctl, rec := setup(t, 2)
	rec.audioErr = errors.New("autoplay blocked")
	ctl.Start()

	out, err := ctl.Click(currentPoint(t, ctl))
	if err != nil {
		t.Fatalf("audio failure surfaced: %v", err)
	}
	if out.Kind != OutcomeHit {
		t.Fatalf("click = %s, want hit", out.Kind)
	}
}

func TestContinueWithoutAttemptRejected(t *testing.T) {
	ctl, rec := setup(t, 2)
	ctl.Start()

	ack, err := ctl.Continue()
	if err != nil {
		t.Fatal(err)
	}
	if !ack.Rejected {
		t.Fatal("continue without an attempt was accepted")
	}
	if len(rec.advanced) != 0 {
		t.Fatal("LocationAdvanced fired without a solved location")
	}
}

func TestStartWithEmptyCatalogCompletes(t *testing.T) {
	ctl, rec := setup(t, 2, []meimei.Location{}...)
	if err := ctl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := ctl.State(); got != StateComplete {
		t.Fatalf("state = %s, want complete", got)
	}
	if len(rec.completed) != 1 || rec.completed[0].TotalDaysTraveled != 0 {
		t.Fatalf("completion events = %+v", rec.completed)
	}
}
