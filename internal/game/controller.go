// Package game routes player input into a guessing session and tells the
// rendering, audio and flow collaborators what happened.
package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/playperu/meimei/internal/hittest"
	"github.com/playperu/meimei/internal/meimei"
	"github.com/playperu/meimei/internal/session"
)

type State string

const (
	StateIdle          State = "idle"
	StatePlaying       State = "playing"
	StateAwaitingAck   State = "awaiting_ack"
	StateShowingHint   State = "showing_hint"
	StateTravelSummary State = "travel_summary"
	StateComplete      State = "complete"
)

type OutcomeKind string

const (
	OutcomeHit      OutcomeKind = "hit"
	OutcomeMiss     OutcomeKind = "miss"
	OutcomeIgnored  OutcomeKind = "ignored"
	OutcomeRejected OutcomeKind = "rejected"
)

// Outcome describes how a click was handled.
type Outcome struct {
	Kind    OutcomeKind            `json:"kind"`
	Attempt *session.AttemptResult `json:"attempt,omitempty"`
	Hint    *hittest.Circle        `json:"hint,omitempty"`
	Message *Message               `json:"message,omitempty"`
}

type MessageKind string

const (
	MessageSuccess   MessageKind = "success"
	MessageIncorrect MessageKind = "incorrect"
)

type Message struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}

type Cue string

const (
	CueHit  Cue = "hit"
	CueMiss Cue = "miss"
)

// Renderer draws what the controller decides. Coordinates are in
// source-image pixels.
type Renderer interface {
	ShowMarker(p meimei.Point, hit bool)
	ShowMessage(m Message)
	ClearMessage()
	ShowHint(c hittest.Circle)
	ClearHint()
	ShowTravelPath(path []meimei.Point)
	ClearTravelPath()
}

// AudioPlayer plays feedback cues. Failures are cosmetic.
type AudioPlayer interface {
	Play(c Cue) error
}

// Listener receives the events the postcard and minigame flow runs on.
type Listener interface {
	LocationAdvanced(e meimei.LocationAdvancedEvent)
	SessionComplete(e meimei.SessionCompleteEvent)
}

// Collaborators are optional; nil members are replaced by no-ops.
type Collaborators struct {
	Renderer Renderer
	Audio    AudioPlayer
	Listener Listener
}

type Controller struct {
	model    *session.Model
	renderer Renderer
	audio    AudioPlayer
	listener Listener
	logger   *slog.Logger
}

func NewController(model *session.Model, c Collaborators, logger *slog.Logger) *Controller {
	ctl := &Controller{
		model:    model,
		renderer: c.Renderer,
		audio:    c.Audio,
		listener: c.Listener,
		logger:   logger,
	}
	if ctl.renderer == nil {
		ctl.renderer = nopRenderer{}
	}
	if ctl.audio == nil {
		ctl.audio = nopAudio{}
	}
	if ctl.listener == nil {
		ctl.listener = nopListener{}
	}
	return ctl
}

// Start begins a new play-through. An empty catalog completes the session
// immediately instead of failing.
func (c *Controller) Start() error {
	c.renderer.ClearMessage()
	c.renderer.ClearHint()
	c.renderer.ClearTravelPath()

	err := c.model.StartNewGame()
	if errors.Is(err, meimei.ErrNoLocationsAvailable) {
		c.logger.Warn("no locations to play")
		return c.finish()
	}
	if err != nil {
		return fmt.Errorf("starting game: %w", err)
	}
	return nil
}

func (c *Controller) State() State {
	st := c.model.Snapshot()
	switch {
	case st.Complete:
		return StateComplete
	case st.CurrentLocationID == "":
		return StateIdle
	case st.ShowingTravelSummary:
		return StateTravelSummary
	case st.AwaitingAcknowledgement && st.LastWasHit():
		return StateAwaitingAck
	case st.AwaitingAcknowledgement:
		if _, ok := hittest.PolicyFor(st.CostDays); ok {
			return StateShowingHint
		}
		return StateAwaitingAck
	}
	return StatePlaying
}

// Click handles a map click in source-image pixels.
func (c *Controller) Click(p meimei.Point) (Outcome, error) {
	switch c.State() {
	case StateIdle, StateComplete:
		return Outcome{Kind: OutcomeRejected}, nil
	case StateTravelSummary:
		return Outcome{Kind: OutcomeIgnored}, nil
	case StateAwaitingAck:
		if c.model.Snapshot().LastWasHit() {
			// Only the continue button moves on after a correct guess.
			return Outcome{Kind: OutcomeIgnored}, nil
		}
	}

	res, err := c.model.RecordAttempt(p)
	if err != nil {
		return Outcome{}, err
	}
	if res.Rejected() {
		return Outcome{Kind: OutcomeRejected, Attempt: &res}, nil
	}

	c.renderer.ClearMessage()
	c.renderer.ClearHint()
	out := Outcome{Attempt: &res}

	if res.Status == session.StatusHit {
		out.Kind = OutcomeHit
		c.play(CueHit)
		loc, err := c.model.Current()
		if err != nil {
			return Outcome{}, err
		}
		out.Message = &Message{
			Kind: MessageSuccess,
			Text: fmt.Sprintf("You found %s! %d days traveled so far.", loc.Name, res.TotalDaysTraveled),
		}
	} else {
		out.Kind = OutcomeMiss
		c.play(CueMiss)
		out.Message = &Message{
			Kind: MessageIncorrect,
			Text: fmt.Sprintf("Not quite, try again! Day %d of the search.", res.CostDays),
		}
		hint, ok, err := c.model.Hint()
		if err != nil {
			return Outcome{}, err
		}
		if ok {
			out.Hint = &hint
		}
	}

	c.renderer.ShowMarker(p, out.Kind == OutcomeHit)
	c.renderer.ShowMessage(*out.Message)
	if out.Hint != nil {
		c.renderer.ShowHint(*out.Hint)
	}
	return out, nil
}

// ClickDisplay converts a display-space click with t before handling it.
func (c *Controller) ClickDisplay(p meimei.Point, t hittest.Transform) (Outcome, error) {
	src, err := t.ToSource(p)
	if err != nil {
		return Outcome{}, err
	}
	return c.Click(src)
}

// Continue acknowledges the result message. After a solved location it
// emits LocationAdvanced, shows the travel path and, on the last location,
// SessionComplete.
func (c *Controller) Continue() (session.AckResult, error) {
	ack, err := c.model.Acknowledge()
	if err != nil || ack.Rejected {
		return ack, err
	}
	c.renderer.ClearMessage()
	if ack.Solved == nil {
		return ack, nil
	}

	st := c.model.Snapshot()
	ev := meimei.LocationAdvancedEvent{Location: *ack.Solved, VisitedCount: len(st.VisitedIDs)}
	if err := ev.Validate(); err != nil {
		return ack, err
	}
	c.listener.LocationAdvanced(ev)

	path, err := c.model.VisitedPath()
	if err != nil {
		return ack, err
	}
	c.renderer.ShowTravelPath(path)

	if ack.Complete {
		return ack, c.finish()
	}
	return ack, nil
}

// DismissTravelSummary returns to the map after the travel path overlay.
func (c *Controller) DismissTravelSummary() bool {
	if !c.model.DismissTravelSummary() {
		return false
	}
	c.renderer.ClearTravelPath()
	return true
}

// Hint redraws the hint circle at a new random offset.
func (c *Controller) Hint() (hittest.Circle, bool, error) {
	h, ok, err := c.model.Hint()
	if err != nil || !ok {
		return h, ok, err
	}
	c.renderer.ClearHint()
	c.renderer.ShowHint(h)
	return h, true, nil
}

func (c *Controller) Model() *session.Model { return c.model }

func (c *Controller) finish() error {
	st := c.model.Snapshot()
	ev := meimei.SessionCompleteEvent{
		TotalDaysTraveled: st.TotalDaysTraveled,
		VisitedIDs:        st.VisitedIDs,
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	c.logger.Info("session complete", "total_days", ev.TotalDaysTraveled, "visited", len(ev.VisitedIDs))
	c.listener.SessionComplete(ev)
	return nil
}

func (c *Controller) play(cue Cue) {
	if err := c.audio.Play(cue); err != nil {
		c.logger.Debug("audio cue failed", "cue", cue, "error", err)
	}
}

type nopRenderer struct{}

func (nopRenderer) ShowMarker(meimei.Point, bool) {}
func (nopRenderer) ShowMessage(Message) {}
func (nopRenderer) ClearMessage() {}
func (nopRenderer) ShowHint(hittest.Circle) {}
func (nopRenderer) ClearHint() {}
func (nopRenderer) ShowTravelPath([]meimei.Point) {}
func (nopRenderer) ClearTravelPath() {}

type nopAudio struct{}

func (nopAudio) Play(Cue) error { return nil }

type nopListener struct{}

func (nopListener) LocationAdvanced(meimei.LocationAdvancedEvent) {}
func (nopListener) SessionComplete(meimei.SessionCompleteEvent) {}
