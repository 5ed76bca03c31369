package flagquiz

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/meimei/internal/meimei"
)

const DefaultAdvanceDelay = 2 * time.Second

type State string

const (
	StateIdle     State = "idle"
	StatePlaying  State = "playing"
	StateCorrect  State = "correct"
	StateWrong    State = "wrong"
	StateFinished State = "finished"
)

// FinishedEvent is delivered once per completed quiz.
type FinishedEvent struct {
	Score       int `json:"score"`
	TotalRounds int `json:"totalRounds"`
}

// View is everything a client needs to draw the quiz. Answer is only set
// once the round has been answered.
type View struct {
	State       State `json:"state"`
	Round       Round `json:"round"`
	TotalRounds int   `json:"totalRounds"`
	Score       int   `json:"score"`
	Answer      *Flag `json:"answer,omitempty"`
}

type Options struct {
	// AdvanceDelay is how long the result of a round stays up.
	AdvanceDelay time.Duration
	OnFinished   func(FinishedEvent)
	Logger       *slog.Logger
}

// Controller runs a Model through its rounds. It is safe for concurrent
// use; the auto-advance timer fires on its own goroutine.
type Controller struct {
	mu         sync.Mutex
	model      *Model
	state      State
	delay      time.Duration
	timer      *time.Timer
	gen        uint64 // bumped by Start and Answer
	closed     bool
	onFinished func(FinishedEvent)
	logger     *slog.Logger
}

func NewController(model *Model, opts Options) *Controller {
	if opts.AdvanceDelay <= 0 {
		opts.AdvanceDelay = DefaultAdvanceDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		model:      model,
		state:      StateIdle,
		delay:      opts.AdvanceDelay,
		onFinished: opts.OnFinished,
		logger:     opts.Logger,
	}
}

// Start resets the model and plays the first round.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("quiz closed: %w", meimei.ErrRejected)
	}
	c.stopTimer()
	c.gen++
	c.model.Reset()
	c.model.StartNewRound()
	c.state = StatePlaying
	return nil
}

// Answer scores code for the current round and schedules the next one.
// Answers outside the playing state are rejected.
func (c *Controller) Answer(code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != StatePlaying {
		return false, fmt.Errorf("answer in state %s: %w", c.state, meimei.ErrRejected)
	}

	correct := c.model.CheckAnswer(code)
	if correct {
		c.state = StateCorrect
	} else {
		c.state = StateWrong
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.delay, func() { c.advance(gen) })
	return correct, nil
}

// advance moves past an answered round. Calls scheduled for an earlier
// round or game are ignored.
func (c *Controller) advance(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || (c.state != StateCorrect && c.state != StateWrong) {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if !c.model.IsComplete() {
		c.model.StartNewRound()
		c.state = StatePlaying
		c.mu.Unlock()
		return
	}

	c.state = StateFinished
	ev := FinishedEvent{Score: c.model.Score(), TotalRounds: c.model.TotalRounds()}
	notify := c.onFinished
	c.mu.Unlock()

	c.logger.Info("flag quiz finished", "score", ev.Score, "rounds", ev.TotalRounds)
	if notify != nil {
		notify(ev)
	}
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		State:       c.state,
		Round:       c.model.Round(),
		TotalRounds: c.model.TotalRounds(),
		Score:       c.model.Score(),
	}
	if c.state == StateCorrect || c.state == StateWrong {
		a := c.model.Answer()
		v.Answer = &a
	}
	return v
}

// Close cancels a pending advance. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimer()
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
