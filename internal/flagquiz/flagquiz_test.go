package flagquiz

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/playperu/meimei/internal/meimei"
)

func newModel(t *testing.T, rounds int) *Model {
	t.Helper()
	m, err := NewModel(DefaultFlags, rounds, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestNewModelNeedsFourFlags(t *testing.T) {
	if _, err := NewModel(DefaultFlags[:3], 5, rand.New(rand.NewPCG(1, 1))); !errors.Is(err, ErrTooFewFlags) {
		t.Fatalf("error = %v, want ErrTooFewFlags", err)
	}
	dup := []Flag{DefaultFlags[0], DefaultFlags[1], DefaultFlags[2], DefaultFlags[0]}
	if _, err := NewModel(dup, 5, rand.New(rand.NewPCG(1, 1))); err == nil {
		t.Fatal("duplicate codes accepted")
	}
}

func TestRoundOptions(t *testing.T) {
	m := newModel(t, 200)
	for range 200 {
		m.StartNewRound()
		r := m.Round()
		if len(r.Options) != 4 {
			t.Fatalf("round %d: %d options", r.Number, len(r.Options))
		}
		seen := map[string]bool{}
		hasAnswer := false
		for _, f := range r.Options {
			if seen[f.Code] {
				t.Fatalf("round %d: duplicate option %s", r.Number, f.Code)
			}
			seen[f.Code] = true
			hasAnswer = hasAnswer || f.Code == m.Answer().Code
		}
		if !hasAnswer {
			t.Fatalf("round %d: answer %s not among options", r.Number, m.Answer().Code)
		}
		if r.Scenario == "" {
			t.Fatalf("round %d: empty scenario", r.Number)
		}
	}
}

func TestScoringAndCompletion(t *testing.T) {
	m := newModel(t, 3)
	for i := range 3 {
		if m.IsComplete() {
			t.Fatalf("complete after %d rounds", i)
		}
		m.StartNewRound()
		if i == 1 {
			m.CheckAnswer("??")
			continue
		}
		if !m.CheckAnswer(m.Answer().Code) {
			t.Fatal("right answer scored as wrong")
		}
	}
	if !m.IsComplete() || m.Score() != 2 {
		t.Fatalf("complete=%v score=%d, want true 2", m.IsComplete(), m.Score())
	}

	m.Reset()
	if m.IsComplete() || m.Score() != 0 || m.Round().Number != 0 {
		t.Fatal("Reset left state behind")
	}
}

func TestControllerPlaysToFinish(t *testing.T) {
	done := make(chan FinishedEvent, 1)
	m := newModel(t, 2)
	c := NewController(m, Options{
		AdvanceDelay: 50 * time.Millisecond,
		OnFinished:   func(ev FinishedEvent) { done <- ev },
	})
	defer c.Close()

	if _, err := c.Answer("FR"); !errors.Is(err, meimei.ErrRejected) {
		t.Fatalf("answer before start: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}

	for round := 1; round <= 2; round++ {
		waitFor(t, c, StatePlaying)
		if got := c.View().Round.Number; got != round {
			t.Fatalf("round = %d, want %d", got, round)
		}
		code := m.Answer().Code
		correct, err := c.Answer(code)
		if err != nil || !correct {
			t.Fatalf("answer: %v %v", correct, err)
		}
		if _, err := c.Answer(code); !errors.Is(err, meimei.ErrRejected) {
			t.Fatalf("second answer in same round: %v", err)
		}
	}

	select {
	case ev := <-done:
		if ev.Score != 2 || ev.TotalRounds != 2 {
			t.Fatalf("finished event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("quiz never finished")
	}
	if got := c.View().State; got != StateFinished {
		t.Fatalf("state = %s, want finished", got)
	}
}

func TestViewRevealsAnswerAfterGuess(t *testing.T) {
	m := newModel(t, 5)
	c := NewController(m, Options{AdvanceDelay: time.Hour})
	defer c.Close()
	c.Start()

	if c.View().Answer != nil {
		t.Fatal("answer visible before guessing")
	}
	c.Answer("??")
	v := c.View()
	if v.State != StateWrong || v.Answer == nil || v.Answer.Code != m.Answer().Code {
		t.Fatalf("view after wrong answer = %+v", v)
	}
}

func TestCloseCancelsAdvance(t *testing.T) {
	fired := make(chan struct{}, 1)
	m := newModel(t, 1)
	c := NewController(m, Options{
		AdvanceDelay: 20 * time.Millisecond,
		OnFinished:   func(FinishedEvent) { fired <- struct{}{} },
	})
	c.Start()
	c.Answer(m.Answer().Code)
	c.Close()
	c.Close()

	select {
	case <-fired:
		t.Fatal("finished after Close")
	case <-time.After(100 * time.Millisecond):
	}
	if err := c.Start(); !errors.Is(err, meimei.ErrRejected) {
		t.Fatalf("start after close: %v", err)
	}
}

func TestStaleAdvanceIsIgnored(t *testing.T) {
	m := newModel(t, 3)
	c := NewController(m, Options{AdvanceDelay: time.Hour})
	t.Cleanup(c.Close)

	c.Start()
	c.Answer(m.Answer().Code)
	c.mu.Lock()
	stale := c.gen
	c.mu.Unlock()

	// Restart and answer again before the first timer would have fired.
	c.Start()
	c.Answer("??")
	c.mu.Lock()
	current := c.gen
	c.mu.Unlock()

	c.advance(stale)
	if v := c.View(); v.State != StateWrong || v.Round.Number != 1 {
		t.Fatalf("after stale advance: state=%s round=%d, want wrong in round 1", v.State, v.Round.Number)
	}

	c.advance(current)
	if v := c.View(); v.State != StatePlaying || v.Round.Number != 2 {
		t.Fatalf("after current advance: state=%s round=%d, want playing round 2", v.State, v.Round.Number)
	}
}

func waitFor(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.View().State != want {
		if time.Now().After(deadline) {
			t.Fatalf("state stuck at %s, want %s", c.View().State, want)
		}
		time.Sleep(time.Millisecond)
	}
}
