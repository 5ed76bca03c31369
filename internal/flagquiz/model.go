// Package flagquiz implements the flag-matching minigame played between
// locations: each round shows a scenario and four flags, one of them right.
package flagquiz

import (
	"fmt"
	"math/rand/v2"
)

const (
	DefaultRounds = 5
	optionCount   = 4
)

var ErrTooFewFlags = fmt.Errorf("flag quiz needs at least %d flags", optionCount)

// Round is the public view of the round in play.
type Round struct {
	Number   int    `json:"number"`
	Scenario string `json:"scenario"`
	Options  []Flag `json:"options"`
}

type Model struct {
	flags  []Flag
	rng    *rand.Rand
	rounds int

	round    int
	score    int
	scenario string
	answer   Flag
	options  []Flag
}

func NewModel(flags []Flag, rounds int, rng *rand.Rand) (*Model, error) {
	if len(flags) < optionCount {
		return nil, ErrTooFewFlags
	}
	seen := make(map[string]bool, len(flags))
	for _, f := range flags {
		if f.Code == "" || seen[f.Code] {
			return nil, fmt.Errorf("flag %q: empty or duplicate code", f.Code)
		}
		seen[f.Code] = true
	}
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	return &Model{flags: flags, rng: rng, rounds: rounds}, nil
}

// StartNewRound advances the round counter and draws a scenario, an answer
// and three distinct decoys in shuffled order.
func (m *Model) StartNewRound() {
	m.round++
	m.scenario = Scenarios[m.rng.IntN(len(Scenarios))]

	ans := m.rng.IntN(len(m.flags))
	m.answer = m.flags[ans]
	m.options = append(m.options[:0], m.answer)
	for _, i := range m.rng.Perm(len(m.flags)) {
		if len(m.options) == optionCount {
			break
		}
		if i != ans {
			m.options = append(m.options, m.flags[i])
		}
	}
	m.rng.Shuffle(len(m.options), func(i, j int) {
		m.options[i], m.options[j] = m.options[j], m.options[i]
	})
}

// CheckAnswer scores a guess for the current round.
func (m *Model) CheckAnswer(code string) bool {
	if code != m.answer.Code {
		return false
	}
	m.score++
	return true
}

func (m *Model) IsComplete() bool { return m.round >= m.rounds }

func (m *Model) Reset() {
	m.round = 0
	m.score = 0
	m.scenario = ""
	m.answer = Flag{}
	m.options = nil
}

func (m *Model) Round() Round {
	return Round{
		Number:   m.round,
		Scenario: m.scenario,
		Options:  append([]Flag(nil), m.options...),
	}
}

func (m *Model) Answer() Flag     { return m.answer }
func (m *Model) Score() int       { return m.score }
func (m *Model) TotalRounds() int { return m.rounds }
