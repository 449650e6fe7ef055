// internal/game/game.go
//
// Game loop for a single number-guessing session.
// Responsibilities:
//   - Create new games over [1, rangeMax] with a fixed or random target.
//   - Judge guesses against the target and tighten the bounds.
//   - Track the playing → finished transition.
//
// The target is unexported so that nothing choosing a guess can read it;
// it only becomes visible through Target once the game is finished.
package game

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// NewState returns the state of a fresh game over [1, rangeMax].
func NewState(rangeMax int) State {
	return State{
		Guesses:  []int{},
		Feedback: []Outcome{},
		Low:      1,
		High:     rangeMax,
		RangeMax: rangeMax,
	}
}

// LastGuess returns the most recent guess, if any.
func (s State) LastGuess() (int, bool) {
	if len(s.Guesses) == 0 {
		return 0, false
	}
	return s.Guesses[len(s.Guesses)-1], true
}

// Won reports whether the last recorded outcome was correct.
func (s State) Won() bool {
	n := len(s.Feedback)
	return n > 0 && s.Feedback[n-1] == OutcomeCorrect
}

// Valid reports whether 1 <= Low <= High <= RangeMax and the history is aligned.
func (s State) Valid() bool {
	return len(s.Guesses) == len(s.Feedback) &&
		1 <= s.Low && s.Low <= s.High && s.High <= s.RangeMax
}

// Record appends a guess and its outcome and tightens the bounds.
// "higher" raises Low past the guess, "lower" drops High below it; neither
// ever widens the interval.
func (s *State) Record(guess int, o Outcome) {
	switch o {
	case OutcomeHigher:
		s.Low = max(s.Low, guess+1)
	case OutcomeLower:
		s.High = min(s.High, guess-1)
	}
	s.Guesses = append(s.Guesses, guess)
	s.Feedback = append(s.Feedback, o)
}

// Judge compares a guess with the target.
func Judge(guess, target int) Outcome {
	switch {
	case guess == target:
		return OutcomeCorrect
	case guess < target:
		return OutcomeHigher
	default:
		return OutcomeLower
	}
}

// New constructs a game over [1, rangeMax].
// If target is 0, a uniformly random target is drawn.
func New(rangeMax, target int) (*Game, error) {
	if rangeMax < 2 {
		return nil, ErrBadRange
	}
	if target == 0 {
		target = rand.IntN(rangeMax) + 1
	}
	if target < 1 || target > rangeMax {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrBadTarget, target, rangeMax)
	}
	return &Game{
		ID:        uuid.NewString(),
		State:     NewState(rangeMax),
		CreatedAt: time.Now().UTC(),
		target:    target,
	}, nil
}

// Apply judges a guess, records it and returns the outcome.
//
// Validation rules:
//   - Game must not be finished.
//   - Guess must lie within the current [Low, High].
func (g *Game) Apply(guess int) (Outcome, error) {
	if g.Finished {
		return "", ErrFinished
	}
	if guess < g.State.Low || guess > g.State.High {
		return "", fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, guess, g.State.Low, g.State.High)
	}
	o := Judge(guess, g.target)
	g.State.Record(guess, o)
	g.Finished = g.State.Won()
	return o, nil
}

// Clone returns a deep copy of g whose history can be read while g keeps
// changing.
func (g *Game) Clone() *Game {
	c := *g
	c.State.Guesses = append([]int(nil), g.State.Guesses...)
	c.State.Feedback = append([]Outcome(nil), g.State.Feedback...)
	return &c
}

// Target reveals the secret once the game is over.
func (g *Game) Target() (int, bool) {
	if !g.Finished {
		return 0, false
	}
	return g.target, true
}
