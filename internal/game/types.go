// internal/game/types.go
//
// Core type definitions for a number-guessing game.
// Defines:
//   - Outcome: the feedback for a single guess (lower/higher/correct).
//   - State: what a guesser is allowed to see about a game in progress.
//   - Game: a single session, including the secret target.

package game

import (
	"errors"
	"time"
)

// Outcome is the result of comparing a guess with the secret target.
//   - "lower":   the guess was too high, the target is below it.
//   - "higher":  the guess was too low, the target is above it.
//   - "correct": the guess equals the target and ends the game.
type Outcome string

const (
	OutcomeLower   Outcome = "lower"
	OutcomeHigher  Outcome = "higher"
	OutcomeCorrect Outcome = "correct"
)

var (
	ErrFinished   = errors.New("game finished")
	ErrOutOfRange = errors.New("guess outside current bounds")
	ErrBadRange   = errors.New("range max must be at least 2")
	ErrBadTarget  = errors.New("target outside range")
)

// State is the guesser's view of a game. It never contains the target.
//
// Guesses and Feedback are append-only and always have the same length.
// Low only increases and High only decreases over the life of a game.
type State struct {
	Guesses  []int     `json:"guesses"`
	Feedback []Outcome `json:"feedback"`
	Low      int       `json:"low"`
	High     int       `json:"high"`
	RangeMax int       `json:"rangeMax"`
}

// Game holds the state of a single session.
type Game struct {
	ID        string    // Unique game identifier (UUID).
	State     State     // Guesser-visible state.
	Finished  bool      // True once a guess was correct.
	CreatedAt time.Time // Creation time (UTC).

	target int // secret; only Apply and Target read it
}
