// Package features defines the fixed feature schema shared by training-data
// generation and guess scoring. Both sides must encode through Encode; a model
// trained on one layout is meaningless for any other.
package features

import (
	"fmt"

	"github.com/robalobadob/numguess/internal/game"
)

// NumFeatures is the width of a Vector.
const NumFeatures = 7

// Names lists the columns of a Vector in the order returned by Values.
var Names = [NumFeatures]string{
	"current_guess",
	"previous_guess",
	"guess_count",
	"low_bound",
	"high_bound",
	"last_feedback",
	"proposed_guess",
}

// Vector encodes a game state plus one proposed guess.
type Vector struct {
	CurrentGuess  int `json:"current_guess"`  // last guess made, 0 if none
	PreviousGuess int `json:"previous_guess"` // second-to-last guess, 0 if fewer than two
	GuessCount    int `json:"guess_count"`
	LowBound      int `json:"low_bound"`
	HighBound     int `json:"high_bound"`
	LastFeedback  int `json:"last_feedback"` // 0 if the last outcome was "lower", else 1
	ProposedGuess int `json:"proposed_guess"`
}

// Values returns the vector's columns in Names order.
func (v Vector) Values() [NumFeatures]int {
	return [NumFeatures]int{
		v.CurrentGuess,
		v.PreviousGuess,
		v.GuessCount,
		v.LowBound,
		v.HighBound,
		v.LastFeedback,
		v.ProposedGuess,
	}
}

// Encode builds the Vector for proposing guess `proposed` from state s.
//
// LastFeedback folds "correct" into the same value as "higher". Models
// trained so far depend on that encoding, so it is kept as is.
func Encode(s game.State, proposed int) Vector {
	v := Vector{
		GuessCount:    len(s.Guesses),
		LowBound:      s.Low,
		HighBound:     s.High,
		LastFeedback:  1,
		ProposedGuess: proposed,
	}
	if n := len(s.Guesses); n > 0 {
		v.CurrentGuess = s.Guesses[n-1]
		if n > 1 {
			v.PreviousGuess = s.Guesses[n-2]
		}
	}
	if n := len(s.Feedback); n > 0 && s.Feedback[n-1] == game.OutcomeLower {
		v.LastFeedback = 0
	}
	return v
}

// Label is the class index of an outcome.
type Label int

const (
	LabelLower Label = iota
	LabelHigher
	LabelCorrect
)

// NumLabels is the number of outcome classes.
const NumLabels = 3

// LabelOf maps an outcome to its class index.
func LabelOf(o game.Outcome) (Label, error) {
	switch o {
	case game.OutcomeLower:
		return LabelLower, nil
	case game.OutcomeHigher:
		return LabelHigher, nil
	case game.OutcomeCorrect:
		return LabelCorrect, nil
	}
	return 0, fmt.Errorf("unknown outcome %q", o)
}

// Outcome maps a class index back to its outcome.
func (l Label) Outcome() game.Outcome {
	switch l {
	case LabelLower:
		return game.OutcomeLower
	case LabelHigher:
		return game.OutcomeHigher
	case LabelCorrect:
		return game.OutcomeCorrect
	}
	return ""
}

// Example is one labeled training row: the actual outcome of making
// Features.ProposedGuess from the encoded state.
type Example struct {
	Features Vector `json:"features"`
	Label    Label  `json:"label"`
	// Fallback marks a guess drawn from the full range because the
	// simulated bounds had crossed. Such rows can sit outside their own
	// LowBound/HighBound.
	Fallback bool `json:"fallback,omitempty"`
}
