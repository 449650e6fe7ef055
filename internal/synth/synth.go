// Package synth simulates guess/feedback episodes and turns them into
// labeled training examples for the guess classifier.
//
// The simulated searcher is deliberately not the engine's own policy: its
// first guess is the midpoint and every later guess is uniform over the
// bounds still consistent with the feedback.
package synth

import (
	"errors"
	"math/rand/v2"

	"github.com/robalobadob/numguess/internal/features"
	"github.com/robalobadob/numguess/internal/game"
)

var (
	ErrBadMaxNumber  = errors.New("max number must be at least 2")
	ErrBadNumSamples = errors.New("number of samples must not be negative")
)

// Dataset is the output of GenerateDataset.
type Dataset struct {
	Examples  []features.Example
	Episodes  int
	Guesses   int // all guesses made, winning ones included
	Fallbacks int // guesses drawn from the full range after bounds crossed
}

// LabelCounts returns the number of examples per label.
func (d Dataset) LabelCounts() [features.NumLabels]int {
	var out [features.NumLabels]int
	for _, ex := range d.Examples {
		out[ex.Label]++
	}
	return out
}

// GenerateDataset plays numSamples independent episodes over [1, maxNumber]
// and returns one example per guess after the first in each episode, in
// episode order. Every episode contributes (guesses - 1) examples.
func GenerateDataset(rng *rand.Rand, numSamples, maxNumber int) (Dataset, error) {
	if maxNumber < 2 {
		return Dataset{}, ErrBadMaxNumber
	}
	if numSamples < 0 {
		return Dataset{}, ErrBadNumSamples
	}
	ds := Dataset{Episodes: numSamples}
	for range numSamples {
		ds.episode(rng, maxNumber)
	}
	return ds, nil
}

// episode plays until the target is hit. The loop has no step cap: the
// target always stays inside [Low, High] under truthful feedback and each
// wrong guess removes at least one value, so it ends within maxNumber steps.
func (d *Dataset) episode(rng *rand.Rand, maxNumber int) {
	target := uniform(rng, 1, maxNumber)
	s := game.NewState(maxNumber)
	for {
		guess, fallback := nextGuess(rng, s)
		o := game.Judge(guess, target)

		// s holds exactly the bounds obtained by replaying feedback[0..i)
		// from (1, maxNumber), so encoding here equals encoding after the fact.
		if len(s.Guesses) > 0 {
			label, _ := features.LabelOf(o)
			d.Examples = append(d.Examples, features.Example{
				Features: features.Encode(s, guess),
				Label:    label,
				Fallback: fallback,
			})
		}
		if fallback {
			d.Fallbacks++
		}
		s.Record(guess, o)
		d.Guesses++
		if s.Won() {
			return
		}
	}
}

// nextGuess applies the simulation policy. The bool reports a fallback draw.
func nextGuess(rng *rand.Rand, s game.State) (int, bool) {
	if len(s.Guesses) == 0 {
		return s.RangeMax / 2, false
	}
	if s.Low > s.High {
		return uniform(rng, 1, s.RangeMax), true
	}
	return uniform(rng, s.Low, s.High), false
}

// uniform draws from the closed interval [lo, hi].
func uniform(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}
