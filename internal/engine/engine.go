// internal/engine/engine.go
//
// Guess engine: picks the next guess for a game from a small candidate set
// ranked by a trained classifier.
//
// Responsibilities:
//   - First guess: the midpoint of the whole range, matching the first move
//     of the simulated episodes the model was trained on.
//   - Later guesses: build {low, mid, high, last+1, last-1} ∩ [low, high],
//     score each by the classifier's p(correct) and keep the best.
//   - Apply the chosen guess to the game, which judges it against the target.
//
// The engine works on game.State only while choosing; the target lives
// inside game.Game and is consulted after the choice is final.

package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/classifier"
	"github.com/robalobadob/numguess/internal/features"
	"github.com/robalobadob/numguess/internal/game"
)

var (
	ErrInvalidState = errors.New("invalid game state")
	ErrNoCandidates = errors.New("no candidate guess within bounds")
)

// Engine chooses guesses. It holds no per-game state, so a single Engine
// can serve any number of concurrent games as long as its classifier is
// read-only.
type Engine struct {
	clf classifier.Classifier
}

// New returns an Engine scoring candidates with clf.
func New(clf classifier.Classifier) *Engine {
	return &Engine{clf: clf}
}

// Candidates returns the candidate guesses for s in ascending order,
// deduplicated and restricted to [s.Low, s.High]. It is empty when s has
// no guesses yet.
func Candidates(s game.State) []int {
	last, ok := s.LastGuess()
	if !ok {
		return nil
	}
	raw := []int{s.Low, (s.Low + s.High) / 2, s.High, last + 1, last - 1}
	out := make([]int, 0, len(raw))
	for _, c := range raw {
		if c >= s.Low && c <= s.High {
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// NextGuess picks the next guess for s without modifying it.
//
// Ties, including the all-zero case, go to the smallest candidate.
func (e *Engine) NextGuess(s game.State) (int, error) {
	if !s.Valid() {
		return 0, fmt.Errorf("%w: low=%d high=%d rangeMax=%d", ErrInvalidState, s.Low, s.High, s.RangeMax)
	}
	if len(s.Guesses) == 0 {
		return s.RangeMax / 2, nil
	}
	cands := Candidates(s)
	if len(cands) == 0 {
		return 0, ErrNoCandidates
	}

	best, bestScore := cands[0], e.Score(features.Encode(s, cands[0]))
	for _, c := range cands[1:] {
		if score := e.Score(features.Encode(s, c)); score > bestScore {
			best, bestScore = c, score
		}
	}
	log.Debug().
		Ints("candidates", cands).
		Int("guess", best).
		Float64("score", bestScore).
		Msg("guess selected")
	return best, nil
}

// Score returns the classifier's probability that v's proposed guess is
// correct.
//
// Fallback policy: if inference fails, or the model's distribution has no
// "correct" entry because it never saw one in training, the score is 0.
// The candidate stays eligible and loses to any positive score.
func (e *Engine) Score(v features.Vector) float64 {
	proba, err := e.clf.PredictProba(v)
	if err != nil {
		log.Debug().Err(err).Int("candidate", v.ProposedGuess).Msg("inference failed, scoring 0")
		return 0
	}
	if len(proba) <= int(features.LabelCorrect) {
		log.Debug().Int("candidate", v.ProposedGuess).Int("classes", len(proba)).Msg("model has no correct class, scoring 0")
		return 0
	}
	return proba[features.LabelCorrect]
}

// MakeGuess chooses a guess for g, applies it and returns the guess and
// its outcome. g's history and bounds are updated in place.
func (e *Engine) MakeGuess(g *game.Game) (int, game.Outcome, error) {
	if g.Finished {
		return 0, "", game.ErrFinished
	}
	guess, err := e.NextGuess(g.State)
	if err != nil {
		return 0, "", err
	}
	o, err := g.Apply(guess)
	if err != nil {
		return 0, "", fmt.Errorf("apply guess %d: %w", guess, err)
	}
	return guess, o, nil
}
