package engine

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/numguess/internal/classifier"
	"github.com/robalobadob/numguess/internal/features"
	"github.com/robalobadob/numguess/internal/game"
	"github.com/robalobadob/numguess/internal/synth"
)

// favour scores one proposed guess as certainly correct and all others as 0.1.
func favour(guess int) classifier.Classifier {
	return classifier.Func(func(v features.Vector) ([]float64, error) {
		if v.ProposedGuess == guess {
			return []float64{0, 0, 1}, nil
		}
		return []float64{0.45, 0.45, 0.1}, nil
	})
}

func afterFirstGuess() game.State {
	return game.State{
		Guesses:  []int{50},
		Feedback: []game.Outcome{game.OutcomeLower},
		Low:      1,
		High:     49,
		RangeMax: 100,
	}
}

func TestCandidates(t *testing.T) {
	assert.Empty(t, Candidates(game.NewState(100)))
	assert.Equal(t, []int{1, 25, 49}, Candidates(afterFirstGuess()))

	s := game.State{
		Guesses:  []int{50, 25},
		Feedback: []game.Outcome{game.OutcomeLower, game.OutcomeHigher},
		Low:      26, High: 49, RangeMax: 100,
	}
	assert.Equal(t, []int{26, 37, 49}, Candidates(s))

	s = game.State{
		Guesses:  []int{50, 52},
		Feedback: []game.Outcome{game.OutcomeHigher, game.OutcomeLower},
		Low:      51, High: 51, RangeMax: 100,
	}
	assert.Equal(t, []int{51}, Candidates(s))
}

func TestFirstGuessIsMidpoint(t *testing.T) {
	e := New(favour(1))
	g, err := e.NextGuess(game.NewState(100))
	require.NoError(t, err)
	assert.Equal(t, 50, g)

	g, err = e.NextGuess(game.NewState(7))
	require.NoError(t, err)
	assert.Equal(t, 3, g)
}

func TestScenarioPicksHighestScoringCandidate(t *testing.T) {
	gm, err := game.New(100, 37)
	require.NoError(t, err)
	e := New(favour(25))

	guess, o, err := e.MakeGuess(gm)
	require.NoError(t, err)
	assert.Equal(t, 50, guess)
	assert.Equal(t, game.OutcomeLower, o)
	assert.Equal(t, 49, gm.State.High)

	guess, o, err = e.MakeGuess(gm)
	require.NoError(t, err)
	assert.Equal(t, 25, guess)
	assert.Equal(t, game.OutcomeHigher, o)
	assert.Equal(t, 26, gm.State.Low)
}

func TestTiesGoToSmallestCandidate(t *testing.T) {
	flat := classifier.Func(func(features.Vector) ([]float64, error) {
		return []float64{0.2, 0.2, 0.6}, nil
	})
	g, err := New(flat).NextGuess(afterFirstGuess())
	require.NoError(t, err)
	assert.Equal(t, 1, g)
}

func TestInferenceFailuresScoreZero(t *testing.T) {
	broken := classifier.Func(func(features.Vector) ([]float64, error) {
		return nil, errors.New("boom")
	})
	e := New(broken)
	assert.Zero(t, e.Score(features.Vector{ProposedGuess: 10}))
	g, err := e.NextGuess(afterFirstGuess())
	require.NoError(t, err)
	assert.Equal(t, 1, g)

	twoClasses := classifier.Func(func(v features.Vector) ([]float64, error) {
		return []float64{0.5, 0.5}, nil
	})
	assert.Zero(t, New(twoClasses).Score(features.Vector{ProposedGuess: 10}))

	// A zero-scored candidate loses to any positive score.
	partial := classifier.Func(func(v features.Vector) ([]float64, error) {
		if v.ProposedGuess == 49 {
			return []float64{0.9, 0.09, 0.01}, nil
		}
		return nil, errors.New("boom")
	})
	g, err = New(partial).NextGuess(afterFirstGuess())
	require.NoError(t, err)
	assert.Equal(t, 49, g)
}

func TestInvalidState(t *testing.T) {
	e := New(favour(1))
	s := afterFirstGuess()
	s.Low, s.High = 30, 20
	_, err := e.NextGuess(s)
	assert.ErrorIs(t, err, ErrInvalidState)

	s = afterFirstGuess()
	s.Feedback = nil
	_, err = e.NextGuess(s)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMakeGuessOnFinishedGame(t *testing.T) {
	gm, err := game.New(100, 50)
	require.NoError(t, err)
	e := New(favour(1))

	_, o, err := e.MakeGuess(gm)
	require.NoError(t, err)
	assert.Equal(t, game.OutcomeCorrect, o)

	_, _, err = e.MakeGuess(gm)
	assert.ErrorIs(t, err, game.ErrFinished)
}

func trainedTree(t *testing.T) *classifier.DecisionTree {
	t.Helper()
	ds, err := synth.GenerateDataset(rand.New(rand.NewPCG(42, 42)), 1000, 100)
	require.NoError(t, err)
	tree := classifier.NewDecisionTree(classifier.DefaultMaxDepth, classifier.DefaultMinSamplesSplit)
	require.NoError(t, tree.Fit(ds.Examples))
	return tree
}

// playOut drives a game to the end and checks the bounds invariants at
// every step.
func playOut(t *testing.T, e *Engine, target int) int {
	gm, err := game.New(100, target)
	require.NoError(t, err)
	for steps := 1; steps <= 100; steps++ {
		low, high := gm.State.Low, gm.State.High
		guess, o, err := e.MakeGuess(gm)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, guess, low)
		assert.LessOrEqual(t, guess, high)
		assert.GreaterOrEqual(t, gm.State.Low, low)
		assert.LessOrEqual(t, gm.State.High, high)

		if o == game.OutcomeCorrect {
			assert.Equal(t, target, guess)
			return steps
		}
		assert.LessOrEqual(t, gm.State.Low, gm.State.High)
	}
	t.Fatalf("target %d not found within 100 guesses", target)
	return 0
}

func TestTrainedEngineFindsEveryTarget(t *testing.T) {
	e := New(trainedTree(t))
	for target := 1; target <= 100; target++ {
		playOut(t, e, target)
	}
}

func TestEngineIsSharedAcrossGames(t *testing.T) {
	e := New(trainedTree(t))
	var wg sync.WaitGroup
	for target := 1; target <= 100; target += 9 {
		wg.Add(1)
		go func(target int) {
			defer wg.Done()
			gm, err := game.New(100, target)
			if err != nil {
				t.Error(err)
				return
			}
			for !gm.Finished {
				if _, _, err := e.MakeGuess(gm); err != nil {
					t.Error(err)
					return
				}
			}
		}(target)
	}
	wg.Wait()
}
