// play.go
//
// Local play: the engine searches for a fixed target and every step is
// printed, ending with the number of tries.

package main

import (
	"fmt"
	"io"

	"github.com/robalobadob/numguess/internal/engine"
	"github.com/robalobadob/numguess/internal/game"
)

// playGame lets eng find target in [1, maxNumber] and prints every step.
// It returns the number of guesses taken.
func playGame(w io.Writer, eng *engine.Engine, maxNumber, target int) (int, error) {
	g, err := game.New(maxNumber, target)
	if err != nil {
		return 0, err
	}
	for !g.Finished {
		guess, o, err := eng.MakeGuess(g)
		if err != nil {
			return len(g.State.Guesses), err
		}
		fmt.Fprintf(w, "guess (%d) => %d: %s [%d, %d]\n", len(g.State.Guesses), guess, o, g.State.Low, g.State.High)
	}
	t, _ := g.Target()
	n := len(g.State.Guesses)
	fmt.Fprintf(w, "AI guessed %d in %d tries\n", t, n)
	return n, nil
}
