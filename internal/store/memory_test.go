package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/numguess/internal/game"
)

func TestMemoryStoreSaveGetUpdate(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	g, err := game.New(100, 37)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, g))
	assert.Equal(t, 1, st.Len())

	got, err := st.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
	assert.NotSame(t, g, got)

	err = st.Update(ctx, g.ID, func(g *game.Game) error {
		_, err := g.Apply(50)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []int{50}, g.State.Guesses)

	sentinel := errors.New("stop")
	err = st.Update(ctx, g.ID, func(*game.Game) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestMemoryStoreGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	g, err := game.New(100, 37)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, g))

	snap, err := st.Get(ctx, g.ID)
	require.NoError(t, err)
	_, err = snap.Apply(50)
	require.NoError(t, err)
	assert.Empty(t, g.State.Guesses, "snapshot changes must not reach the stored game")

	require.NoError(t, st.Update(ctx, g.ID, func(g *game.Game) error {
		_, err := g.Apply(25)
		return err
	}))
	assert.Equal(t, []int{50}, snap.State.Guesses, "stored changes must not reach an earlier snapshot")

	again, err := st.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{25}, again.State.Guesses)
	assert.Equal(t, 26, again.State.Low)
}

func TestMemoryStoreUnknownID(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	_, err := st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.Update(ctx, "missing", func(*game.Game) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := NewMemoryStore()
	err := st.Update(ctx, "any", func(*game.Game) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
