package dataset

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/numguess/assets"
	"github.com/robalobadob/numguess/internal/db"
	"github.com/robalobadob/numguess/internal/synth"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn, assets.Migrations()))
	return NewStore(conn)
}

func TestSaveRunAndReloadExamples(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	ds, err := synth.GenerateDataset(rand.New(rand.NewPCG(5, 5)), 40, 100)
	require.NoError(t, err)
	require.NotEmpty(t, ds.Examples)
	ds.Examples[0].Fallback = true

	run, err := s.SaveRun(ctx, Run{MaxNumber: 100, NumSamples: 40, Seed: 5}, ds.Examples)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, len(ds.Examples), run.Examples)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Seed)
	assert.Equal(t, 100, got.MaxNumber)
	assert.Equal(t, run.Examples, got.Examples)

	examples, err := s.Examples(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.Examples, examples)
}

func TestUnknownRun(t *testing.T) {
	s := tempStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.Examples(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestLatestModel(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	_, err := s.LatestModel(ctx)
	assert.ErrorIs(t, err, ErrNoModel)

	run, err := s.SaveRun(ctx, Run{MaxNumber: 10, NumSamples: 0}, nil)
	require.NoError(t, err)

	_, err = s.SaveModel(ctx, "", "decision_tree", []byte(`{"v":1}`))
	require.NoError(t, err)
	id, err := s.SaveModel(ctx, run.ID, "decision_tree", []byte(`{"v":2}`))
	require.NoError(t, err)

	m, err := s.LatestModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, m.ID)
	assert.Equal(t, run.ID, m.RunID)
	assert.JSONEq(t, `{"v":2}`, string(m.Body))
}
