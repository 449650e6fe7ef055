package classifier

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/numguess/internal/features"
)

// thresholdExamples labels proposed guesses against a fixed secret of 50.
func thresholdExamples() []features.Example {
	var out []features.Example
	for rep := 0; rep < 3; rep++ {
		for g := 1; g <= 100; g++ {
			label := features.LabelHigher
			switch {
			case g == 50:
				label = features.LabelCorrect
			case g > 50:
				label = features.LabelLower
			}
			out = append(out, features.Example{
				Features: features.Vector{GuessCount: 1, LowBound: 1, HighBound: 100, ProposedGuess: g},
				Label:    label,
			})
		}
	}
	return out
}

func TestDecisionTreeLearnsThreshold(t *testing.T) {
	tree := NewDecisionTree(DefaultMaxDepth, DefaultMinSamplesSplit)
	require.NoError(t, tree.Fit(thresholdExamples()))
	assert.Equal(t, features.NumLabels, tree.NumClasses)

	tests := []struct {
		guess int
		want  features.Label
	}{
		{10, features.LabelHigher},
		{49, features.LabelHigher},
		{50, features.LabelCorrect},
		{51, features.LabelLower},
		{99, features.LabelLower},
	}
	for _, tt := range tests {
		p, err := tree.PredictProba(features.Vector{GuessCount: 1, LowBound: 1, HighBound: 100, ProposedGuess: tt.guess})
		require.NoError(t, err)
		require.Len(t, p, features.NumLabels)
		assert.InDelta(t, 1.0, p[tt.want], 1e-9, "guess %d", tt.guess)
	}
	assert.Greater(t, tree.Leaves(), 1)
}

func TestDecisionTreeDepthLimit(t *testing.T) {
	tree := NewDecisionTree(1, 2)
	require.NoError(t, tree.Fit(thresholdExamples()))
	assert.Len(t, tree.Nodes, 3, "one split and two leaves")

	p, err := tree.PredictProba(features.Vector{ProposedGuess: 50})
	require.NoError(t, err)
	sum := 0.0
	for _, x := range p {
		sum += x
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestDecisionTreeWithoutCorrectExamples(t *testing.T) {
	var examples []features.Example
	for _, ex := range thresholdExamples() {
		if ex.Label != features.LabelCorrect {
			examples = append(examples, ex)
		}
	}
	tree := NewDecisionTree(DefaultMaxDepth, DefaultMinSamplesSplit)
	require.NoError(t, tree.Fit(examples))

	p, err := tree.PredictProba(features.Vector{ProposedGuess: 50})
	require.NoError(t, err)
	assert.Len(t, p, 2)
}

func TestDecisionTreeErrors(t *testing.T) {
	tree := NewDecisionTree(DefaultMaxDepth, DefaultMinSamplesSplit)
	_, err := tree.PredictProba(features.Vector{})
	assert.ErrorIs(t, err, ErrNotTrained)

	assert.ErrorIs(t, tree.Fit(nil), ErrEmptyDataset)
	assert.Error(t, tree.Fit([]features.Example{{Label: 7}}))

	var buf bytes.Buffer
	assert.ErrorIs(t, Save(&buf, tree), ErrNotTrained)
}

func TestSaveLoadKeepsPredictions(t *testing.T) {
	tree := NewDecisionTree(DefaultMaxDepth, DefaultMinSamplesSplit)
	require.NoError(t, tree.Fit(thresholdExamples()))

	path := filepath.Join(t.TempDir(), "models", "model.json")
	require.NoError(t, SaveFile(path, tree))
	loaded, err := LoadFile(path)
	require.NoError(t, err)

	for g := 1; g <= 100; g += 7 {
		v := features.Vector{GuessCount: 1, LowBound: 1, HighBound: 100, ProposedGuess: g}
		want, _ := tree.PredictProba(v)
		got, err := loaded.PredictProba(v)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLoadRejectsForeignModels(t *testing.T) {
	tree := NewDecisionTree(DefaultMaxDepth, DefaultMinSamplesSplit)
	require.NoError(t, tree.Fit(thresholdExamples()))
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, tree))

	renamed := strings.Replace(buf.String(), `"proposed_guess"`, `"proposed"`, 1)
	_, err := Load(strings.NewReader(renamed))
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	var env map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	env["kind"] = "random_forest"
	b, _ := json.Marshal(env)
	_, err = Load(bytes.NewReader(b))
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Load(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestLoadRejectsCyclicTree(t *testing.T) {
	bad := `{"kind":"decision_tree","features":["current_guess","previous_guess","guess_count","low_bound","high_bound","last_feedback","proposed_guess"],
	"tree":{"maxDepth":8,"minSamplesSplit":5,"numClasses":3,"nodes":[{"feature":6,"threshold":1,"left":0,"right":0,"counts":[1,1,1]}]}}`
	_, err := Load(strings.NewReader(bad))
	assert.Error(t, err)
}

func TestFuncAdapter(t *testing.T) {
	var c Classifier = Func(func(v features.Vector) ([]float64, error) {
		return []float64{0, 0, float64(v.ProposedGuess)}, nil
	})
	p, err := c.PredictProba(features.Vector{ProposedGuess: 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, p[2])
}
