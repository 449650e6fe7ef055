// internal/classifier/classifier.go
//
// The Classifier capability used by the guess engine, plus model persistence.
//
// A Classifier maps a feature vector to a probability distribution over
// outcome labels. The distribution is dense by label index
// (lower=0, higher=1, correct=2) and may be shorter than NumLabels when the
// model never saw the higher labels during training.

package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/robalobadob/numguess/internal/features"
)

var (
	ErrNotTrained     = errors.New("classifier not trained")
	ErrEmptyDataset   = errors.New("no training examples")
	ErrSchemaMismatch = errors.New("model feature schema does not match")
	ErrUnknownKind    = errors.New("unknown model kind")
)

// Classifier predicts outcome probabilities for a feature vector.
// Implementations must be safe for concurrent use once trained.
type Classifier interface {
	PredictProba(v features.Vector) ([]float64, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(v features.Vector) ([]float64, error)

// PredictProba calls f(v).
func (f Func) PredictProba(v features.Vector) ([]float64, error) { return f(v) }

// KindDecisionTree identifies a serialized DecisionTree.
const KindDecisionTree = "decision_tree"

// envelope is the on-disk model format. Features pins the column layout the
// model was trained on.
type envelope struct {
	Kind     string        `json:"kind"`
	Features []string      `json:"features"`
	Tree     *DecisionTree `json:"tree"`
}

// Save writes t as JSON.
func Save(w io.Writer, t *DecisionTree) error {
	if t == nil || len(t.Nodes) == 0 {
		return ErrNotTrained
	}
	env := envelope{Kind: KindDecisionTree, Features: features.Names[:], Tree: t}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// Load reads a model written by Save and checks its feature schema.
func Load(r io.Reader) (*DecisionTree, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if env.Kind != KindDecisionTree {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	if len(env.Features) != features.NumFeatures {
		return nil, fmt.Errorf("%w: %d columns", ErrSchemaMismatch, len(env.Features))
	}
	for i, name := range env.Features {
		if name != features.Names[i] {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrSchemaMismatch, i, name, features.Names[i])
		}
	}
	if env.Tree == nil || len(env.Tree.Nodes) == 0 {
		return nil, ErrNotTrained
	}
	if err := env.Tree.check(); err != nil {
		return nil, err
	}
	return env.Tree, nil
}

// SaveFile writes the model to path, creating parent directories.
func SaveFile(path string, t *DecisionTree) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a model from path.
func LoadFile(path string) (*DecisionTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}
