// internal/classifier/tree.go
//
// CART decision tree over the integer feature schema.
//
// Splits are binary "value <= threshold" tests chosen by the largest Gini
// impurity decrease; thresholds sit halfway between adjacent observed values.
// Growth stops at MaxDepth, below MinSamplesSplit samples, on pure nodes, or
// when no split lowers impurity. Leaves keep raw class counts.

package classifier

import (
	"fmt"
	"sort"

	"github.com/robalobadob/numguess/internal/features"
)

// Defaults used by the training pipeline.
const (
	DefaultMaxDepth        = 8
	DefaultMinSamplesSplit = 5
)

// Node is one tree node. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Counts    []int   `json:"counts"`
}

// DecisionTree is a trained (or trainable) classification tree.
// A trained tree is read-only and safe for concurrent PredictProba calls.
type DecisionTree struct {
	MaxDepth        int    `json:"maxDepth"` // <= 0 means unlimited
	MinSamplesSplit int    `json:"minSamplesSplit"`
	NumClasses      int    `json:"numClasses"`
	Nodes           []Node `json:"nodes"`
}

// NewDecisionTree returns an untrained tree.
func NewDecisionTree(maxDepth, minSamplesSplit int) *DecisionTree {
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}
	return &DecisionTree{MaxDepth: maxDepth, MinSamplesSplit: minSamplesSplit}
}

// Fit grows the tree from scratch on examples.
//
// NumClasses is one past the highest label present, so a dataset without
// any "correct" rows yields a model whose distributions have fewer than
// NumLabels entries.
func (t *DecisionTree) Fit(examples []features.Example) error {
	if len(examples) == 0 {
		return ErrEmptyDataset
	}
	b := &builder{
		tree:   t,
		rows:   make([][features.NumFeatures]int, len(examples)),
		labels: make([]int, len(examples)),
	}
	classes := 0
	for i, ex := range examples {
		if ex.Label < 0 || int(ex.Label) >= features.NumLabels {
			return fmt.Errorf("example %d: label %d out of range", i, ex.Label)
		}
		b.rows[i] = ex.Features.Values()
		b.labels[i] = int(ex.Label)
		classes = max(classes, int(ex.Label)+1)
	}
	t.NumClasses = classes
	t.Nodes = nil

	idx := make([]int, len(examples))
	for i := range idx {
		idx[i] = i
	}
	b.grow(idx, 0)
	return nil
}

// PredictProba returns the class distribution of the leaf v falls into.
func (t *DecisionTree) PredictProba(v features.Vector) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, ErrNotTrained
	}
	x := v.Values()
	i := 0
	for t.Nodes[i].Feature >= 0 {
		n := t.Nodes[i]
		if float64(x[n.Feature]) <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	counts := t.Nodes[i].Counts
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out, nil
	}
	for k, c := range counts {
		out[k] = float64(c) / float64(total)
	}
	return out, nil
}

// Leaves counts the leaf nodes.
func (t *DecisionTree) Leaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.Feature < 0 {
			n++
		}
	}
	return n
}

// check validates a decoded tree. Children must come after their parent,
// which also rules out cycles.
func (t *DecisionTree) check() error {
	if t.NumClasses < 1 || t.NumClasses > features.NumLabels {
		return fmt.Errorf("invalid tree: %d classes", t.NumClasses)
	}
	for i, n := range t.Nodes {
		if len(n.Counts) != t.NumClasses {
			return fmt.Errorf("invalid tree: node %d has %d counts", i, len(n.Counts))
		}
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= features.NumFeatures {
			return fmt.Errorf("invalid tree: node %d splits on feature %d", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("invalid tree: node %d has bad children", i)
		}
	}
	return nil
}

// builder holds the training matrix while a tree grows.
type builder struct {
	tree   *DecisionTree
	rows   [][features.NumFeatures]int
	labels []int
}

func (b *builder) grow(idx []int, depth int) int {
	counts := b.count(idx)
	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Feature: -1, Counts: counts})

	if b.tree.MaxDepth > 0 && depth >= b.tree.MaxDepth {
		return id
	}
	if len(idx) < b.tree.MinSamplesSplit || pure(counts) {
		return id
	}
	f, thr, ok := b.bestSplit(idx, counts)
	if !ok {
		return id
	}

	var left, right []int
	for _, i := range idx {
		if float64(b.rows[i][f]) <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)

	n := &b.tree.Nodes[id]
	n.Feature, n.Threshold, n.Left, n.Right = f, thr, l, r
	return id
}

func (b *builder) count(idx []int) []int {
	counts := make([]int, b.tree.NumClasses)
	for _, i := range idx {
		counts[b.labels[i]]++
	}
	return counts
}

// bestSplit scans every feature in schema order. Only a strictly lower
// weighted impurity replaces the current best, so earlier features win ties.
func (b *builder) bestSplit(idx []int, parent []int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	best := float64(n) * gini(parent, n)
	sorted := make([]int, n)
	left := make([]int, len(parent))
	right := make([]int, len(parent))

	for f := 0; f < features.NumFeatures; f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.rows[sorted[a]][f] < b.rows[sorted[c]][f]
		})
		clear(left)
		copy(right, parent)

		for i := 0; i < n-1; i++ {
			y := b.labels[sorted[i]]
			left[y]++
			right[y]--
			v, next := b.rows[sorted[i]][f], b.rows[sorted[i+1]][f]
			if v == next {
				continue
			}
			nl, nr := i+1, n-i-1
			score := float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)
			if score < best-1e-9 {
				best = score
				feature, threshold, ok = f, float64(v+next)/2, true
			}
		}
	}
	return feature, threshold, ok
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func pure(counts []int) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}
