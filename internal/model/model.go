// Package model loads and serves the pre-trained income classifiers and the
// shared label encoder.
//
// Artifacts are opaque JSON envelopes produced by the training pipeline: an
// ordered feature schema, per-feature categorical vocabularies and the dumped
// tree ensembles. They are loaded at most once per process, cached, and never
// mutated after load, so handles are safe to share across requests without
// locking.
package model

import (
	"fmt"
	"math"
)

// Model identifiers for the two interchangeable classifiers.
const (
	GradientBoostedTrees = "gradient-boosted-trees"
	RandomForestEnsemble = "random-forest-ensemble"
)

// ModelIDs lists every loadable classifier.
var ModelIDs = []string{GradientBoostedTrees, RandomForestEnsemble}

// KnownModel reports whether id names a loadable classifier.
func KnownModel(id string) bool {
	for _, known := range ModelIDs {
		if known == id {
			return true
		}
	}
	return false
}

// ArtifactError reports a missing or corrupt model/encoder artifact. It is
// fatal to the request that needed the artifact but must not take down
// requests using other models.
type ArtifactError struct {
	Artifact string
	Err      error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("artifact %s: %v", e.Artifact, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// TreeNode is one node of a dumped decision tree, stored as a flat array
// with child indexes. Leaves carry the class distribution (random forest)
// or a single boosting score (gradient boosting).
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value"`
}

const (
	algGradientBoosting = "gradient-boosting"
	algRandomForest     = "random-forest"
)

type artifact struct {
	ModelID      string              `json:"model_id"`
	Algorithm    string              `json:"algorithm"`
	Schema       []string            `json:"schema"`
	Categorical  map[string][]string `json:"categorical"`
	BaseScore    float64             `json:"base_score"`
	LearningRate float64             `json:"learning_rate"`
	Trees        [][]TreeNode        `json:"trees"`
}

// Handle is a loaded, immutable classifier.
type Handle struct {
	id           string
	algorithm    string
	schema       []string
	categorical  map[string][]string
	baseScore    float64
	learningRate float64
	trees        [][]TreeNode
}

// ID returns the model identifier the handle was loaded under.
func (h *Handle) ID() string { return h.id }

// Vocabulary returns the categorical vocabularies the model was trained with.
func (h *Handle) Vocabulary() map[string][]string { return h.categorical }

// Schema returns the ordered feature columns the model expects.
func (h *Handle) Schema() []string { return h.schema }

// PredictProba scores one encoded feature vector and returns the class
// probabilities (p0 below limit, p1 above limit). The pair sums to 1.
func (h *Handle) PredictProba(vec []float64) (p0, p1 float64, err error) {
	if len(vec) != len(h.schema) {
		return 0, 0, fmt.Errorf("feature vector has %d values, model expects %d", len(vec), len(h.schema))
	}

	switch h.algorithm {
	case algRandomForest:
		return h.forestProba(vec)
	case algGradientBoosting:
		return h.boostedProba(vec)
	default:
		return 0, 0, fmt.Errorf("unsupported algorithm %q", h.algorithm)
	}
}

func (h *Handle) forestProba(vec []float64) (float64, float64, error) {
	var sum0, sum1 float64
	for i, tree := range h.trees {
		leaf, err := traverse(tree, vec)
		if err != nil {
			return 0, 0, fmt.Errorf("tree %d: %w", i, err)
		}
		if len(leaf.Value) != 2 {
			return 0, 0, fmt.Errorf("tree %d: leaf carries %d class values, want 2", i, len(leaf.Value))
		}
		total := leaf.Value[0] + leaf.Value[1]
		if total <= 0 {
			return 0, 0, fmt.Errorf("tree %d: empty leaf distribution", i)
		}
		sum0 += leaf.Value[0] / total
		sum1 += leaf.Value[1] / total
	}

	n := float64(len(h.trees))
	return sum0 / n, sum1 / n, nil
}

func (h *Handle) boostedProba(vec []float64) (float64, float64, error) {
	score := h.baseScore
	for i, tree := range h.trees {
		leaf, err := traverse(tree, vec)
		if err != nil {
			return 0, 0, fmt.Errorf("tree %d: %w", i, err)
		}
		if len(leaf.Value) == 0 {
			return 0, 0, fmt.Errorf("tree %d: leaf carries no score", i)
		}
		score += h.learningRate * leaf.Value[0]
	}

	p1 := sigmoid(score)
	return 1 - p1, p1, nil
}

// traverse walks a flat tree from the root to a leaf. Split convention:
// values <= threshold go left, which also routes the -1 missing marker left.
func traverse(nodes []TreeNode, vec []float64) (TreeNode, error) {
	if len(nodes) == 0 {
		return TreeNode{}, fmt.Errorf("tree has no nodes")
	}

	idx := 0
	for steps := 0; steps <= len(nodes); steps++ {
		node := nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(vec) {
			return TreeNode{}, fmt.Errorf("feature index %d out of range", node.FeatureIdx)
		}
		if vec[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(nodes) {
			return TreeNode{}, fmt.Errorf("child index %d out of range", idx)
		}
	}
	return TreeNode{}, fmt.Errorf("tree traversal did not reach a leaf")
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
