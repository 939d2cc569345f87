package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/features"
)

// WriteSampleArtifacts writes a full artifact set (both classifiers and the
// encoder) into dir, built so every prediction scores pAbove for the
// above-limit class. Used by tests in this and dependent packages.
func WriteSampleArtifacts(dir string, pAbove float64) error {
	forest := artifact{
		ModelID:     RandomForestEnsemble,
		Algorithm:   algRandomForest,
		Schema:      features.Schema,
		Categorical: sampleVocabulary(),
		Trees: [][]TreeNode{
			{{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true, Value: []float64{1 - pAbove, pAbove}}},
		},
	}

	// A single-leaf booster whose raw score maps back to pAbove.
	score := math.Log(pAbove / (1 - pAbove))
	boosted := artifact{
		ModelID:      GradientBoostedTrees,
		Algorithm:    algGradientBoosting,
		Schema:       features.Schema,
		Categorical:  sampleVocabulary(),
		LearningRate: 1,
		Trees: [][]TreeNode{
			{{FeatureIdx: -1, LeftChild: -1, RightChild: -1, IsLeaf: true, Value: []float64{score}}},
		},
	}

	for _, a := range []artifact{forest, boosted} {
		if err := writeArtifactFile(dir, a.ModelID, a); err != nil {
			return err
		}
	}

	enc := encoderArtifactFile{Classes: []string{LabelBelowLimit, LabelAboveLimit}}
	return writeArtifactFile(dir, encoderArtifact, enc)
}

func writeArtifactFile(dir, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return os.WriteFile(filepath.Join(dir, name+".json"), data, 0o600)
}

func sampleVocabulary() map[string][]string {
	vocab := make(map[string][]string)
	for _, col := range features.Schema {
		if !features.IsNumeric(col) {
			vocab[col] = []string{}
		}
	}
	vocab["gender"] = []string{"Female", "Male"}
	vocab["is_hispanic"] = []string{"All other", "Mexican-American"}
	return vocab
}
