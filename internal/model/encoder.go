package model

import (
	"encoding/json"
	"fmt"
)

// Label strings produced by the shared encoder.
const (
	LabelBelowLimit = "Below limit"
	LabelAboveLimit = "Above limit"
)

// LabelEncoder is the fixed bidirectional mapping between the binary
// decision and its human-readable label. It is shared by both models.
type LabelEncoder struct {
	classes []string
}

type encoderArtifactFile struct {
	Classes []string `json:"classes"`
}

// NewLabelEncoder builds an encoder from an explicit class list. The registry
// normally loads the encoder from its artifact; this is for callers that
// already hold the classes, such as tests.
func NewLabelEncoder(classes ...string) (*LabelEncoder, error) {
	if len(classes) != 2 {
		return nil, fmt.Errorf("encoder needs exactly 2 classes, got %d", len(classes))
	}
	return &LabelEncoder{classes: classes}, nil
}

func parseEncoder(data []byte) (*LabelEncoder, error) {
	var f encoderArtifactFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("corrupt artifact: %w", err)
	}
	if len(f.Classes) != 2 {
		return nil, fmt.Errorf("encoder carries %d classes, want 2", len(f.Classes))
	}
	return &LabelEncoder{classes: f.Classes}, nil
}

// Decode maps a binary decision to its label.
func (e *LabelEncoder) Decode(class int) (string, error) {
	if class < 0 || class >= len(e.classes) {
		return "", fmt.Errorf("decision %d outside encoder range", class)
	}
	return e.classes[class], nil
}

// Encode maps a label back to its binary decision.
func (e *LabelEncoder) Encode(label string) (int, error) {
	for i, c := range e.classes {
		if c == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("label %q unknown to encoder", label)
}
