// Package predict runs inference: it scores a validated feature record with
// a loaded classifier, applies the fixed decision threshold and decodes the
// label. Persistence is the history store's job, invoked by the caller after
// a successful prediction.
package predict

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/features"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/model"
)

// Threshold is the fixed decision boundary on the above-limit probability.
// It is deliberately not configurable per model, even though the two models
// are calibrated differently.
const Threshold = 0.5

// Classifier is the part of a model handle the engine needs.
type Classifier interface {
	ID() string
	Vocabulary() map[string][]string
	PredictProba(vec []float64) (p0, p1 float64, err error)
}

// MetricsTracker receives prediction metrics. Implementations must tolerate
// concurrent calls; a nil tracker disables metrics.
type MetricsTracker interface {
	PredictionsInc()
	PredictionFailuresInc()
	PredictionLatencyObserve(seconds float64)
}

// Prediction is the immutable result of one inference.
type Prediction struct {
	Features         features.Record `json:"features"`
	ModelUsed        string          `json:"model_used"`
	ProbabilityBelow float64         `json:"probability_below"`
	ProbabilityAbove float64         `json:"probability_above"`
	Decision         int             `json:"decision"`
	Label            string          `json:"decision_label"`
	Probability      float64         `json:"probability"`
	PredictedAt      time.Time       `json:"predicted_at"`
}

// Engine scores feature records. It holds no model state of its own; the
// classifier and encoder are passed per call.
type Engine struct {
	tracker MetricsTracker
}

// NewEngine creates an engine reporting to tracker. A nil tracker is valid.
func NewEngine(tracker MetricsTracker) *Engine {
	return &Engine{tracker: tracker}
}

// Predict scores one record. The reported Probability is the percentage of
// the decided class: p0 when the decision is 0 and p1 when it is 1, rounded
// to two decimal places.
func (e *Engine) Predict(ctx context.Context, c Classifier, enc *model.LabelEncoder, rec features.Record) (Prediction, error) {
	start := time.Now()
	p, err := e.predict(c, enc, rec)
	if err != nil {
		e.failureInc()
		return Prediction{}, err
	}

	if e.tracker != nil {
		e.tracker.PredictionsInc()
		e.tracker.PredictionLatencyObserve(time.Since(start).Seconds())
	}
	return p, nil
}

// PredictBatch scores records in order. It fails on the first scoring error,
// since a schema problem in one row means the batch as a whole is suspect.
func (e *Engine) PredictBatch(ctx context.Context, c Classifier, enc *model.LabelEncoder, recs []features.Record) ([]Prediction, error) {
	out := make([]Prediction, 0, len(recs))
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := e.Predict(ctx, c, enc, rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (e *Engine) predict(c Classifier, enc *model.LabelEncoder, rec features.Record) (Prediction, error) {
	vec, err := rec.Vector(c.Vocabulary())
	if err != nil {
		return Prediction{}, fmt.Errorf("encode features: %w", err)
	}

	p0, p1, err := c.PredictProba(vec)
	if err != nil {
		return Prediction{}, fmt.Errorf("model %s: %w", c.ID(), err)
	}

	decision := 0
	if p1 >= Threshold {
		decision = 1
	}
	label, err := enc.Decode(decision)
	if err != nil {
		return Prediction{}, err
	}

	reported := p0
	if decision == 1 {
		reported = p1
	}

	return Prediction{
		Features:         rec,
		ModelUsed:        c.ID(),
		ProbabilityBelow: p0,
		ProbabilityAbove: p1,
		Decision:         decision,
		Label:            label,
		Probability:      roundPct(reported),
		PredictedAt:      time.Now(),
	}, nil
}

func (e *Engine) failureInc() {
	if e.tracker != nil {
		e.tracker.PredictionFailuresInc()
	}
}

// roundPct converts a probability to a percentage rounded to 2 decimals.
func roundPct(p float64) float64 {
	return math.Round(p*10000) / 100
}
