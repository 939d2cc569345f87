package metrics

// Tracker adapts Metrics to the narrow interface the prediction engine
// consumes, keeping the engine free of a Prometheus dependency.
type Tracker struct {
	m *Metrics
}

// NewTracker wraps m for use by the prediction engine.
func NewTracker(m *Metrics) *Tracker {
	return &Tracker{m: m}
}

func (t *Tracker) PredictionsInc() {
	t.m.Predictions.Inc()
}

func (t *Tracker) PredictionFailuresInc() {
	t.m.PredictionFailures.Inc()
}

func (t *Tracker) PredictionLatencyObserve(seconds float64) {
	t.m.PredictionLatency.Observe(seconds)
}
