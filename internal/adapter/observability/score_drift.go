package observability

import (
	"log/slog"
	"sync"
)

// ScoreDriftMonitor watches a sliding window of overall evaluation scores per
// model and reports when the window average moves away from the baseline. The
// baseline is the first full window observed after start, so a model or prompt
// change that shifts scoring shows up without manual calibration.
type ScoreDriftMonitor struct {
	mu             sync.Mutex
	windowSize     int
	driftThreshold float64
	baselines      map[string]float64
	windows        map[string][]float64
}

// NewScoreDriftMonitor creates a monitor with the given window size and
// absolute drift threshold.
func NewScoreDriftMonitor(windowSize int, driftThreshold float64) *ScoreDriftMonitor {
	if windowSize <= 0 {
		windowSize = 10
	}
	return &ScoreDriftMonitor{
		windowSize:     windowSize,
		driftThreshold: driftThreshold,
		baselines:      make(map[string]float64),
		windows:        make(map[string][]float64),
	}
}

// Record adds a score for the model and returns the current absolute drift.
func (m *ScoreDriftMonitor) Record(model string, score float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := append(m.windows[model], score)
	if len(w) > m.windowSize {
		w = w[1:]
	}
	m.windows[model] = w
	if len(w) < m.windowSize {
		return 0
	}

	avg := 0.0
	for _, s := range w {
		avg += s
	}
	avg /= float64(len(w))

	base, ok := m.baselines[model]
	if !ok {
		m.baselines[model] = avg
		return 0
	}

	drift := avg - base
	if drift < 0 {
		drift = -drift
	}
	ScoreDriftGauge.WithLabelValues(model).Set(drift)
	if drift > m.driftThreshold {
		slog.Warn("evaluation score drift detected",
			slog.String("model", model),
			slog.Float64("baseline", base),
			slog.Float64("recent_avg", avg),
			slog.Float64("drift", drift))
	}
	return drift
}

// Baseline returns the recorded baseline for a model, if any.
func (m *ScoreDriftMonitor) Baseline(model string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.baselines[model]
	return b, ok
}

// Reset clears all windows and baselines.
func (m *ScoreDriftMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines = make(map[string]float64)
	m.windows = make(map[string][]float64)
}

var defaultDriftMonitor = NewScoreDriftMonitor(10, 0.75)

// RecordEvaluationScoreDrift feeds the shared drift monitor.
func RecordEvaluationScoreDrift(model string, score float64) {
	defaultDriftMonitor.Record(model, score)
}
