package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)
	// FallbacksTotal counts operations that served their deterministic
	// fallback instead of a model result.
	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallbacks_total",
			Help: "Total number of operations resolved by a fallback path",
		},
		[]string{"operation"},
	)
	BudgetDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_budget_denied_total",
			Help: "Total number of model calls skipped because the per-user budget was exhausted",
		},
		[]string{"operation"},
	)

	InterviewsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interviews_completed_total",
			Help: "Total number of interviews driven to completion",
		},
	)

	// Evaluation outcome distributions
	EvaluationScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_overall_score",
			Help:    "Distribution of per-answer overall scores ([0,5])",
			Buckets: []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5},
		},
	)
	HireabilityHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_hireability",
			Help:    "Distribution of report hireability ([0,100])",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	ScoreDriftGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evaluation_score_drift",
			Help: "Absolute drift of recent average overall score from baseline, per model",
		},
		[]string{"model"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(FallbacksTotal)
	prometheus.MustRegister(BudgetDeniedTotal)
	prometheus.MustRegister(InterviewsCompletedTotal)
	prometheus.MustRegister(EvaluationScoreHistogram)
	prometheus.MustRegister(HireabilityHistogram)
	prometheus.MustRegister(ScoreDriftGauge)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			// fallback when route pattern is unavailable
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveAIRequest records one model round-trip.
func ObserveAIRequest(operation, outcome string, dur time.Duration) {
	AIRequestsTotal.WithLabelValues(operation, outcome).Inc()
	AIRequestDuration.WithLabelValues(operation).Observe(dur.Seconds())
}

// RecordFallback marks an operation as resolved by its fallback path.
func RecordFallback(operation string) {
	FallbacksTotal.WithLabelValues(operation).Inc()
}

// RecordBudgetDenied marks a model call skipped by the per-user budget.
func RecordBudgetDenied(operation string) {
	BudgetDeniedTotal.WithLabelValues(operation).Inc()
}

// ObserveEvaluationScore records a model-produced overall score and feeds the
// drift monitor for the given model.
func ObserveEvaluationScore(model string, score float64) {
	if score >= 0 && score <= 5 {
		EvaluationScoreHistogram.Observe(score)
		RecordEvaluationScoreDrift(model, score)
	}
}

// ObserveHireability records a report's hireability value.
func ObserveHireability(v int) {
	if v >= 0 && v <= 100 {
		HireabilityHistogram.Observe(float64(v))
	}
}
