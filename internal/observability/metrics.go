package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convo_eval_evaluations_total",
			Help: "Metric computations by metric name and outcome",
		},
		[]string{"metric", "outcome"},
	)

	evaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convo_eval_evaluation_duration_seconds",
			Help:    "Time spent computing one metric",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"metric"},
	)

	activeStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "convo_eval_active_streams",
			Help: "Open streaming connections by type",
		},
		[]string{"type"},
	)
)

// RecordEvaluation counts one metric computation and its latency.
func RecordEvaluation(metric string, elapsed time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	evaluationsTotal.WithLabelValues(metric, outcome).Inc()
	evaluationDuration.WithLabelValues(metric).Observe(elapsed.Seconds())
}

// TrackStream bumps the open stream gauge and returns the matching release.
func TrackStream(kind string) func() {
	g := activeStreams.WithLabelValues(kind)
	g.Inc()
	return g.Dec
}

// MetricsHandler exposes the Prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
