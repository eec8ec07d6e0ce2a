// Package observability holds the Prometheus metrics for the analysis pipeline.
//
// Metrics are exposed on /metrics. All operations are safe for concurrent use.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "mindwell"

// Outcome labels
const (
	OutcomeSuccess     = "success"
	OutcomeFallback    = "fallback"
	OutcomeSchemaError = "schema_error"
	OutcomeInvalidJSON = "invalid_json"
	OutcomeStoreError  = "store_error"
)

// Metrics holds the pipeline counters and histograms
type Metrics struct {
	// AnalysisRequests counts pipeline runs.
	// Labels: source (voice, quiz, text), outcome (success, a failure kind, schema_error, ...)
	AnalysisRequests *prometheus.CounterVec

	// TransportDuration measures one transport attempt.
	// Labels: transport (cli, cloud, direct, fake), outcome (success or failure kind)
	TransportDuration *prometheus.HistogramVec

	// Fallbacks counts requests answered by a fallback path.
	// Labels: reason (transport failure kind, quiz_bank, ...)
	Fallbacks *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the metrics on reg. A nil reg uses a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		AnalysisRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "analysis_requests_total",
				Help:      "Mood analysis pipeline runs by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		TransportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "transport_duration_seconds",
				Help:      "Duration of one transport attempt.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"transport", "outcome"},
		),
		Fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fallbacks_total",
				Help:      "Requests served by a fallback path.",
			},
			[]string{"reason"},
		),
		gatherer: reg,
	}
}

// ObserveTransport records one transport attempt
func (m *Metrics) ObserveTransport(transport, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TransportDuration.WithLabelValues(transport, outcome).Observe(elapsed.Seconds())
}

// CountAnalysis records the final outcome of a pipeline run
func (m *Metrics) CountAnalysis(source, outcome string) {
	if m == nil {
		return
	}
	m.AnalysisRequests.WithLabelValues(source, outcome).Inc()
}

// CountFallback records a fallback
func (m *Metrics) CountFallback(reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
