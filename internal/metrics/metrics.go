// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics records gate cycles and backend calls in a Prometheus
// registry. A CLI run is short-lived, so the registry is written to a
// node-exporter textfile on exit instead of being scraped.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the gate and backend metric hooks.
type Recorder struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	outcomes        *prometheus.CounterVec
	orders          prometheus.Counter
	pollAttempts    prometheus.Histogram
	predictions     *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	settingsRefresh *prometheus.CounterVec
}

// New creates a Recorder with its own registry, so tests and multiple
// sessions never collide on the global one.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_cycles_started_total",
			Help: "Payment gate cycles started, by strategy.",
		}, []string{"strategy"}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_cycle_outcomes_total",
			Help: "Resolved payment gate cycles, by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		orders: f.NewCounter(prometheus.CounterOpts{
			Name: "gate_orders_created_total",
			Help: "Remote payment orders created.",
		}),
		pollAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gate_poll_attempts",
			Help:    "Status checks made before a poll cycle resolved.",
			Buckets: []float64{1, 2, 5, 10, 20, 30},
		}),
		predictions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gate_predictions_total",
			Help: "Prediction calls, by result.",
		}, []string{"result"}),
		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Latency of backend calls, by endpoint and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "code"}),
		settingsRefresh: f.NewCounterVec(prometheus.CounterOpts{
			Name: "settings_refresh_total",
			Help: "Settings and data-status refreshes, by kind and result.",
		}, []string{"kind", "result"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// CycleStarted counts a new gate cycle.
func (r *Recorder) CycleStarted(strategy string) {
	r.cycles.WithLabelValues(strategy).Inc()
}

// CycleResolved counts a payment outcome (succeeded, failed, timed_out).
func (r *Recorder) CycleResolved(strategy, outcome string) {
	r.outcomes.WithLabelValues(strategy, outcome).Inc()
}

// OrderCreated counts a remote order.
func (r *Recorder) OrderCreated() { r.orders.Inc() }

// PollAttempts records how many status checks a poll cycle needed.
func (r *Recorder) PollAttempts(n int) { r.pollAttempts.Observe(float64(n)) }

// PredictionResolved counts a prediction call.
func (r *Recorder) PredictionResolved(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	r.predictions.WithLabelValues(result).Inc()
}

// ObserveRequest records one backend call. code is 0 when no response
// arrived.
func (r *Recorder) ObserveRequest(endpoint string, code int, d time.Duration) {
	r.requestLatency.WithLabelValues(endpoint, strconv.Itoa(code)).Observe(d.Seconds())
}

// RefreshDone counts a settings provider refresh.
func (r *Recorder) RefreshDone(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.settingsRefresh.WithLabelValues(kind, result).Inc()
}

// WriteTextfile writes the registry in text exposition format to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
