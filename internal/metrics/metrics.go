// Package metrics exposes Prometheus collectors for the request workflow and
// the HTTP surface. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

// Metrics holds the registered collectors.
type Metrics struct {
	operations *prometheus.CounterVec
	unitsOut   prometheus.Counter
	httpTime   *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil registerer yields a no-op Metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pisarna",
		Name:      "workflow_operations_total",
		Help:      "Workflow operations by name and outcome.",
	}, []string{"operation", "outcome"})
	unitsOut := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pisarna",
		Name:      "stock_units_issued_total",
		Help:      "Stock units debited by approved requests.",
	})
	httpTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pisarna",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})
	reg.MustRegister(operations, unitsOut, httpTime)
	return &Metrics{
		operations: operations,
		unitsOut:   unitsOut,
		httpTime:   httpTime,
	}
}

// Operation counts one workflow operation with the given outcome.
func (m *Metrics) Operation(name, outcome string) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.WithLabelValues(label(name), label(outcome)).Inc()
}

// UnitsIssued adds n to the issued stock counter.
func (m *Metrics) UnitsIssued(n int) {
	if m == nil || m.unitsOut == nil || n <= 0 {
		return
	}
	m.unitsOut.Add(float64(n))
}

// ObserveHTTP records the latency of one HTTP request.
func (m *Metrics) ObserveHTTP(method string, status int, d time.Duration) {
	if m == nil || m.httpTime == nil {
		return
	}
	m.httpTime.WithLabelValues(label(method), statusClass(status)).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func label(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
