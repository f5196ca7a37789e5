// Package telemetry exposes service counters and latencies to Prometheus.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records service metrics on its own registry. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	reports         *prometheus.CounterVec
	warnings        *prometheus.CounterVec
	tradesRecorded  prometheus.Counter
	storeErrors     *prometheus.CounterVec
	notifyFailures  prometheus.Counter
	computeLatency  *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	revengeRisk     prometheus.Histogram
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		reports: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiltguard_reports_total",
				Help: "Behavioral reports computed, by trading status",
			},
			[]string{"status"},
		),
		warnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiltguard_warnings_total",
				Help: "Behavioral warnings issued, by type and severity",
			},
			[]string{"type", "severity"},
		),
		tradesRecorded: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tiltguard_trades_recorded_total",
				Help: "Trades written to the store",
			},
		),
		storeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiltguard_store_errors_total",
				Help: "Store failures, by operation",
			},
			[]string{"operation"},
		),
		notifyFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: "tiltguard_notification_failures_total",
				Help: "Risk alerts that could not be delivered",
			},
		),
		computeLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tiltguard_operation_duration_seconds",
				Help:    "Duration of service operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiltguard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tiltguard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route", "method", "class"},
		),
		revengeRisk: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tiltguard_revenge_risk",
				Help:    "Revenge risk scores of computed reports",
				Buckets: prometheus.LinearBuckets(0, 20, 6),
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordReport records a computed report's status and revenge risk.
func (r *Recorder) RecordReport(status string, revengeRisk int) {
	if r == nil {
		return
	}
	r.reports.WithLabelValues(status).Inc()
	r.revengeRisk.Observe(float64(revengeRisk))
}

// RecordWarning records an issued warning.
func (r *Recorder) RecordWarning(kind, severity string) {
	if r == nil {
		return
	}
	r.warnings.WithLabelValues(kind, severity).Inc()
}

// RecordTrade records a stored trade.
func (r *Recorder) RecordTrade() {
	if r == nil {
		return
	}
	r.tradesRecorded.Inc()
}

// RecordStoreError records a store failure.
func (r *Recorder) RecordStoreError(operation string) {
	if r == nil {
		return
	}
	r.storeErrors.WithLabelValues(operation).Inc()
}

// RecordNotifyFailure records an undelivered alert.
func (r *Recorder) RecordNotifyFailure() {
	if r == nil {
		return
	}
	r.notifyFailures.Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	if r == nil {
		return
	}
	r.computeLatency.WithLabelValues(op).Observe(seconds)
}

// RecordHTTP records a served request. Route should be the route template,
// not the raw path, to keep label cardinality low.
func (r *Recorder) RecordHTTP(route, method string, status int, seconds float64) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method, statusClass(status)).Observe(seconds)
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
