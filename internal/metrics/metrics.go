// Package metrics collects and exposes Prometheus metrics for the HTTP
// surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records request-level metrics.
type Collector struct {
	requests *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics on reg.
// Using an explicit registry (not the package default) keeps tests
// independent and avoids double-registration panics.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checklist_http_requests_total",
				Help: "HTTP requests by method, route pattern, and status code.",
			},
			[]string{"method", "route", "status"},
		),
		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "checklist_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(c.requests, c.latency)

	return c
}

// RecordRequest records one completed request.
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.Observe(duration.Seconds())
}

// Handler returns the /metrics endpoint for the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
