package admin

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the admin API's Prometheus collectors.
type Metrics struct {
	registry           *prometheus.Registry
	requests           *prometheus.CounterVec
	latency            *prometheus.HistogramVec
	validationFailures *prometheus.CounterVec
}

// NewMetrics registers the admin collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "setfield_admin_requests_total",
			Help: "Admin API requests by route and status code",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "setfield_admin_request_duration_seconds",
			Help:    "Latency of admin API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "setfield_validation_failures_total",
			Help: "Rejected set values by model",
		}, []string{"model"}),
	}

	m.registry.MustRegister(m.requests)
	m.registry.MustRegister(m.latency)
	m.registry.MustRegister(m.validationFailures)
	m.registry.MustRegister(prometheus.NewGoCollector())
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
