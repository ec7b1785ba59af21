package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	slaTickets      *prometheus.GaugeVec
	policyCache     *prometheus.CounterVec
	suggestions     *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of error responses by error code",
		}, []string{"method", "route", "code"}),
		slaTickets: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sla_tickets",
			Help:      "Tickets per SLA classification at the last dashboard build",
		}, []string{"classification"}),
		policyCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_policy_cache_total",
			Help:      "Active policy cache lookups by result",
		}, []string{"result"}),
		suggestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Suggestion generation attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

// SetClassificationCounts publishes the latest breached/approaching counts.
func (m *Metrics) SetClassificationCounts(counts map[string]int) {
	if m == nil {
		return
	}
	for classification, n := range counts {
		m.slaTickets.WithLabelValues(classification).Set(float64(n))
	}
}

// RecordPolicyCache counts a cache lookup result (hit, miss, error).
func (m *Metrics) RecordPolicyCache(result string) {
	if m == nil {
		return
	}
	m.policyCache.WithLabelValues(result).Inc()
}

// RecordSuggestion counts a generation attempt.
func (m *Metrics) RecordSuggestion(kind, outcome string) {
	if m == nil {
		return
	}
	m.suggestions.WithLabelValues(kind, outcome).Inc()
}
