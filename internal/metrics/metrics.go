// Package metrics owns the Prometheus collectors for the API.
//
// Collectors live on a private registry rather than the global default one, so
// tests can build as many independent Metrics values as they like and the
// /metrics endpoint only exposes what this service registered.
//
// Every method is safe on a nil *Metrics; callers with metrics disabled pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "snippets"

// Options control which collectors are registered.
type Options struct {
	// Namespace defaults to DefaultNamespace.
	Namespace string
	// DisableRuntimeCollectors skips the Go runtime and process collectors.
	DisableRuntimeCollectors bool
}

// Metrics is the set of collectors plus the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	snippetWrites *prometheus.CounterVec
	authAttempts  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New(opts Options) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		snippetWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snippet_writes_total",
				Help:      "Successful snippet writes by operation",
			},
			[]string{"operation"},
		),
		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_attempts_total",
				Help:      "Login attempts by method (password, github) and result",
			},
			[]string{"method", "result"},
		),
	}

	collectors := []prometheus.Collector{m.requests, m.latency, m.snippetWrites, m.authAttempts}
	if !opts.DisableRuntimeCollectors {
		collectors = append(collectors,
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Registry exposes the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one finished HTTP request. route is the router
// pattern (e.g. /snippets/{id}), never the raw path, to keep label
// cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if route == "" {
		route = "unmatched"
	}
	if d < 0 {
		d = 0
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// SnippetWritten counts a successful create, update or delete.
func (m *Metrics) SnippetWritten(op string) {
	if m == nil {
		return
	}
	m.snippetWrites.WithLabelValues(op).Inc()
}

// RecordAuthAttempt counts a login attempt. success selects the result label.
func (m *Metrics) RecordAuthAttempt(method string, success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.authAttempts.WithLabelValues(method, result).Inc()
}
