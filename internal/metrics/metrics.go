// Package metrics defines the Prometheus collectors for query dispatch,
// generation and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes recorded by the orchestrator.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
	StatusSkipped = "skipped"
)

// Metrics holds every collector on its own registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	PluginFetches       *prometheus.CounterVec
	PluginFetchDuration *prometheus.HistogramVec
	Queries             *prometheus.CounterVec
	QueryDuration       prometheus.Histogram
	Generations         *prometheus.CounterVec
	GenerationTokens    *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		PluginFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketmind_plugin_fetch_total",
				Help: "Plugin fetches by outcome",
			},
			[]string{"plugin", "status"}, // status: success|error|timeout|skipped
		),
		PluginFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketmind_plugin_fetch_seconds",
				Help:    "Plugin fetch latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"plugin"},
		),
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketmind_queries_total",
				Help: "Processed queries by outcome",
			},
			[]string{"outcome"}, // outcome: grounded|unavailable|generative|error kind
		),
		QueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "marketmind_query_seconds",
				Help:    "End-to-end query latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketmind_generation_total",
				Help: "Language-generation calls by model and outcome",
			},
			[]string{"model", "status"},
		),
		GenerationTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketmind_generation_tokens_total",
				Help: "Tokens consumed by language generation",
			},
			[]string{"model", "type"}, // type: input|output
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketmind_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "code"},
		),
	}

	m.Registry.MustRegister(
		m.PluginFetches,
		m.PluginFetchDuration,
		m.Queries,
		m.QueryDuration,
		m.Generations,
		m.GenerationTokens,
		m.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveFetch records one plugin fetch.
func (m *Metrics) ObserveFetch(plugin, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PluginFetches.WithLabelValues(plugin, status).Inc()
	if status != StatusSkipped {
		m.PluginFetchDuration.WithLabelValues(plugin).Observe(d.Seconds())
	}
}

// ObserveQuery records one processed query.
func (m *Metrics) ObserveQuery(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(outcome).Inc()
	m.QueryDuration.Observe(d.Seconds())
}

// ObserveGeneration records one language-generation call.
func (m *Metrics) ObserveGeneration(model string, err error, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.Generations.WithLabelValues(model, status).Inc()
	m.GenerationTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	m.GenerationTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
