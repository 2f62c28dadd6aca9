// Package metrics holds the Prometheus collectors of the engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "annuaire"

// Upstream call outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeStatus    = "status_error"
	OutcomeDecode    = "decode_error"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	searchResults    prometheus.Histogram
	detailsMatched   prometheus.Counter
	lookupAttempts   prometheus.Counter
	lookupDropped    *prometheus.CounterVec
	upserts          *prometheus.CounterVec
}

// New registers the engine collectors plus the Go and process collectors on
// a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search_api",
			Name:      "requests_total",
			Help:      "Company registry search calls by client and outcome.",
		}, []string{"client", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search_api",
			Name:      "request_duration_seconds",
			Help:      "Company registry search latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"client"}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "search_results",
			Help:      "Companies per merged search page.",
			Buckets:   []float64{0, 1, 5, 10, 25},
		}),
		detailsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "merge",
			Name:      "details_matched_total",
			Help:      "Search results enriched with stored details.",
		}),
		lookupAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reverse_lookup",
			Name:      "attempts_total",
			Help:      "Single-company lookups issued by the annotated listing, retries included.",
		}),
		lookupDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reverse_lookup",
			Name:      "dropped_total",
			Help:      "Annotated companies left out of the listing, by reason.",
		}, []string{"reason"}),
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "details",
			Name:      "upserts_total",
			Help:      "Company details upserts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests,
		m.upstreamDuration,
		m.searchResults,
		m.detailsMatched,
		m.lookupAttempts,
		m.lookupDropped,
		m.upserts,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveUpstream(client, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(client, outcome).Inc()
	m.upstreamDuration.WithLabelValues(client).Observe(d.Seconds())
}

func (m *Metrics) ObserveSearch(results, matched int) {
	if m == nil {
		return
	}
	m.searchResults.Observe(float64(results))
	m.detailsMatched.Add(float64(matched))
}

func (m *Metrics) IncLookupAttempt() {
	if m == nil {
		return
	}
	m.lookupAttempts.Inc()
}

// IncLookupDropped counts a listing entry dropped for reason ("not_found" or "failed").
func (m *Metrics) IncLookupDropped(reason string) {
	if m == nil {
		return
	}
	m.lookupDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncUpsert(result string) {
	if m == nil {
		return
	}
	m.upserts.WithLabelValues(result).Inc()
}
