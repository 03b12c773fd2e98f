// Package metrics defines the Prometheus metric collectors used by the
// verifier and analytics services and exposes an HTTP handler for scraping.
//
// Recording methods are safe to call on a nil *Metrics, which lets library
// code and tests run without a registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup tiers, in the order a query consults them.
const (
	TierPresentCache   = "present_cache"
	TierAbsentCache    = "absent_cache"
	TierFilterPositive = "filter_positive"
	TierFilterNegative = "filter_negative"
	TierAuthoritative  = "authoritative"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	ConnectionsInFlight    prometheus.Gauge
	LookupsTotal           *prometheus.CounterVec
	CacheEvictionsTotal    *prometheus.CounterVec
	DictionaryLoadDuration prometheus.Histogram
	DictionariesLoaded     prometheus.Gauge
	FilterFillRatio        *prometheus.GaugeVec
	EventsDroppedTotal     prometheus.Counter
	EventsProcessedTotal   *prometheus.CounterVec
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInFlight   prometheus.Gauge
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verifier_requests_total",
				Help: "Protocol requests by action (Q, C) and result (true, false, error, dropped).",
			},
			[]string{"action", "result"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verifier_request_duration_seconds",
				Help:    "Time from request line read to response written.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"action"},
		),
		ConnectionsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "verifier_connections_in_flight",
				Help: "Client connections currently being handled.",
			},
		),
		LookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verifier_lookups_total",
				Help: "Per-dictionary lookups by the tier that resolved them.",
			},
			[]string{"tier"},
		),
		CacheEvictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verifier_cache_evictions_total",
				Help: "Result cache evictions by cache (present, absent).",
			},
			[]string{"cache"},
		),
		DictionaryLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "verifier_dictionary_load_duration_seconds",
				Help:    "Time to scan a word list and populate its membership filter.",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		DictionariesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "verifier_dictionaries_loaded",
				Help: "Number of materialized dictionaries.",
			},
		),
		FilterFillRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "verifier_filter_fill_ratio",
				Help: "Share of membership filter bits set, per dictionary.",
			},
			[]string{"dictionary"},
		),
		EventsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "verifier_events_dropped_total",
				Help: "Verification events dropped because the collector buffer was full.",
			},
		),
		EventsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_events_processed_total",
				Help: "Verification events consumed by the analytics service, by status.",
			},
			[]string{"status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ConnectionsInFlight,
		m.LookupsTotal,
		m.CacheEvictionsTotal,
		m.DictionaryLoadDuration,
		m.DictionariesLoaded,
		m.FilterFillRatio,
		m.EventsDroppedTotal,
		m.EventsProcessedTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
	)

	return m
}

// ObserveRequest records one protocol request.
func (m *Metrics) ObserveRequest(action, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(action, result).Inc()
	m.RequestDuration.WithLabelValues(action).Observe(d.Seconds())
}

// ObserveLookup records which tier resolved a per-dictionary lookup.
func (m *Metrics) ObserveLookup(tier string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(tier).Inc()
}

// ObserveEviction records a result cache eviction.
func (m *Metrics) ObserveEviction(cache string) {
	if m == nil {
		return
	}
	m.CacheEvictionsTotal.WithLabelValues(cache).Inc()
}

// ObserveDictionaryLoad records a completed dictionary construction.
func (m *Metrics) ObserveDictionaryLoad(name string, d time.Duration, fill float64) {
	if m == nil {
		return
	}
	m.DictionaryLoadDuration.Observe(d.Seconds())
	m.DictionariesLoaded.Inc()
	m.FilterFillRatio.WithLabelValues(name).Set(fill)
}

// ConnOpened and ConnClosed track in-flight connections.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.ConnectionsInFlight.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.ConnectionsInFlight.Dec()
}

// EventDropped counts a verification event lost to a full buffer.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.EventsDroppedTotal.Inc()
}

// EventProcessed counts a consumed analytics event by status.
func (m *Metrics) EventProcessed(status string) {
	if m == nil {
		return
	}
	m.EventsProcessedTotal.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
