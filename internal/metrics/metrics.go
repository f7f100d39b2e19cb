// Package metrics exposes Prometheus metrics for the API, upstream calls and
// credibility scoring.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trustscan"

// Metrics holds all service metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec

	ReviewsScored    *prometheus.CounterVec
	ScoringFailures  *prometheus.CounterVec
	ScoringDuration  prometheus.Histogram
	CredibilityScore prometheus.Histogram

	CacheLookups *prometheus.CounterVec
}

// New registers every metric on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to external APIs by api and outcome.",
		}, []string{"api", "outcome"}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "External API latency, retries included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"api"}),
		ReviewsScored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_scored_total",
			Help:      "Reviews scored by winning label.",
		}, []string{"label"}),
		ScoringFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_scoring_failures_total",
			Help:      "Review scoring failures by kind.",
		}, []string{"kind"}),
		ScoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "review_scoring_duration_seconds",
			Help:      "Latency of one review through the credibility pipeline.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		CredibilityScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "review_credibility_score",
			Help:      "Distribution of resolved credibility scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache name and result.",
		}, []string{"cache", "result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveUpstream records one external API call. A nil receiver is a no-op.
func (m *Metrics) ObserveUpstream(api, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(api, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(api).Observe(elapsed.Seconds())
}

// ObserveScore records a successful review score.
func (m *Metrics) ObserveScore(label string, score float64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ReviewsScored.WithLabelValues(label).Inc()
	m.CredibilityScore.Observe(score)
	m.ScoringDuration.Observe(elapsed.Seconds())
}

// ObserveScoringFailure records a failed review score.
func (m *Metrics) ObserveScoringFailure(kind string) {
	if m == nil {
		return
	}
	m.ScoringFailures.WithLabelValues(kind).Inc()
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(route, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
