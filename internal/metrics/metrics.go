// Package metrics provides Prometheus metrics for token acquisition and
// open API calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/florianilch/larkbridge/internal/tenanttoken"
)

const namespace = "larkbridge"

// Result labels for metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics owns a private registry so several instances (e.g. in tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	tokenCacheHits     prometheus.Counter
	tokenFetches       *prometheus.CounterVec
	tokenFetchDuration prometheus.Histogram
	apiRequests        *prometheus.CounterVec
}

// Compile-time check to ensure Metrics implements tenanttoken.Recorder
var _ tenanttoken.Recorder = (*Metrics)(nil)

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		tokenCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "cache_hits_total",
			Help:      "Token requests served from the cache without a remote fetch",
		}),
		tokenFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "fetches_total",
			Help:      "Remote tenant access token fetches by outcome",
		}, []string{"outcome"}),
		tokenFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of remote tenant access token fetches",
			Buckets:   prometheus.DefBuckets,
		}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Open API calls by operation and result",
		}, []string{"operation", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tokenCacheHits,
		m.tokenFetches,
		m.tokenFetchDuration,
		m.apiRequests,
	)

	return m
}

// CacheHit implements tenanttoken.Recorder.
func (m *Metrics) CacheHit() {
	m.tokenCacheHits.Inc()
}

// Fetch implements tenanttoken.Recorder.
func (m *Metrics) Fetch(outcome string, elapsed time.Duration) {
	m.tokenFetches.WithLabelValues(outcome).Inc()
	m.tokenFetchDuration.Observe(elapsed.Seconds())
}

// APIRequest counts one open API call.
func (m *Metrics) APIRequest(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.apiRequests.WithLabelValues(operation, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
