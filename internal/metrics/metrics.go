package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	cacheLookups      *prometheus.CounterVec
	cacheEvictions    prometheus.Counter
	rateLimitDecision *prometheus.CounterVec
}

// New creates the service metrics, including Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_cache_lookups_total",
				Help: "Data cache lookups by key and result",
			},
			[]string{"key", "result"},
		),
		cacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "storefront_cache_evictions_total",
				Help: "Entries evicted from the data cache by invalidation events",
			},
		),
		rateLimitDecision: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_rate_limit_decisions_total",
				Help: "Rate limit decisions by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) CacheHit(key string) {
	m.cacheLookups.WithLabelValues(key, "hit").Inc()
}

func (m *Metrics) CacheMiss(key string) {
	m.cacheLookups.WithLabelValues(key, "miss").Inc()
}

// CacheEvicted records n entries removed by an invalidation.
func (m *Metrics) CacheEvicted(n int) {
	m.cacheEvictions.Add(float64(n))
}

func (m *Metrics) RateLimitDecision(allowed bool) {
	outcome := "rejected"
	if allowed {
		outcome = "allowed"
	}

	m.rateLimitDecision.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
