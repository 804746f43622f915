package gateway

import (
	"net/http"

	ctxengine "github.com/jmertens/ctxweave/internal/context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes gateway and engine counters on a dedicated Prometheus
// registry, so tests and embedders never collide with the global one.
type Metrics struct {
	registry  *prometheus.Registry
	assembles *prometheus.CounterVec
	tokens    prometheus.Histogram
}

// newMetrics builds the registry and registers the collectors. Engine
// counters are read lazily through Counter/GaugeFunc so they need no
// recording calls.
func newMetrics(assembler *ctxengine.Assembler) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		assembles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ctxweave_assemble_requests_total",
			Help: "Context assembly requests served by the gateway.",
		}, []string{"outcome"}),
		tokens: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ctxweave_assembled_tokens",
			Help:    "Token counts of assembled contexts.",
			Buckets: prometheus.ExponentialBuckets(256, 2, 12),
		}),
	}
	m.registry.MustRegister(m.assembles, m.tokens)

	if assembler != nil {
		cache := assembler.Cache()
		m.registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "ctxweave_prompt_cache_hits_total",
				Help: "Static prompt cache hits.",
			}, func() float64 { return float64(cache.Stats().Hits) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "ctxweave_prompt_cache_misses_total",
				Help: "Static prompt cache misses.",
			}, func() float64 { return float64(cache.Stats().Misses) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "ctxweave_prompt_cache_corruptions_total",
				Help: "Checksum failures detected in cached prompt material.",
			}, func() float64 { return float64(cache.Stats().Corruptions) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "ctxweave_prompt_cache_entries",
				Help: "Live entries in the static prompt cache.",
			}, func() float64 { return float64(cache.Stats().Entries) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "ctxweave_history_truncations_total",
				Help: "Assemblies where history needed hard truncation.",
			}, func() float64 { return float64(assembler.Stats().Truncations) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "ctxweave_summarizer_fallbacks_total",
				Help: "Compressions that fell back to truncation.",
			}, func() float64 { return float64(assembler.Compressor().Fallbacks()) }),
		)
	}

	return m
}

// recordAssemble counts one assembly request by outcome.
func (m *Metrics) recordAssemble(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.assembles.WithLabelValues(outcome).Inc()
}

// observeTokens records the token count of a successful assembly.
func (m *Metrics) observeTokens(n int) {
	m.tokens.Observe(float64(n))
}

// handler serves the registry in Prometheus exposition format.
func (m *Metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
