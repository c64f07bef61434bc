// Package metrics exposes cache activity as Prometheus metrics.
//
// The Exporter is event driven: it subscribes to a cache's set, get, eviction,
// cleanup and clear events and keeps counters in step, while size, memory and
// rolling hit rate are read from the cache at scrape time.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rshade/cmdcache/internal/engine/cache"
)

const namespace = "cmdcache"

// Operation label values.
const (
	OpSet     = "set"
	OpHit     = "hit"
	OpMiss    = "miss"
	OpCleanup = "cleanup"
	OpClear   = "clear"
)

// Exporter mirrors one cache into a Prometheus registry.
type Exporter struct {
	operations *prometheus.CounterVec
	evictions  *prometheus.CounterVec
	cleared    prometheus.Counter

	registerer  prometheus.Registerer
	collectors  []prometheus.Collector
	unsubscribe []func()
}

// NewExporter registers the cache metrics on reg and subscribes to c's events.
func NewExporter(c *cache.Cache, reg prometheus.Registerer) (*Exporter, error) {
	e := &Exporter{
		registerer: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Cache operations by type.",
		}, []string{"op"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Entries removed from the cache by reason.",
		}, []string{"reason"}),
		cleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleared_keys_total",
			Help:      "Entries dropped by Clear.",
		}),
	}

	e.collectors = []prometheus.Collector{
		e.operations,
		e.evictions,
		e.cleared,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Entries currently held.",
		}, func() float64 { return float64(c.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_bytes",
			Help:      "Estimated memory held by entries.",
		}, func() float64 { return float64(c.MemoryUsage().Bytes) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_hit_rate_percent",
			Help:      "Hit rate over the rolling operation window.",
		}, func() float64 { return c.RollingWindowStats().HitRate }),
	}

	for i, col := range e.collectors {
		if err := reg.Register(col); err != nil {
			for _, done := range e.collectors[:i] {
				reg.Unregister(done)
			}
			return nil, fmt.Errorf("registering cache metrics: %w", err)
		}
	}

	// Pre-create label values so every series is exported from the first scrape.
	for _, op := range []string{OpSet, OpHit, OpMiss, OpCleanup, OpClear} {
		e.operations.WithLabelValues(op)
	}
	for _, reason := range []cache.EvictionReason{cache.EvictionTTL, cache.EvictionLRU, cache.EvictionManual} {
		e.evictions.WithLabelValues(string(reason))
	}

	e.unsubscribe = []func(){
		c.OnSet(func(cache.SetEvent) { e.operations.WithLabelValues(OpSet).Inc() }),
		c.OnGet(func(ev cache.GetEvent) {
			if ev.Hit {
				e.operations.WithLabelValues(OpHit).Inc()
				return
			}
			e.operations.WithLabelValues(OpMiss).Inc()
		}),
		c.OnEviction(func(ev cache.EvictionEvent) { e.evictions.WithLabelValues(string(ev.Reason)).Inc() }),
		c.OnCleanup(func(cache.CleanupEvent) { e.operations.WithLabelValues(OpCleanup).Inc() }),
		c.OnClear(func(ev cache.ClearEvent) {
			e.operations.WithLabelValues(OpClear).Inc()
			e.cleared.Add(float64(ev.KeysCleared))
		}),
	}

	return e, nil
}

// Close unsubscribes from the cache and unregisters every collector.
// It is safe to call more than once.
func (e *Exporter) Close() {
	for _, unsub := range e.unsubscribe {
		unsub()
	}
	e.unsubscribe = nil
	for _, col := range e.collectors {
		e.registerer.Unregister(col)
	}
	e.collectors = nil
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
