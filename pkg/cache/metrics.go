package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks response cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notion_cache_hits_total",
			Help: "Total number of Notion response cache hits",
		},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notion_cache_misses_total",
			Help: "Total number of Notion response cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notion_cache_size_bytes",
			Help: "Bytes written to the Notion response cache",
		},
	)

	// CacheInvalidations tracks entries dropped after mutating requests
	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notion_cache_invalidations_total",
			Help: "Total cache entries invalidated by write operations",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notion_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "invalidate"
	)
)
