package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "The total number of cache reads served from a live entry",
		},
		[]string{"cache"},
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "The total number of cache reads that found no live entry",
		},
		[]string{"cache"},
	)

	cacheEvictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "The total number of entries removed by expiry or invalidation",
		},
		[]string{"cache"},
	)

	cachePruned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_pruned_entries_total",
			Help: "The total number of expired entries removed by prune sweeps",
		},
		[]string{"cache"},
	)

	storageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_storage_errors_total",
			Help: "The total number of swallowed durable-tier failures",
		},
		[]string{"cache", "op"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
	prometheus.MustRegister(cacheEvictions)
	prometheus.MustRegister(cachePruned)
	prometheus.MustRegister(storageErrors)
}
