package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Renders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hillshade_renders_total",
		Help: "Total number of hillshade renders by outcome",
	}, []string{"outcome"})

	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hillshade_render_duration_seconds",
		Help:    "Duration of hillshade renders in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"zoom"})

	SourceReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hillshade_source_reads_total",
		Help: "Total number of elevation source reads by outcome",
	}, []string{"outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hillshade_cache_lookups_total",
		Help: "Total number of tile cache lookups by kind and status",
	}, []string{"kind", "status"})

	CachePuts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hillshade_cache_puts_total",
		Help: "Total number of tile cache puts by kind and outcome",
	}, []string{"kind", "outcome"})

	// Cache backend latency
	CacheOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hillshade_cache_operation_duration_seconds",
		Help:    "Duration of cache backend operations in seconds",
		Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
	}, []string{"backend", "operation"})

	RedisPoolStats = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hillshade_redis_pool_stats",
		Help: "Redis connection pool statistics",
	}, []string{"stat"})

	ReportedErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hillshade_reported_errors_total",
		Help: "Total number of errors sent to the error reporter",
	})

	SeededTiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hillshade_seeded_tiles_total",
		Help: "Total number of tiles processed by the seeder by outcome",
	}, []string{"outcome"})
)
