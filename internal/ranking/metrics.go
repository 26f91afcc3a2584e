package ranking

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricRankedPostsTotal   = "feedrank_ranked_posts_total"
	MetricExcludedPostsTotal = "feedrank_excluded_posts_total"
	MetricScoreCacheHits     = "feedrank_score_cache_hits_total"
	MetricScoreCacheMisses   = "feedrank_score_cache_misses_total"
	MetricPenaltiesApplied   = "feedrank_penalties_applied_total"
	MetricBatchDuration      = "feedrank_batch_duration_seconds"
	MetricLastBatchSize      = "feedrank_last_batch_size"
)

// Metrics contains Prometheus metrics for batch ranking.
// All operations are thread-safe.
type Metrics struct {
	rankedPosts      prometheus.Counter
	excludedPosts    prometheus.Counter
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	penaltiesApplied *prometheus.CounterVec
	batchDuration    prometheus.Histogram
	lastBatchSize    prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rankedPosts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRankedPostsTotal,
			Help: "Total number of posts scored by the batch ranker",
		}),
		excludedPosts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricExcludedPostsTotal,
			Help: "Total number of posts excluded by muted keywords before scoring",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricScoreCacheHits,
			Help: "Total number of posts whose cached relevance score was reused",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricScoreCacheMisses,
			Help: "Total number of posts whose relevance score was computed fresh",
		}),
		penaltiesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPenaltiesApplied,
			Help: "Total number of penalty applications, by rule name",
		}, []string{"rule"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricBatchDuration,
			Help:    "Histogram of batch ranking duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		lastBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastBatchSize,
			Help: "Number of candidate posts in the most recent ranking call",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.rankedPosts,
		m.excludedPosts,
		m.cacheHits,
		m.cacheMisses,
		m.penaltiesApplied,
		m.batchDuration,
		m.lastBatchSize,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// observeBatch records the aggregate outcome of one ranking call.
// A nil Metrics receiver makes every observation a no-op so the ranker
// can run unmetered in tests.
func (m *Metrics) observeBatch(candidates, excluded, cacheHits, cacheMisses int, seconds float64) {
	if m == nil {
		return
	}
	m.rankedPosts.Add(float64(candidates - excluded))
	m.excludedPosts.Add(float64(excluded))
	m.cacheHits.Add(float64(cacheHits))
	m.cacheMisses.Add(float64(cacheMisses))
	m.batchDuration.Observe(seconds)
	m.lastBatchSize.Set(float64(candidates))
}

// observePenalty records that a penalty rule fired.
func (m *Metrics) observePenalty(rule string) {
	if m == nil {
		return
	}
	m.penaltiesApplied.WithLabelValues(rule).Inc()
}
