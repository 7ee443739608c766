package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spacecore/spacecore/pkg/metrics"
)

func init() {
	metrics.RegisterIndexingMetricsConstructor(newIndexingMetrics)
}

type indexingMetrics struct {
	entriesIndexed *prometheus.CounterVec
	walkDuration   *prometheus.HistogramVec
	failures       *prometheus.CounterVec
}

func newIndexingMetrics() metrics.IndexingMetrics {
	reg := metrics.GetRegistry()
	return &indexingMetrics{
		entriesIndexed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_indexer_entries_indexed_total",
			Help: "Total number of filesystem entries indexed, by location.",
		}, []string{"location"}),
		walkDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spacecore_indexer_walk_duration_seconds",
			Help:    "Duration of a location's walk/process/identify/aggregate run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"location"}),
		failures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_indexer_failures_total",
			Help: "Total number of indexing runs that ended in failure, by location.",
		}, []string{"location"}),
	}
}

func (m *indexingMetrics) RecordEntriesIndexed(locationUUID string, count int) {
	m.entriesIndexed.WithLabelValues(locationUUID).Add(float64(count))
}

func (m *indexingMetrics) RecordWalkDuration(locationUUID string, duration time.Duration) {
	m.walkDuration.WithLabelValues(locationUUID).Observe(duration.Seconds())
}

func (m *indexingMetrics) RecordIndexingFailed(locationUUID string) {
	m.failures.WithLabelValues(locationUUID).Inc()
}
