package metrics

import "time"

// IndexingMetrics instruments a location's walk/process/identify/aggregate run.
// Pass nil to disable collection with zero overhead.
type IndexingMetrics interface {
	RecordEntriesIndexed(locationUUID string, count int)
	RecordWalkDuration(locationUUID string, duration time.Duration)
	RecordIndexingFailed(locationUUID string)
}

var newPrometheusIndexingMetrics func() IndexingMetrics

// RegisterIndexingMetricsConstructor is called by pkg/metrics/prometheus
// to install its concrete constructor.
func RegisterIndexingMetricsConstructor(constructor func() IndexingMetrics) {
	newPrometheusIndexingMetrics = constructor
}

// NewIndexingMetrics returns a Prometheus-backed IndexingMetrics, or nil
// if InitRegistry has not been called.
func NewIndexingMetrics() IndexingMetrics {
	if !IsEnabled() || newPrometheusIndexingMetrics == nil {
		return nil
	}
	return newPrometheusIndexingMetrics()
}
