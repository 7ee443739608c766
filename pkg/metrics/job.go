package metrics

import "time"

// JobMetrics instruments the job scheduler: lifecycle counts and run
// duration. Pass nil to disable collection with zero overhead.
type JobMetrics interface {
	RecordJobQueued(name string)
	RecordJobStarted(name string)
	RecordJobCompleted(name string, duration time.Duration)
	RecordJobFailed(name string, duration time.Duration)
	RecordJobCancelled(name string)
	SetActiveJobs(count int)
}

var newPrometheusJobMetrics func() JobMetrics

// RegisterJobMetricsConstructor is called by pkg/metrics/prometheus to
// install its concrete constructor.
func RegisterJobMetricsConstructor(constructor func() JobMetrics) {
	newPrometheusJobMetrics = constructor
}

// NewJobMetrics returns a Prometheus-backed JobMetrics, or nil if
// InitRegistry has not been called.
func NewJobMetrics() JobMetrics {
	if !IsEnabled() || newPrometheusJobMetrics == nil {
		return nil
	}
	return newPrometheusJobMetrics()
}
