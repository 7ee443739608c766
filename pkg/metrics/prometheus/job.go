package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spacecore/spacecore/pkg/metrics"
)

func init() {
	metrics.RegisterJobMetricsConstructor(newJobMetrics)
}

type jobMetrics struct {
	queued    *prometheus.CounterVec
	started   *prometheus.CounterVec
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	cancelled *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	active    prometheus.Gauge
}

func newJobMetrics() metrics.JobMetrics {
	reg := metrics.GetRegistry()
	return &jobMetrics{
		queued: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_job_queued_total",
			Help: "Total number of jobs queued, by job name.",
		}, []string{"name"}),
		started: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_job_started_total",
			Help: "Total number of jobs started, by job name.",
		}, []string{"name"}),
		completed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_job_completed_total",
			Help: "Total number of jobs completed successfully, by job name.",
		}, []string{"name"}),
		failed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_job_failed_total",
			Help: "Total number of jobs that failed, by job name.",
		}, []string{"name"}),
		cancelled: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_job_cancelled_total",
			Help: "Total number of jobs cancelled, by job name.",
		}, []string{"name"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spacecore_job_duration_seconds",
			Help:    "Job run duration from start to terminal state, by job name.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"name"}),
		active: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "spacecore_job_active",
			Help: "Current number of active (queued or running) jobs.",
		}),
	}
}

func (m *jobMetrics) RecordJobQueued(name string)  { m.queued.WithLabelValues(name).Inc() }
func (m *jobMetrics) RecordJobStarted(name string) { m.started.WithLabelValues(name).Inc() }

func (m *jobMetrics) RecordJobCompleted(name string, duration time.Duration) {
	m.completed.WithLabelValues(name).Inc()
	m.duration.WithLabelValues(name).Observe(duration.Seconds())
}

func (m *jobMetrics) RecordJobFailed(name string, duration time.Duration) {
	m.failed.WithLabelValues(name).Inc()
	m.duration.WithLabelValues(name).Observe(duration.Seconds())
}

func (m *jobMetrics) RecordJobCancelled(name string) { m.cancelled.WithLabelValues(name).Inc() }
func (m *jobMetrics) SetActiveJobs(count int)        { m.active.Set(float64(count)) }
