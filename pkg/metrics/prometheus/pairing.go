package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spacecore/spacecore/pkg/metrics"
)

func init() {
	metrics.RegisterPairingMetricsConstructor(newPairingMetrics)
}

type pairingMetrics struct {
	attempts     *prometheus.CounterVec
	succeeded    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	pairedDevices prometheus.Gauge
}

func newPairingMetrics() metrics.PairingMetrics {
	reg := metrics.GetRegistry()
	return &pairingMetrics{
		attempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_pairing_attempts_total",
			Help: "Total number of pairing attempts, by role (host or join).",
		}, []string{"role"}),
		succeeded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_pairing_succeeded_total",
			Help: "Total number of pairing attempts that completed successfully, by role.",
		}, []string{"role"}),
		failed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_pairing_failed_total",
			Help: "Total number of pairing attempts that failed, by role and reason.",
		}, []string{"role", "reason"}),
		pairedDevices: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "spacecore_pairing_paired_devices",
			Help: "Current number of paired devices.",
		}),
	}
}

func (m *pairingMetrics) RecordPairingAttempt(role string)  { m.attempts.WithLabelValues(role).Inc() }
func (m *pairingMetrics) RecordPairingSucceeded(role string) { m.succeeded.WithLabelValues(role).Inc() }

func (m *pairingMetrics) RecordPairingFailed(role, reason string) {
	m.failed.WithLabelValues(role, reason).Inc()
}

func (m *pairingMetrics) SetPairedDeviceCount(count int) {
	m.pairedDevices.Set(float64(count))
}
