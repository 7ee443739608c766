package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/spacecore/spacecore/pkg/metrics"
)

func init() {
	metrics.RegisterSyncMetricsConstructor(newSyncMetrics)
}

type syncMetrics struct {
	backfillPages    *prometheus.CounterVec
	backfillRows     *prometheus.CounterVec
	backfillDuration *prometheus.HistogramVec
	liveEventsSent   *prometheus.CounterVec
	liveEventsBuffered *prometheus.CounterVec
	liveEventsDropped  *prometheus.CounterVec
	peerState        *prometheus.GaugeVec
}

func newSyncMetrics() metrics.SyncMetrics {
	reg := metrics.GetRegistry()
	return &syncMetrics{
		backfillPages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_sync_backfill_pages_total",
			Help: "Total number of backfill pages sent to peers, by resource type.",
		}, []string{"resource_type"}),
		backfillRows: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_sync_backfill_rows_total",
			Help: "Total number of rows sent in backfill pages, by resource type.",
		}, []string{"resource_type"}),
		backfillDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spacecore_sync_backfill_page_duration_seconds",
			Help:    "Time to send one backfill page, by resource type.",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource_type"}),
		liveEventsSent: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_sync_live_events_sent_total",
			Help: "Total number of live events delivered to a peer.",
		}, []string{"peer"}),
		liveEventsBuffered: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_sync_live_events_buffered_total",
			Help: "Total number of live events held in the durable buffer instead of sent immediately.",
		}, []string{"peer"}),
		liveEventsDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spacecore_sync_live_events_dropped_total",
			Help: "Total number of buffered live events evicted by capacity overflow.",
		}, []string{"peer"}),
		peerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "spacecore_sync_peer_state",
			Help: "Current sync state per peer (1 for the active state label, 0 otherwise).",
		}, []string{"peer", "state"}),
	}
}

func (m *syncMetrics) RecordBackfillPage(resourceType string, rows int, duration time.Duration) {
	m.backfillPages.WithLabelValues(resourceType).Inc()
	m.backfillRows.WithLabelValues(resourceType).Add(float64(rows))
	m.backfillDuration.WithLabelValues(resourceType).Observe(duration.Seconds())
}

func (m *syncMetrics) RecordLiveEventSent(peerDeviceUUID string) {
	m.liveEventsSent.WithLabelValues(peerDeviceUUID).Inc()
}

func (m *syncMetrics) RecordLiveEventBuffered(peerDeviceUUID string) {
	m.liveEventsBuffered.WithLabelValues(peerDeviceUUID).Inc()
}

func (m *syncMetrics) RecordLiveEventDropped(peerDeviceUUID string) {
	m.liveEventsDropped.WithLabelValues(peerDeviceUUID).Inc()
}

func (m *syncMetrics) SetPeerState(peerDeviceUUID, state string) {
	for _, s := range []string{"idle", "backfilling", "live", "failed"} {
		value := 0.0
		if s == state {
			value = 1.0
		}
		m.peerState.WithLabelValues(peerDeviceUUID, s).Set(value)
	}
}
