package metrics

import "time"

// SyncMetrics instruments the peer sync engine: backfill throughput, live
// event delivery, and buffer pressure. Pass nil to disable collection with
// zero overhead.
type SyncMetrics interface {
	// RecordBackfillPage records one backfill page sent to a peer for a
	// given resource type.
	RecordBackfillPage(resourceType string, rows int, duration time.Duration)

	// RecordLiveEventSent records a successfully delivered live event.
	RecordLiveEventSent(peerDeviceUUID string)

	// RecordLiveEventBuffered records a live event held in the durable
	// buffer instead of sent immediately.
	RecordLiveEventBuffered(peerDeviceUUID string)

	// RecordLiveEventDropped records a buffered event evicted by capacity
	// overflow.
	RecordLiveEventDropped(peerDeviceUUID string)

	// SetPeerState records a peer's current sync state as a label on a
	// gauge so at most one state per peer is ever reported as active.
	SetPeerState(peerDeviceUUID, state string)
}

// newPrometheusSyncMetrics is set by pkg/metrics/prometheus during its
// package init, same indirection the teacher uses to avoid an import
// cycle between metrics and its prometheus subpackage.
var newPrometheusSyncMetrics func() SyncMetrics

// RegisterSyncMetricsConstructor is called by pkg/metrics/prometheus to
// install its concrete constructor.
func RegisterSyncMetricsConstructor(constructor func() SyncMetrics) {
	newPrometheusSyncMetrics = constructor
}

// NewSyncMetrics returns a Prometheus-backed SyncMetrics, or nil if
// InitRegistry has not been called.
func NewSyncMetrics() SyncMetrics {
	if !IsEnabled() || newPrometheusSyncMetrics == nil {
		return nil
	}
	return newPrometheusSyncMetrics()
}
