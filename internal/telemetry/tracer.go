package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for spacecore operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Device / peer attributes
	// ========================================================================
	AttrDeviceID = "device.id"
	AttrPeerID   = "peer.id"

	// ========================================================================
	// Indexing attributes
	// ========================================================================
	AttrLocationID = "index.location_id"
	AttrRootPath   = "index.root_path"
	AttrPhase      = "index.phase" // walk, process, aggregate
	AttrBatchSize  = "index.batch_size"
	AttrEntryPath  = "index.entry_path"

	// ========================================================================
	// Job attributes
	// ========================================================================
	AttrJobID     = "job.id"
	AttrJobName   = "job.name"
	AttrJobStatus = "job.status"
	AttrTaskID    = "job.task_id"
	AttrPriority  = "job.priority"

	// ========================================================================
	// Content-addressing attributes
	// ========================================================================
	AttrContentID = "content.id"
	AttrScheme    = "content.scheme" // full, sampled, content
	AttrSize      = "content.size"

	// ========================================================================
	// Path resolution attributes
	// ========================================================================
	AttrCost = "resolver.cost"

	// ========================================================================
	// Pairing attributes
	// ========================================================================
	AttrPairingRole = "pairing.role" // initiator, joiner
	AttrPairingStep = "pairing.step"

	// ========================================================================
	// Sync attributes
	// ========================================================================
	AttrResourceType = "sync.resource_type"
	AttrWatermark    = "sync.watermark"
	AttrRecordCount  = "sync.record_count"
)

// Span names for operations. Format: <component>.<operation>.
const (
	SpanIndexWalk      = "indexer.walk"
	SpanIndexProcess   = "indexer.process"
	SpanIndexAggregate = "indexer.aggregate"

	SpanJobRun        = "job.run"
	SpanJobCheckpoint = "job.checkpoint"
	SpanJobTask       = "job.task"

	SpanHashFull    = "hash.full"
	SpanHashSampled = "hash.sampled"

	SpanResolverResolve = "resolver.resolve"
	SpanResolverBatch   = "resolver.batch"

	SpanPairingChallenge  = "pairing.challenge"
	SpanPairingDeviceInfo = "pairing.device_info"
	SpanPairingSessionKey = "pairing.session_key"

	SpanSyncBackfillPage = "sync.backfill_page"
	SpanSyncLiveEvent    = "sync.live_event"
)

// DeviceID returns an attribute for a device UUID.
func DeviceID(id string) attribute.KeyValue {
	return attribute.String(AttrDeviceID, id)
}

// PeerID returns an attribute for a peer device UUID.
func PeerID(id string) attribute.KeyValue {
	return attribute.String(AttrPeerID, id)
}

// LocationID returns an attribute for a location id.
func LocationID(id string) attribute.KeyValue {
	return attribute.String(AttrLocationID, id)
}

// Phase returns an attribute for the current indexer phase.
func Phase(phase string) attribute.KeyValue {
	return attribute.String(AttrPhase, phase)
}

// JobID returns an attribute for a job UUID.
func JobID(id string) attribute.KeyValue {
	return attribute.String(AttrJobID, id)
}

// JobName returns an attribute for a job type name.
func JobName(name string) attribute.KeyValue {
	return attribute.String(AttrJobName, name)
}

// JobStatus returns an attribute for a job status.
func JobStatus(status string) attribute.KeyValue {
	return attribute.String(AttrJobStatus, status)
}

// ContentID returns an attribute for a CAS identifier.
func ContentID(id string) attribute.KeyValue {
	return attribute.String(AttrContentID, id)
}

// Scheme returns an attribute for the CAS hash scheme.
func Scheme(scheme string) attribute.KeyValue {
	return attribute.String(AttrScheme, scheme)
}

// Size returns an attribute for a byte size.
func Size(size uint64) attribute.KeyValue {
	return attribute.Int64(AttrSize, int64(size))
}

// Cost returns an attribute for a resolver replica cost.
func Cost(cost float64) attribute.KeyValue {
	return attribute.Float64(AttrCost, cost)
}

// PairingRole returns an attribute for the local pairing role.
func PairingRole(role string) attribute.KeyValue {
	return attribute.String(AttrPairingRole, role)
}

// ResourceType returns an attribute for a sync resource type.
func ResourceType(t string) attribute.KeyValue {
	return attribute.String(AttrResourceType, t)
}

// RecordCount returns an attribute for a count of synced records.
func RecordCount(n int) attribute.KeyValue {
	return attribute.Int(AttrRecordCount, n)
}

// StartIndexSpan starts a span for an indexer phase over a location.
func StartIndexSpan(ctx context.Context, phase, locationID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Phase(phase), LocationID(locationID)}, attrs...)
	return StartSpan(ctx, "indexer."+phase, trace.WithAttributes(allAttrs...))
}

// StartJobSpan starts a span for a job run.
func StartJobSpan(ctx context.Context, name, jobID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{JobName(name), JobID(jobID)}, attrs...)
	return StartSpan(ctx, SpanJobRun, trace.WithAttributes(allAttrs...))
}

// StartPairingSpan starts a span for a pairing protocol step.
func StartPairingSpan(ctx context.Context, step, role string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{attribute.String(AttrPairingStep, step), PairingRole(role)}, attrs...)
	return StartSpan(ctx, "pairing."+step, trace.WithAttributes(allAttrs...))
}

// StartSyncSpan starts a span for a sync engine operation against a peer.
func StartSyncSpan(ctx context.Context, operation, peerID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{PeerID(peerID)}, attrs...)
	return StartSpan(ctx, "sync."+operation, trace.WithAttributes(allAttrs...))
}
