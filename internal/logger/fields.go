package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Device / Peer
	// ========================================================================
	KeyDeviceID   = "device_id"   // Local device UUID
	KeyPeerID     = "peer_id"     // Remote device UUID
	KeyDeviceName = "device_name" // Human-readable device name

	// ========================================================================
	// Location / Volume
	// ========================================================================
	KeyLocationID = "location_id" // Location UUID
	KeyVolumeID   = "volume_id"   // Volume UUID
	KeyRootPath   = "root_path"   // Location root path
	KeyMountPoint = "mount_point" // Volume mount point

	// ========================================================================
	// File System Entries
	// ========================================================================
	KeyPath       = "path"        // Full entry path
	KeyFilename   = "filename"    // Entry name (basename)
	KeyParentPath = "parent_path" // Parent directory path
	KeyOldPath    = "old_path"    // Source path for rename/move operations
	KeyNewPath    = "new_path"    // Destination path for rename/move operations
	KeyEntryKind  = "entry_kind"  // Entry kind: file, directory, symlink
	KeySize       = "size"        // Entry size in bytes
	KeyInode      = "inode"       // Inode number on the source volume

	// ========================================================================
	// Content Addressing
	// ========================================================================
	KeyContentID = "content_id" // CAS identifier (v<version>_<scheme>:<hex>)
	KeyScheme    = "scheme"     // Hash scheme: full, sampled, content
	KeyVersion   = "version"    // CAS identifier scheme version

	// ========================================================================
	// Indexing
	// ========================================================================
	KeyIndexPhase  = "index_phase" // walk, process, aggregate
	KeyBatchSize   = "batch_size"
	KeyEntryCount  = "entry_count"
	KeyExcludeRule = "exclude_rule"

	// ========================================================================
	// Job Scheduler
	// ========================================================================
	KeyJobID      = "job_id"
	KeyJobName    = "job_name"
	KeyJobStatus  = "job_status"
	KeyTaskID     = "task_id"
	KeyPriority   = "priority"
	KeyCheckpoint = "checkpoint"
	KeyAttempt    = "attempt"
	KeyMaxRetries = "max_retries"

	// ========================================================================
	// Path Resolution
	// ========================================================================
	KeyCost        = "cost"
	KeyReplicaPath = "replica_path"

	// ========================================================================
	// Pairing
	// ========================================================================
	KeyPairingRole = "pairing_role" // initiator, joiner
	KeyPairingStep = "pairing_step"
	KeyPairingCode = "pairing_code"

	// ========================================================================
	// Sync Engine
	// ========================================================================
	KeyResourceType = "resource_type"
	KeyWatermark    = "watermark"
	KeySequence     = "sequence"
	KeyRecordCount  = "record_count"
	KeyPeerState    = "peer_state" // idle, backfilling, live, failed

	// ========================================================================
	// Store / Database
	// ========================================================================
	KeyStoreDriver = "store_driver" // sqlite, postgres
	KeyTable       = "table"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeyOperation  = "operation"

	// ========================================================================
	// Connection / Transport
	// ========================================================================
	KeyClientAddr = "client_addr"
	KeyRequestID  = "request_id"
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// DeviceID returns a slog.Attr for a local device UUID.
func DeviceID(id string) slog.Attr {
	return slog.String(KeyDeviceID, id)
}

// PeerID returns a slog.Attr for a remote device UUID.
func PeerID(id string) slog.Attr {
	return slog.String(KeyPeerID, id)
}

// DeviceName returns a slog.Attr for a device's human-readable name.
func DeviceName(name string) slog.Attr {
	return slog.String(KeyDeviceName, name)
}

// LocationID returns a slog.Attr for a location UUID.
func LocationID(id string) slog.Attr {
	return slog.String(KeyLocationID, id)
}

// VolumeID returns a slog.Attr for a volume UUID.
func VolumeID(id string) slog.Attr {
	return slog.String(KeyVolumeID, id)
}

// RootPath returns a slog.Attr for a location's root path.
func RootPath(p string) slog.Attr {
	return slog.String(KeyRootPath, p)
}

// MountPoint returns a slog.Attr for a volume's mount point.
func MountPoint(p string) slog.Attr {
	return slog.String(KeyMountPoint, p)
}

// Path returns a slog.Attr for a full entry path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for an entry's basename.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// ParentPath returns a slog.Attr for a parent directory path.
func ParentPath(p string) slog.Attr {
	return slog.String(KeyParentPath, p)
}

// OldPath returns a slog.Attr for the source path in a move operation.
func OldPath(p string) slog.Attr {
	return slog.String(KeyOldPath, p)
}

// NewPath returns a slog.Attr for the destination path in a move operation.
func NewPath(p string) slog.Attr {
	return slog.String(KeyNewPath, p)
}

// EntryKind returns a slog.Attr for an entry's kind.
func EntryKind(kind string) slog.Attr {
	return slog.String(KeyEntryKind, kind)
}

// Size returns a slog.Attr for an entry's size in bytes.
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// Inode returns a slog.Attr for an inode number.
func Inode(ino uint64) slog.Attr {
	return slog.Uint64(KeyInode, ino)
}

// ContentID returns a slog.Attr for a CAS identifier.
func ContentID(id string) slog.Attr {
	return slog.String(KeyContentID, id)
}

// Scheme returns a slog.Attr for a CAS hash scheme.
func Scheme(scheme string) slog.Attr {
	return slog.String(KeyScheme, scheme)
}

// Version returns a slog.Attr for a CAS identifier scheme version.
func Version(v int) slog.Attr {
	return slog.Int(KeyVersion, v)
}

// IndexPhase returns a slog.Attr for the current indexer phase.
func IndexPhase(phase string) slog.Attr {
	return slog.String(KeyIndexPhase, phase)
}

// BatchSize returns a slog.Attr for a processing batch size.
func BatchSize(n int) slog.Attr {
	return slog.Int(KeyBatchSize, n)
}

// EntryCount returns a slog.Attr for a count of entries.
func EntryCount(n int) slog.Attr {
	return slog.Int(KeyEntryCount, n)
}

// ExcludeRule returns a slog.Attr for a matched exclusion rule.
func ExcludeRule(rule string) slog.Attr {
	return slog.String(KeyExcludeRule, rule)
}

// JobID returns a slog.Attr for a job UUID.
func JobID(id string) slog.Attr {
	return slog.String(KeyJobID, id)
}

// JobName returns a slog.Attr for a job type name.
func JobName(name string) slog.Attr {
	return slog.String(KeyJobName, name)
}

// JobStatus returns a slog.Attr for a job status.
func JobStatus(status string) slog.Attr {
	return slog.String(KeyJobStatus, status)
}

// TaskID returns a slog.Attr for a task UUID within a job.
func TaskID(id string) slog.Attr {
	return slog.String(KeyTaskID, id)
}

// Priority returns a slog.Attr for a task priority.
func Priority(p int) slog.Attr {
	return slog.Int(KeyPriority, p)
}

// Checkpoint returns a slog.Attr for a job checkpoint marker.
func Checkpoint(cp string) slog.Attr {
	return slog.String(KeyCheckpoint, cp)
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for the maximum retry attempts.
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// Cost returns a slog.Attr for a resolver replica cost.
func Cost(c float64) slog.Attr {
	return slog.Float64(KeyCost, c)
}

// ReplicaPath returns a slog.Attr for a resolved replica path.
func ReplicaPath(p string) slog.Attr {
	return slog.String(KeyReplicaPath, p)
}

// PairingRole returns a slog.Attr for the local pairing role.
func PairingRole(role string) slog.Attr {
	return slog.String(KeyPairingRole, role)
}

// PairingStep returns a slog.Attr for the current pairing protocol step.
func PairingStep(step string) slog.Attr {
	return slog.String(KeyPairingStep, step)
}

// PairingCode returns a slog.Attr for a pairing mnemonic code.
func PairingCode(code string) slog.Attr {
	return slog.String(KeyPairingCode, code)
}

// ResourceType returns a slog.Attr for a sync resource type.
func ResourceType(t string) slog.Attr {
	return slog.String(KeyResourceType, t)
}

// Watermark returns a slog.Attr for a sync watermark.
func Watermark(w string) slog.Attr {
	return slog.String(KeyWatermark, w)
}

// Sequence returns a slog.Attr for a sync sequence number.
func Sequence(seq uint64) slog.Attr {
	return slog.Uint64(KeySequence, seq)
}

// RecordCount returns a slog.Attr for a count of synced records.
func RecordCount(n int) slog.Attr {
	return slog.Int(KeyRecordCount, n)
}

// PeerState returns a slog.Attr for a peer's sync state machine state.
func PeerState(state string) slog.Attr {
	return slog.String(KeyPeerState, state)
}

// StoreDriver returns a slog.Attr for the active store driver.
func StoreDriver(driver string) slog.Attr {
	return slog.String(KeyStoreDriver, driver)
}

// Table returns a slog.Attr for a database table name.
func Table(name string) slog.Attr {
	return slog.String(KeyTable, name)
}

// DurationMs returns a slog.Attr for an operation duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code.
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Operation returns a slog.Attr for a sub-operation type.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// ClientAddr returns a slog.Attr for a peer connection address.
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// RequestID returns a slog.Attr for a JSON-RPC request ID.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}
