package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID    string    // OpenTelemetry trace ID
	SpanID     string    // OpenTelemetry span ID
	Operation  string    // Operation name (indexer.walk, job.dispatch, sync.backfill, etc.)
	DeviceID   string    // Local device UUID
	PeerID     string    // Remote device UUID, when acting on a peer connection
	ClientAddr string    // Peer transport address (without port), for pairing/sync connections
	StartTime  time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client address.
func NewLogContext(clientAddr string) *LogContext {
	return &LogContext{
		ClientAddr: clientAddr,
		StartTime:  time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:    lc.TraceID,
		SpanID:     lc.SpanID,
		Operation:  lc.Operation,
		DeviceID:   lc.DeviceID,
		PeerID:     lc.PeerID,
		ClientAddr: lc.ClientAddr,
		StartTime:  lc.StartTime,
	}
}

// WithOperation returns a copy with the operation name set
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithPeer returns a copy with the remote peer device ID set
func (lc *LogContext) WithPeer(peerID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.PeerID = peerID
	}
	return clone
}

// WithDevice returns a copy with the local device ID set
func (lc *LogContext) WithDevice(deviceID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.DeviceID = deviceID
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
