package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/spacecore/spacecore/internal/logger"
	"github.com/spacecore/spacecore/pkg/eventbus"
	"github.com/spacecore/spacecore/pkg/identity"
	"github.com/spacecore/spacecore/pkg/metrics"
	"github.com/spacecore/spacecore/pkg/store"
)

// LiveEventSender delivers one signed live mutation to a peer. Implemented
// by ConnTransport in production; tests supply a stub.
type LiveEventSender interface {
	SendLiveEvent(ctx context.Context, peerDeviceUUID string, watermark Watermark, payload, signature []byte) error
}

// PeerTransport is everything the engine needs to talk to one connected
// peer: a backfill channel and a live-event channel, which in production
// are the same ConnTransport.
type PeerTransport interface {
	BackfillSender
	LiveEventSender
}

// signedEvent is the payload persisted in the durable buffer and sent to
// peers: the original bus event plus the watermark that orders it and a
// signature over the pair binding them to the local device's identity.
type signedEvent struct {
	Watermark Watermark             `json:"watermark"`
	Kind      eventbus.Kind         `json:"kind"`
	Changed   *eventbus.ResourceChanged `json:"changed,omitempty"`
	Deleted   *eventbus.ResourceDeleted `json:"deleted,omitempty"`
}

func (e signedEvent) signingBytes() ([]byte, error) {
	return json.Marshal(e)
}

// Engine is the peer sync engine: it consumes local mutations from the
// event bus, orders them with a Lamport watermark, and drives each peer
// through Idle -> Backfilling -> Live, holding live events in a durable
// buffer while a peer is not yet caught up so the race between "backfill
// reads row X" and "a live update to row X arrives" can never reorder the
// two out from under a peer (see buffer.go and the engine's flush rule
// below).
type Engine struct {
	localDevice *identity.Device
	store       store.Store
	bus         *eventbus.Bus
	buffer      *EventBuffer
	clock       Clock
	clockMu     sync.Mutex

	peers *peerTable

	transportsMu sync.RWMutex
	transports   map[string]PeerTransport

	liveRetry time.Duration
	metrics   metrics.SyncMetrics

	sub *eventbus.Subscription

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Config bundles the tunables the engine needs beyond its collaborators.
type Config struct {
	LiveEventRetry time.Duration
	// Metrics is optional; pass nil to disable instrumentation.
	Metrics metrics.SyncMetrics
}

// NewEngine constructs an Engine. Start begins consuming the bus; the
// engine does nothing until then.
func NewEngine(localDevice *identity.Device, st store.Store, bus *eventbus.Bus, buf *EventBuffer, cfg Config) *Engine {
	retry := cfg.LiveEventRetry
	if retry <= 0 {
		retry = 5 * time.Second
	}
	if buf != nil {
		buf.SetMetrics(cfg.Metrics)
	}
	return &Engine{
		localDevice: localDevice,
		store:       st,
		bus:         bus,
		buffer:      buf,
		peers:       newPeerTable(),
		transports:  make(map[string]PeerTransport),
		liveRetry:   retry,
		metrics:     cfg.Metrics,
		stopCh:      make(chan struct{}),
	}
}

// Start subscribes to the event bus and begins fanning out live events to
// connected peers in the background. Call Stop to unwind.
func (e *Engine) Start(ctx context.Context) {
	e.sub = e.bus.Subscribe(eventbus.DefaultSubscriberBuffer, func(ev eventbus.Event) bool {
		switch ev.Kind {
		case eventbus.KindResourceChanged, eventbus.KindResourceChangedBatch, eventbus.KindResourceDeleted:
			return true
		default:
			return false
		}
	})
	e.wg.Add(1)
	go e.consumeLoop(ctx)
}

// Stop unsubscribes from the bus and waits for the consume loop to exit.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	if e.sub != nil {
		e.sub.Close()
	}
	e.wg.Wait()
}

func (e *Engine) consumeLoop(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-e.sub.Events():
			if !ok {
				return
			}
			e.handleLocalEvent(ctx, ev)
		}
	}
}

func (e *Engine) handleLocalEvent(ctx context.Context, ev eventbus.Event) {
	se := signedEvent{
		Watermark: e.nextWatermark(),
		Kind:      ev.Kind,
		Changed:   ev.ResourceChanged,
		Deleted:   ev.ResourceDeleted,
	}
	payload, err := se.signingBytes()
	if err != nil {
		logger.Warn("sync: failed to encode local event, dropping", "error", err)
		return
	}
	signature := e.localDevice.Sign(payload)
	key := WatermarkKey(se.Watermark)

	for _, peer := range e.peers.snapshot() {
		e.routeEvent(ctx, peer, key, payload, signature, se.Watermark)
	}
}

// routeEvent decides whether a peer receives this live event immediately
// or has it held in the durable buffer. Any peer not in PeerLive state
// (Idle, Backfilling, or Failed) has the event buffered: a peer that is
// mid-backfill must never observe a live mutation to a row ahead of the
// backfill page that row belongs to, so everything is held until that
// peer's backfill has fully drained across every resource type and the
// buffer is flushed in one pass immediately after.
func (e *Engine) routeEvent(ctx context.Context, peer PeerStatus, key, payload, signature []byte, watermark Watermark) {
	if peer.State != PeerLive {
		if err := e.buffer.Push(peer.DeviceUUID, key, payload); err != nil {
			logger.Warn("sync: failed to buffer live event for peer", "peer", peer.DeviceUUID, "error", err)
		} else if e.metrics != nil {
			e.metrics.RecordLiveEventBuffered(peer.DeviceUUID)
		}
		return
	}

	transport := e.transportFor(peer.DeviceUUID)
	if transport == nil {
		if err := e.buffer.Push(peer.DeviceUUID, key, payload); err != nil {
			logger.Warn("sync: failed to buffer live event for disconnected peer", "peer", peer.DeviceUUID, "error", err)
		} else if e.metrics != nil {
			e.metrics.RecordLiveEventBuffered(peer.DeviceUUID)
		}
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.liveRetry)
	defer cancel()
	if err := transport.SendLiveEvent(sendCtx, peer.DeviceUUID, watermark, payload, signature); err != nil {
		logger.Warn("sync: live event delivery failed, buffering for retry", "peer", peer.DeviceUUID, "error", err)
		if bufErr := e.buffer.Push(peer.DeviceUUID, key, payload); bufErr != nil {
			logger.Warn("sync: failed to buffer undelivered live event", "peer", peer.DeviceUUID, "error", bufErr)
		}
		e.markFailed(peer.DeviceUUID, err.Error())
		return
	}
	if e.metrics != nil {
		e.metrics.RecordLiveEventSent(peer.DeviceUUID)
	}
}

// Connect registers transport as the live channel for peerDeviceUUID and
// begins a fresh backfill pass against it. Any buffered events accumulated
// while the peer was absent stay buffered until the backfill completes.
func (e *Engine) Connect(ctx context.Context, peerDeviceUUID string, transport PeerTransport) {
	e.transportsMu.Lock()
	e.transports[peerDeviceUUID] = transport
	e.transportsMu.Unlock()

	e.peers.set(peerDeviceUUID, func(p *PeerStatus) {
		p.State = PeerBackfilling
		p.online = true
		p.FailReason = ""
	})
	e.reportState(peerDeviceUUID, PeerBackfilling)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runBackfill(ctx, peerDeviceUUID, transport)
	}()
}

func (e *Engine) runBackfill(ctx context.Context, peerDeviceUUID string, transport PeerTransport) {
	mgr := NewBackfillManager(e.store, transport, e.metrics)
	onResourceType := func(resourceType string) {
		e.peers.set(peerDeviceUUID, func(p *PeerStatus) { p.BackfillResourceType = resourceType })
	}
	if err := mgr.Run(ctx, e.localDevice.UUID, peerDeviceUUID, onResourceType); err != nil {
		e.markFailed(peerDeviceUUID, err.Error())
		return
	}

	e.peers.set(peerDeviceUUID, func(p *PeerStatus) {
		p.State = PeerLive
		p.BackfillResourceType = ""
	})
	e.reportState(peerDeviceUUID, PeerLive)

	e.flushBuffer(ctx, peerDeviceUUID, transport)
}

// flushBuffer delivers every event accumulated while peerDeviceUUID was
// not PeerLive, in watermark order, now that its backfill has fully
// drained. This is what guarantees the replicated state and the live
// stream never diverge: nothing buffered during backfill is ever
// reordered ahead of the row it describes.
func (e *Engine) flushBuffer(ctx context.Context, peerDeviceUUID string, transport PeerTransport) {
	events, err := e.buffer.Drain(peerDeviceUUID)
	if err != nil {
		logger.Warn("sync: failed to drain buffered events", "peer", peerDeviceUUID, "error", err)
		e.markFailed(peerDeviceUUID, err.Error())
		return
	}
	for _, raw := range events {
		var se signedEvent
		if err := json.Unmarshal(raw, &se); err != nil {
			logger.Warn("sync: dropping undecodable buffered event", "peer", peerDeviceUUID, "error", err)
			continue
		}
		signature := e.localDevice.Sign(raw)
		sendCtx, cancel := context.WithTimeout(ctx, e.liveRetry)
		err := transport.SendLiveEvent(sendCtx, peerDeviceUUID, se.Watermark, raw, signature)
		cancel()
		if err != nil {
			logger.Warn("sync: failed to flush buffered event, will retry next connect", "peer", peerDeviceUUID, "error", err)
			if pushErr := e.buffer.Push(peerDeviceUUID, WatermarkKey(se.Watermark), raw); pushErr != nil {
				logger.Warn("sync: failed to re-buffer event after flush failure", "peer", peerDeviceUUID, "error", pushErr)
			}
			e.markFailed(peerDeviceUUID, err.Error())
			return
		}
	}
}

func (e *Engine) markFailed(peerDeviceUUID, reason string) {
	e.peers.set(peerDeviceUUID, func(p *PeerStatus) {
		p.State = PeerFailed
		p.FailReason = reason
		p.online = false
	})
	e.reportState(peerDeviceUUID, PeerFailed)
}

// Disconnect marks peerDeviceUUID unreachable without forgetting its
// checkpoints: a subsequent Connect resumes backfill where it left off.
func (e *Engine) Disconnect(peerDeviceUUID string) {
	e.transportsMu.Lock()
	delete(e.transports, peerDeviceUUID)
	e.transportsMu.Unlock()

	e.peers.set(peerDeviceUUID, func(p *PeerStatus) {
		p.State = PeerIdle
		p.online = false
	})
	e.reportState(peerDeviceUUID, PeerIdle)
}

func (e *Engine) reportState(peerDeviceUUID string, state PeerState) {
	if e.metrics == nil {
		return
	}
	e.metrics.SetPeerState(peerDeviceUUID, string(state))
}

// Unpair forgets everything about peerDeviceUUID: its checkpoints, its
// buffered events, and its table entry. The unpair request handler calls
// it before pkg/pairing.Unpair removes the device record itself.
func (e *Engine) Unpair(ctx context.Context, peerDeviceUUID string) error {
	e.Disconnect(peerDeviceUUID)

	checkpoints, err := e.store.ListCheckpointsForPeer(ctx, e.localDevice.UUID, peerDeviceUUID)
	if err != nil {
		return err
	}
	for _, cp := range checkpoints {
		if err := e.store.DeleteCheckpoint(ctx, cp.LocalDevice, cp.PeerDevice, cp.ResourceType); err != nil {
			return err
		}
	}
	if _, err := e.buffer.Drain(peerDeviceUUID); err != nil {
		return err
	}
	e.peers.remove(peerDeviceUUID)
	return nil
}

// Status returns a snapshot of every known peer's sync state.
func (e *Engine) Status() []PeerStatus {
	return e.peers.snapshot()
}

func (e *Engine) transportFor(peerDeviceUUID string) PeerTransport {
	e.transportsMu.RLock()
	defer e.transportsMu.RUnlock()
	return e.transports[peerDeviceUUID]
}

func (e *Engine) nextWatermark() Watermark {
	e.clockMu.Lock()
	defer e.clockMu.Unlock()
	return e.clock.Next(time.Now().UnixMilli())
}

// IsOnline implements resolver.PeerSet.
func (e *Engine) IsOnline(deviceUUID string) bool {
	status, ok := e.peers.get(deviceUUID)
	return ok && status.online
}

// Metrics implements resolver.PeerSet.
func (e *Engine) Metrics(deviceUUID string) (latencyMs, bandwidthMbps float64, ok bool) {
	status, found := e.peers.get(deviceUUID)
	if !found {
		return 0, 0, false
	}
	return status.LatencyMs, status.BandwidthMbps, true
}

// SetMetrics records a freshly measured link quality for deviceUUID, used
// by whatever periodically probes peer latency/bandwidth.
func (e *Engine) SetMetrics(deviceUUID string, latencyMs, bandwidthMbps float64) {
	e.peers.set(deviceUUID, func(p *PeerStatus) {
		p.LatencyMs = latencyMs
		p.BandwidthMbps = bandwidthMbps
	})
}
