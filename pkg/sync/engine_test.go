//go:build integration

package sync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spacecore/spacecore/pkg/eventbus"
	"github.com/spacecore/spacecore/pkg/identity"
	"github.com/spacecore/spacecore/pkg/store"
)

func newTestEngine(t *testing.T) (*Engine, *eventbus.Bus) {
	t.Helper()
	st := createTestStore(t)
	t.Cleanup(func() { _ = st.Close() })

	bus := eventbus.New()
	buf, err := OpenEventBuffer(t.TempDir()+"/buffer.db", 0)
	if err != nil {
		t.Fatalf("open buffer: %v", err)
	}
	t.Cleanup(func() { _ = buf.Close() })

	local, err := identity.LoadOrCreate(t.TempDir()+"/identity.json", "local")
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}

	eng := NewEngine(local, st, bus, buf, Config{LiveEventRetry: time.Second})
	return eng, bus
}

// orderedTransport records every backfill page and live event it receives
// behind a shared, monotonically increasing order counter, so a test can
// assert that no live event was ever delivered while backfill pages were
// still in flight for that peer.
type orderedTransport struct {
	mu            sync.Mutex
	order         int
	backfillCalls int
	lastBackfillAt int
	liveOrders    []int
}

func (o *orderedTransport) SendBackfillPage(ctx context.Context, peer, resourceType string, rows []byte, final bool) error {
	o.mu.Lock()
	o.order++
	o.backfillCalls++
	o.lastBackfillAt = o.order
	o.mu.Unlock()
	time.Sleep(2 * time.Millisecond)
	return nil
}

func (o *orderedTransport) SendLiveEvent(ctx context.Context, peer string, w Watermark, payload, signature []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order++
	o.liveOrders = append(o.liveOrders, o.order)
	return nil
}

func waitForPeerState(t *testing.T, eng *Engine, peer string, want PeerState, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, status := range eng.Status() {
			if status.DeviceUUID == peer && status.State == want {
				return
			}
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("peer %s did not reach state %s within %s", peer, want, timeout)
}

// TestSyncBackfillRaceExactEquality reproduces the concurrent
// "live mutation arrives while a peer is still backfilling" scenario and
// requires the peer to end up with exactly the number of live events
// published, delivered only after backfill has fully drained — not an
// approximate count.
func TestSyncBackfillRaceExactEquality(t *testing.T) {
	eng, bus := newTestEngine(t)
	ctx := context.Background()
	eng.Start(ctx)
	defer eng.Stop()

	seedDevices(t, eng.store, 1200) // forces more than one backfill page

	transport := &orderedTransport{}
	const liveEventCount = 20

	eng.Connect(ctx, "peer-race", transport)

	var wg sync.WaitGroup
	for i := 0; i < liveEventCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bus.Publish(ctx, eventbus.Event{
				Kind: eventbus.KindResourceChanged,
				ResourceChanged: &eventbus.ResourceChanged{
					Type: eventbus.ResourceDevice,
					ID:   "race-event",
				},
			})
		}(i)
	}
	wg.Wait()

	waitForPeerState(t, eng, "peer-race", PeerLive, 10*time.Second)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		transport.mu.Lock()
		count := len(transport.liveOrders)
		transport.mu.Unlock()
		if count >= liveEventCount {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()

	if len(transport.liveOrders) != liveEventCount {
		t.Fatalf("expected exactly %d live events delivered, got %d", liveEventCount, len(transport.liveOrders))
	}
	for _, o := range transport.liveOrders {
		if o <= transport.lastBackfillAt {
			t.Fatalf("live event delivered at order %d before backfill finished at order %d", o, transport.lastBackfillAt)
		}
	}
}

func TestEngine_UnpairClearsCheckpointsAndBuffer(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	if err := eng.buffer.Push("peer-x", WatermarkKey(Watermark{WallClockMs: 1}), []byte("pending")); err != nil {
		t.Fatalf("seed buffer: %v", err)
	}
	cp := &store.SyncCheckpoint{LocalDevice: eng.localDevice.UUID, PeerDevice: "peer-x", ResourceType: "device"}
	if err := eng.store.UpsertCheckpoint(ctx, cp); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	if err := eng.Unpair(ctx, "peer-x"); err != nil {
		t.Fatalf("unpair: %v", err)
	}

	if _, err := eng.store.GetCheckpoint(ctx, eng.localDevice.UUID, "peer-x", "device"); err == nil {
		t.Fatalf("expected checkpoint to be removed after unpair")
	}
	drained, err := eng.buffer.Drain("peer-x")
	if err != nil {
		t.Fatalf("drain after unpair: %v", err)
	}
	if len(drained) != 0 {
		t.Fatalf("expected buffer to be empty after unpair, got %d events", len(drained))
	}
	if _, ok := eng.peers.get("peer-x"); ok {
		t.Fatalf("expected peer table entry removed after unpair")
	}
}
