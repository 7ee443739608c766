package sync

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	bolt "go.etcd.io/bbolt"

	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/metrics"
)

// EventBuffer is a durable, bounded, per-peer queue of live events waiting
// to be delivered: either because the peer is mid-backfill (the race
// condition contract requires holding them) or because it is briefly
// offline. Backed by bbolt so a crash between enqueue and delivery does
// not lose events, matching spec.md §4.6's "separate durable queue".
type EventBuffer struct {
	db       *bolt.DB
	capacity int
	metrics  metrics.SyncMetrics

	droppedMu sync.Mutex
	dropped   map[string]*atomic.Uint64
}

// SetMetrics attaches m so capacity evictions are reported; m is optional
// and may be nil to disable instrumentation.
func (b *EventBuffer) SetMetrics(m metrics.SyncMetrics) {
	b.metrics = m
}

// OpenEventBuffer opens (creating if absent) the bbolt-backed buffer at
// path. capacity bounds each peer's queue; the oldest entry is dropped
// when a peer's bucket is full.
func OpenEventBuffer(path string, capacity int) (*EventBuffer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.IOError("failed to create sync buffer directory", path, false)
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.IOError("failed to open sync event buffer", path, false)
	}
	return &EventBuffer{db: db, capacity: capacity, dropped: make(map[string]*atomic.Uint64)}, nil
}

// Close closes the underlying database.
func (b *EventBuffer) Close() error {
	return b.db.Close()
}

// Push enqueues payload for peerDeviceUUID under key (typically a
// watermark's sort-stable encoding). If the peer's queue is at capacity,
// the oldest entry is evicted and the peer's drop counter incremented.
func (b *EventBuffer) Push(peerDeviceUUID string, key []byte, payload []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(peerDeviceUUID))
		if err != nil {
			return err
		}
		if b.capacity > 0 && bucket.Stats().KeyN >= b.capacity {
			c := bucket.Cursor()
			oldestKey, _ := c.First()
			if oldestKey != nil {
				if err := bucket.Delete(oldestKey); err != nil {
					return err
				}
				b.dropCounter(peerDeviceUUID).Add(1)
				if b.metrics != nil {
					b.metrics.RecordLiveEventDropped(peerDeviceUUID)
				}
			}
		}
		return bucket.Put(key, payload)
	})
}

// Drain returns every buffered payload for peerDeviceUUID in key order
// and empties its queue.
func (b *EventBuffer) Drain(peerDeviceUUID string) ([][]byte, error) {
	var out [][]byte
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(peerDeviceUUID))
		if bucket == nil {
			return nil
		}
		if err := bucket.ForEach(func(_, v []byte) error {
			cp := make([]byte, len(v))
			copy(cp, v)
			out = append(out, cp)
			return nil
		}); err != nil {
			return err
		}
		return tx.DeleteBucket([]byte(peerDeviceUUID))
	})
	if err != nil {
		return nil, errors.IOError("failed to drain sync event buffer", peerDeviceUUID, false)
	}
	return out, nil
}

// Dropped returns how many buffered events have been evicted for
// peerDeviceUUID due to capacity overflow since the buffer was opened.
func (b *EventBuffer) Dropped(peerDeviceUUID string) uint64 {
	return b.dropCounter(peerDeviceUUID).Load()
}

func (b *EventBuffer) dropCounter(peerDeviceUUID string) *atomic.Uint64 {
	b.droppedMu.Lock()
	defer b.droppedMu.Unlock()
	if c, ok := b.dropped[peerDeviceUUID]; ok {
		return c
	}
	c := &atomic.Uint64{}
	b.dropped[peerDeviceUUID] = c
	return c
}

// WatermarkKey encodes a watermark as a fixed-width, order-preserving key
// suitable for bbolt's byte-lexicographic bucket ordering.
func WatermarkKey(w Watermark) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], uint64(w.WallClockMs))
	binary.BigEndian.PutUint64(key[8:], w.Sequence)
	return key
}

func init() {
	// Guard against silent truncation if WatermarkKey's layout ever changes
	// without updating its width.
	if len(WatermarkKey(Watermark{})) != 16 {
		panic("sync: WatermarkKey width changed unexpectedly")
	}
}
