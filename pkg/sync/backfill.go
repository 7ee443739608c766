package sync

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/spacecore/spacecore/internal/telemetry"
	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/metrics"
	"github.com/spacecore/spacecore/pkg/store"
)

// resourceOrder is the fixed pass order spec.md §4.6 mandates: devices
// before volumes before locations before entries before content
// identities, so a resumed backfill never has to guess what a peer has
// already learned about an entry whose location or device it hasn't.
var resourceOrder = []string{"device", "volume", "location", "entry", "content_identity"}

const backfillPageSize = 1000

// BackfillSender transmits one page of rows for a resource type to a peer.
// Implemented by whatever owns the live connection to that peer; the sync
// engine itself only knows how to read rows and track checkpoints.
type BackfillSender interface {
	SendBackfillPage(ctx context.Context, peerDeviceUUID, resourceType string, rows []byte, final bool) error
}

// BackfillManager drives the checkpointed backfill pass for one peer: for
// each resource type in resourceOrder, resume from (or start) a checkpoint,
// stream pages of backfillPageSize rows in ascending id order, persist
// progress after every page, and delete the checkpoint once the type is
// drained.
type BackfillManager struct {
	store   store.Store
	send    BackfillSender
	metrics metrics.SyncMetrics
}

// NewBackfillManager constructs a manager over st, sending pages through
// send. m is optional; pass nil to disable instrumentation.
func NewBackfillManager(st store.Store, send BackfillSender, m metrics.SyncMetrics) *BackfillManager {
	return &BackfillManager{store: st, send: send, metrics: m}
}

// Run executes a full backfill pass for peerDeviceUUID, resuming any
// resource type with an existing checkpoint and completing the rest in
// order. On crash mid-pass, a subsequent Run call resumes from the last
// persisted checkpoint for each not-yet-completed resource type.
// onResourceType, if non-nil, is invoked right before each resource type
// begins transferring, so a caller can reflect real progress (not a
// pre-recorded guess) in peer status.
func (m *BackfillManager) Run(ctx context.Context, localDeviceUUID, peerDeviceUUID string, onResourceType func(resourceType string)) error {
	ctx, span := telemetry.StartSpan(ctx, "sync.backfill")
	defer span.End()
	telemetry.SetAttributes(ctx, attribute.String("sync.peer_device", peerDeviceUUID))

	for _, resourceType := range resourceOrder {
		if err := ctx.Err(); err != nil {
			err := errors.Canceled("backfill canceled")
			telemetry.RecordError(ctx, err)
			return err
		}
		if onResourceType != nil {
			onResourceType(resourceType)
		}
		telemetry.AddEvent(ctx, "backfill.resource_type.start", attribute.String("resource_type", resourceType))
		if err := m.backfillResourceType(ctx, localDeviceUUID, peerDeviceUUID, resourceType); err != nil {
			telemetry.RecordError(ctx, err)
			return err
		}
	}
	return nil
}

func (m *BackfillManager) backfillResourceType(ctx context.Context, localDeviceUUID, peerDeviceUUID, resourceType string) error {
	cp, err := m.store.GetCheckpoint(ctx, localDeviceUUID, peerDeviceUUID, resourceType)
	var afterID uint
	var recordsSynced uint64
	if err != nil {
		if !errors.IsNotFound(err) {
			return err
		}
		cp = &store.SyncCheckpoint{LocalDevice: localDeviceUUID, PeerDevice: peerDeviceUUID, ResourceType: resourceType}
	} else {
		afterID = parseResumeToken(cp.ResumeToken)
		recordsSynced = cp.RecordsSynced
	}

	for {
		if err := ctx.Err(); err != nil {
			return errors.Canceled("backfill canceled")
		}
		pageStart := time.Now()
		page, count, lastID, err := m.fetchPage(ctx, resourceType, afterID)
		if err != nil {
			return err
		}
		if count == 0 {
			return m.store.DeleteCheckpoint(ctx, localDeviceUUID, peerDeviceUUID, resourceType)
		}

		encoded, err := json.Marshal(page)
		if err != nil {
			return errors.Internal("failed to encode backfill page").Wrap(err)
		}
		if err := m.send.SendBackfillPage(ctx, peerDeviceUUID, resourceType, encoded, false); err != nil {
			return err
		}
		if m.metrics != nil {
			m.metrics.RecordBackfillPage(resourceType, count, time.Since(pageStart))
		}

		afterID = lastID
		recordsSynced += uint64(count)
		cp.ResumeToken = formatResumeToken(afterID)
		cp.RecordsSynced = recordsSynced
		if err := m.store.UpsertCheckpoint(ctx, cp); err != nil {
			return err
		}

		if count < backfillPageSize {
			return m.store.DeleteCheckpoint(ctx, localDeviceUUID, peerDeviceUUID, resourceType)
		}
	}
}

// fetchPage reads up to backfillPageSize rows of resourceType with id >
// afterID and returns them JSON-marshalable along with the row count and
// the last id seen.
func (m *BackfillManager) fetchPage(ctx context.Context, resourceType string, afterID uint) (any, int, uint, error) {
	switch resourceType {
	case "device":
		rows, err := m.store.ListDevicesPage(ctx, afterID, backfillPageSize)
		return rows, len(rows), lastID(rows, func(d *store.Device) uint { return d.ID }), err
	case "volume":
		rows, err := m.store.ListVolumesPage(ctx, afterID, backfillPageSize)
		return rows, len(rows), lastID(rows, func(v *store.Volume) uint { return v.ID }), err
	case "location":
		rows, err := m.store.ListLocationsPage(ctx, afterID, backfillPageSize)
		return rows, len(rows), lastID(rows, func(l *store.Location) uint { return l.ID }), err
	case "entry":
		rows, err := m.store.ListEntriesPage(ctx, afterID, backfillPageSize)
		return rows, len(rows), lastID(rows, func(e *store.Entry) uint { return e.ID }), err
	case "content_identity":
		rows, err := m.store.ListContentIdentitiesPage(ctx, afterID, backfillPageSize)
		return rows, len(rows), lastID(rows, func(c *store.ContentIdentity) uint { return c.ID }), err
	default:
		return nil, 0, 0, errors.Internal("unknown backfill resource type: " + resourceType)
	}
}

func lastID[T any](rows []*T, id func(*T) uint) uint {
	if len(rows) == 0 {
		return 0
	}
	return id(rows[len(rows)-1])
}

func parseResumeToken(token string) uint {
	if token == "" {
		return 0
	}
	var v uint
	for _, c := range token {
		if c < '0' || c > '9' {
			return 0
		}
		v = v*10 + uint(c-'0')
	}
	return v
}

func formatResumeToken(id uint) string {
	if id == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = byte('0' + id%10)
		id /= 10
	}
	return string(buf[i:])
}
