package volume

import (
	"context"
	"strings"
	"sync"

	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/store"
)

// Registry reconciles the in-memory set of currently mounted volumes
// (as reported by a Probe) with persisted volume rows, and serves reads
// from a cached snapshot so callers don't pay probe cost on every lookup.
type Registry struct {
	store      store.Store
	probe      Probe
	deviceUUID string

	mu    sync.RWMutex
	cache map[string]Volume // keyed by fingerprint
}

// NewRegistry constructs a Registry for the local device identified by
// deviceUUID, backed by the given store and volume probe.
func NewRegistry(st store.Store, probe Probe, deviceUUID string) *Registry {
	return &Registry{
		store:      st,
		probe:      probe,
		deviceUUID: deviceUUID,
		cache:      make(map[string]Volume),
	}
}

// Diff summarizes how a Refresh changed the tracked volume set.
type Diff struct {
	Added   []Volume
	Removed []Volume
	Updated []Volume
}

// Refresh re-probes the local machine, updates the in-memory cache, and
// persists auto-trackable volumes that are new or whose mutable fields
// (capacity, mount state) have changed. It does not persist volumes whose
// type is not auto-track-eligible unless they were already tracked.
func (r *Registry) Refresh(ctx context.Context) (Diff, error) {
	probed, err := r.probe.Probe(ctx)
	if err != nil {
		return Diff{}, err
	}

	r.mu.Lock()
	prev := r.cache
	next := make(map[string]Volume, len(probed))
	var diff Diff
	for _, v := range probed {
		next[v.Fingerprint] = v
		old, existed := prev[v.Fingerprint]
		switch {
		case !existed:
			diff.Added = append(diff.Added, v)
		case volumeChanged(old, v):
			diff.Updated = append(diff.Updated, v)
		}
	}
	for fp, old := range prev {
		if _, stillMounted := next[fp]; !stillMounted {
			diff.Removed = append(diff.Removed, old)
		}
	}
	r.cache = next
	r.mu.Unlock()

	for _, v := range diff.Added {
		if v.VolumeType.AutoTrackByDefault() {
			if _, err := r.persist(ctx, v); err != nil {
				return diff, err
			}
		}
	}
	for _, v := range diff.Updated {
		if !v.VolumeType.AutoTrackByDefault() {
			if _, err := r.store.GetVolumeByFingerprint(ctx, v.Fingerprint); errors.IsNotFound(err) {
				continue
			} else if err != nil {
				return diff, err
			}
		}
		if _, err := r.persist(ctx, v); err != nil {
			return diff, err
		}
	}
	return diff, nil
}

// Mounted returns a snapshot of the currently mounted volumes.
func (r *Registry) Mounted() []Volume {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Volume, 0, len(r.cache))
	for _, v := range r.cache {
		out = append(out, v)
	}
	return out
}

// Get returns the cached volume with the given fingerprint, if mounted.
func (r *Registry) Get(fingerprint string) (Volume, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.cache[fingerprint]
	return v, ok
}

// VolumeForPath returns the mounted volume with the longest mount-point
// prefix match for path, implementing copyjob.VolumeLookup so the file
// copy job's strategy router can decide same-volume eligibility.
func (r *Registry) VolumeForPath(path string) (Volume, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Volume
	bestLen := -1
	for _, v := range r.cache {
		for _, mp := range v.MountPoints {
			if mp == "" {
				continue
			}
			if strings.HasPrefix(path, mp) && len(mp) > bestLen {
				best, bestLen = v, len(mp)
			}
		}
		if strings.HasPrefix(path, v.MountPoint) && len(v.MountPoint) > bestLen {
			best, bestLen = v, len(v.MountPoint)
		}
	}
	return best, bestLen >= 0
}

// Track explicitly persists a volume regardless of its auto-track
// eligibility, for the `location add` flow where a user opts a volume in.
func (r *Registry) Track(ctx context.Context, fingerprint string) (*store.Volume, error) {
	v, ok := r.Get(fingerprint)
	if !ok {
		return nil, errors.NotFound("volume", fingerprint)
	}
	return r.persist(ctx, v)
}

// volumeChanged reports whether the mutable fields of a volume differ
// between two observations. Fingerprint, name, and classification are
// assumed stable for a given physical volume and excluded from the
// comparison.
func volumeChanged(old, next Volume) bool {
	return old.TotalBytes != next.TotalBytes ||
		old.AvailableBytes != next.AvailableBytes ||
		old.ReadOnly != next.ReadOnly ||
		old.MountPoint != next.MountPoint
}

func (r *Registry) persist(ctx context.Context, v Volume) (*store.Volume, error) {
	device, err := r.store.GetDevice(ctx, v.DeviceID)
	if err != nil {
		return nil, err
	}

	existing, err := r.store.GetVolumeByFingerprint(ctx, v.Fingerprint)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	row := &store.Volume{
		DeviceID:       device.ID,
		Fingerprint:    v.Fingerprint,
		MountPoint:     v.MountPoint,
		Name:           v.Name,
		TotalBytes:     v.TotalBytes,
		AvailableBytes: v.AvailableBytes,
		DiskType:       string(v.DiskType),
		Filesystem:     string(v.Filesystem),
		VolumeType:     string(v.VolumeType),
		ReadOnly:       v.ReadOnly,
		ReadSpeedMBps:  v.ReadSpeedMBps,
		WriteSpeedMBps: v.WriteSpeedMBps,
	}

	if existing == nil {
		if _, err := r.store.CreateVolume(ctx, row); err != nil {
			return nil, err
		}
		return r.store.GetVolumeByFingerprint(ctx, v.Fingerprint)
	}

	row.UUID = existing.UUID
	if err := r.store.UpdateVolume(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}
