// Package resolver turns an SdPath into a concrete, reachable physical
// path by locating online replicas and picking the cheapest one.
package resolver

import (
	"context"
	"path"
	"sort"

	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/identity"
	"github.com/spacecore/spacecore/pkg/store"
)

// batchChunkSize is the group size ResolveBatch walks content IDs in. Each
// ID in a group is still resolved with its own store queries.
const batchChunkSize = 900

// PeerSet reports which devices are currently reachable and their
// measured link quality. The sync engine is the production implementation;
// tests supply a stub.
type PeerSet interface {
	IsOnline(deviceUUID string) bool
	// Metrics returns one-way latency in milliseconds and throughput in
	// megabits per second for the link to deviceUUID. ok is false if no
	// measurement is available yet (treated as a very high cost, not zero).
	Metrics(deviceUUID string) (latencyMs, bandwidthMbps float64, ok bool)
}

// Resolver resolves SdPaths against the store and a PeerSet.
type Resolver struct {
	store      store.Store
	peers      PeerSet
	localDevID string
}

// New constructs a Resolver for the given local device UUID.
func New(st store.Store, peers PeerSet, localDeviceUUID string) *Resolver {
	return &Resolver{store: st, peers: peers, localDevID: localDeviceUUID}
}

// Resolved is a physical replica with its reachability cost.
type Resolved struct {
	DeviceUUID string
	Path       string
	Cost       float64
}

// Resolve turns any SdPath into the cheapest reachable Physical replica.
func (r *Resolver) Resolve(ctx context.Context, p identity.SdPath) (Resolved, error) {
	if p.IsPhysical() {
		deviceID, physPath, err := p.AsPhysical()
		if err != nil {
			return Resolved{}, err
		}
		if deviceID != r.localDevID && !r.peers.IsOnline(deviceID) {
			return Resolved{}, errors.DeviceOffline(deviceID)
		}
		return Resolved{DeviceUUID: deviceID, Path: physPath, Cost: r.cost(deviceID)}, nil
	}

	contentID, err := p.AsContent()
	if err != nil {
		return Resolved{}, err
	}

	replicas, err := r.replicasFor(ctx, contentID)
	if err != nil {
		return Resolved{}, err
	}
	if len(replicas) == 0 {
		return Resolved{}, errors.NotFound("content replica", contentID)
	}

	sort.Slice(replicas, func(i, j int) bool { return replicas[i].Cost < replicas[j].Cost })
	return replicas[0], nil
}

// ResolveLocal resolves p and requires the winning replica to live on the
// local device, returning just its filesystem path. Used by jobs (e.g.
// copyjob) that operate directly on the local filesystem rather than
// through a remote transport.
func (r *Resolver) ResolveLocal(ctx context.Context, p identity.SdPath) (string, error) {
	res, err := r.Resolve(ctx, p)
	if err != nil {
		return "", err
	}
	if res.DeviceUUID != r.localDevID {
		return "", errors.InvalidArgument("sdpath resolves to a non-local device: " + res.DeviceUUID)
	}
	return res.Path, nil
}

// ResolveBatch resolves many SdPaths at once. Content IDs are walked in
// groups of batchChunkSize, but each ID is looked up with its own store
// queries and online checks; no peer snapshot is shared across the batch.
func (r *Resolver) ResolveBatch(ctx context.Context, paths []identity.SdPath) ([]Resolved, error) {
	results := make([]Resolved, len(paths))

	var contentIdx []int
	var contentIDs []string
	for i, p := range paths {
		if p.IsPhysical() {
			res, err := r.Resolve(ctx, p)
			if err != nil {
				return nil, err
			}
			results[i] = res
			continue
		}
		contentID, err := p.AsContent()
		if err != nil {
			return nil, err
		}
		contentIdx = append(contentIdx, i)
		contentIDs = append(contentIDs, contentID)
	}

	for start := 0; start < len(contentIDs); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(contentIDs) {
			end = len(contentIDs)
		}
		for offset, contentID := range contentIDs[start:end] {
			i := contentIdx[start+offset]
			replicas, err := r.replicasFor(ctx, contentID)
			if err != nil {
				return nil, err
			}
			if len(replicas) == 0 {
				return nil, errors.NotFound("content replica", contentID)
			}
			sort.Slice(replicas, func(a, b int) bool { return replicas[a].Cost < replicas[b].Cost })
			results[i] = replicas[0]
		}
	}
	return results, nil
}

// cost implements cost(replica) = 0.8*latency_ms + 0.2*(1000/bandwidth_mbps).
// The local device always costs 0.
func (r *Resolver) cost(deviceUUID string) float64 {
	if deviceUUID == r.localDevID {
		return 0
	}
	latencyMs, bandwidthMbps, ok := r.peers.Metrics(deviceUUID)
	if !ok || bandwidthMbps <= 0 {
		return 1e9
	}
	return 0.8*latencyMs + 0.2*(1000/bandwidthMbps)
}

func (r *Resolver) replicasFor(ctx context.Context, contentID string) ([]Resolved, error) {
	ci, err := r.store.GetContentIdentityByCasID(ctx, contentID)
	if err != nil {
		return nil, err
	}

	entries, err := r.store.ListEntriesByContentIdentity(ctx, ci.ID)
	if err != nil {
		return nil, err
	}

	var replicas []Resolved
	for _, entry := range entries {
		loc, err := r.store.GetLocationByID(ctx, entry.LocationID)
		if err != nil {
			return nil, err
		}
		device, err := r.store.GetDeviceByID(ctx, loc.DeviceID)
		if err != nil {
			return nil, err
		}
		if device.UUID != r.localDevID && !r.peers.IsOnline(device.UUID) {
			continue
		}

		fullPath, err := r.fullPath(ctx, loc, entry)
		if err != nil {
			return nil, err
		}
		replicas = append(replicas, Resolved{
			DeviceUUID: device.UUID,
			Path:       fullPath,
			Cost:       r.cost(device.UUID),
		})
	}
	return replicas, nil
}

// fullPath reconstructs an entry's absolute path by walking its closure
// ancestry from the location root outward.
func (r *Resolver) fullPath(ctx context.Context, loc *store.Location, entry *store.Entry) (string, error) {
	ancestors, err := r.store.GetAncestors(ctx, entry.ID)
	if err != nil {
		return "", err
	}
	sort.Slice(ancestors, func(i, j int) bool { return ancestors[i].Depth > ancestors[j].Depth })

	segments := make([]string, 0, len(ancestors)+1)
	for _, row := range ancestors {
		if row.AncestorID == entry.ID {
			continue // the depth-0 self row
		}
		if loc.EntryID != nil && row.AncestorID == *loc.EntryID {
			continue // the root entry itself contributes no path segment
		}
		ancestor, err := r.store.GetEntryByID(ctx, row.AncestorID)
		if err != nil {
			return "", err
		}
		segments = append(segments, ancestor.Name)
	}
	segments = append(segments, entry.Name)

	return path.Join(append([]string{loc.Name}, segments...)...), nil
}
