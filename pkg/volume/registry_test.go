package volume

import (
	"context"
	"testing"

	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/store"
)

// fakeStore implements store.Store by embedding the (nil) interface and
// overriding only the methods Registry actually calls; any other method
// called by a test would panic on the nil embedded interface, which is
// the point — it flags an untested dependency immediately.
type fakeStore struct {
	store.Store

	device  *store.Device
	volumes map[string]*store.Volume // by fingerprint
}

func newFakeStore(device *store.Device) *fakeStore {
	return &fakeStore{device: device, volumes: make(map[string]*store.Volume)}
}

func (f *fakeStore) GetDevice(ctx context.Context, uuid string) (*store.Device, error) {
	if f.device.UUID != uuid {
		return nil, errors.NotFound("device", uuid)
	}
	return f.device, nil
}

func (f *fakeStore) GetVolumeByFingerprint(ctx context.Context, fingerprint string) (*store.Volume, error) {
	v, ok := f.volumes[fingerprint]
	if !ok {
		return nil, errors.NotFound("volume", fingerprint)
	}
	return v, nil
}

func (f *fakeStore) CreateVolume(ctx context.Context, v *store.Volume) (string, error) {
	v.UUID = "vol-" + v.Fingerprint
	f.volumes[v.Fingerprint] = v
	return v.UUID, nil
}

func (f *fakeStore) UpdateVolume(ctx context.Context, v *store.Volume) error {
	if _, ok := f.volumes[v.Fingerprint]; !ok {
		return errors.NotFound("volume", v.Fingerprint)
	}
	f.volumes[v.Fingerprint] = v
	return nil
}

type fakeProbe struct {
	volumes []Volume
}

func (p *fakeProbe) Probe(ctx context.Context) ([]Volume, error) {
	return p.volumes, nil
}

func TestRegistry_RefreshPersistsAutoTrackedVolumes(t *testing.T) {
	device := &store.Device{ID: 1, UUID: "device-1"}
	fs := newFakeStore(device)
	probe := &fakeProbe{volumes: []Volume{
		{
			Fingerprint: "fp-primary",
			DeviceID:    "device-1",
			Name:        "root",
			MountPoint:  "/",
			VolumeType:  TypePrimary,
			TotalBytes:  1000,
		},
		{
			Fingerprint: "fp-system",
			DeviceID:    "device-1",
			Name:        "boot",
			MountPoint:  "/boot",
			VolumeType:  TypeSystem,
		},
	}}

	reg := NewRegistry(fs, probe, "device-1")
	diff, err := reg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if len(diff.Added) != 2 {
		t.Fatalf("expected 2 added volumes in diff, got %d", len(diff.Added))
	}

	if _, ok := fs.volumes["fp-primary"]; !ok {
		t.Error("expected auto-tracked Primary volume to be persisted")
	}
	if _, ok := fs.volumes["fp-system"]; ok {
		t.Error("expected System volume to not be auto-persisted")
	}

	mounted := reg.Mounted()
	if len(mounted) != 2 {
		t.Errorf("expected 2 mounted volumes cached, got %d", len(mounted))
	}
}

func TestRegistry_RefreshDetectsRemovalAndUpdate(t *testing.T) {
	device := &store.Device{ID: 1, UUID: "device-1"}
	fs := newFakeStore(device)
	probe := &fakeProbe{volumes: []Volume{
		{Fingerprint: "fp-a", DeviceID: "device-1", MountPoint: "/mnt/a", VolumeType: TypeExternal, TotalBytes: 100},
	}}
	reg := NewRegistry(fs, probe, "device-1")
	if _, err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh failed: %v", err)
	}

	probe.volumes = []Volume{
		{Fingerprint: "fp-a", DeviceID: "device-1", MountPoint: "/mnt/a", VolumeType: TypeExternal, TotalBytes: 200},
	}
	diff, err := reg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	if len(diff.Updated) != 1 {
		t.Fatalf("expected 1 updated volume, got %d", len(diff.Updated))
	}

	probe.volumes = nil
	diff, err = reg.Refresh(context.Background())
	if err != nil {
		t.Fatalf("third refresh failed: %v", err)
	}
	if len(diff.Removed) != 1 {
		t.Fatalf("expected 1 removed volume, got %d", len(diff.Removed))
	}
	if len(reg.Mounted()) != 0 {
		t.Error("expected no mounted volumes after unmount")
	}
}

func TestRegistry_TrackPersistsNonAutoTrackedVolume(t *testing.T) {
	device := &store.Device{ID: 1, UUID: "device-1"}
	fs := newFakeStore(device)
	probe := &fakeProbe{volumes: []Volume{
		{Fingerprint: "fp-system", DeviceID: "device-1", MountPoint: "/boot", VolumeType: TypeSystem},
	}}
	reg := NewRegistry(fs, probe, "device-1")
	if _, err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if _, err := reg.Track(context.Background(), "fp-system"); err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if _, ok := fs.volumes["fp-system"]; !ok {
		t.Error("expected explicitly tracked volume to be persisted")
	}
}
