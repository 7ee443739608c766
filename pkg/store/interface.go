package store

import "context"

// DeviceStore provides device identity CRUD.
type DeviceStore interface {
	GetDevice(ctx context.Context, uuid string) (*Device, error)
	GetDeviceByID(ctx context.Context, id uint) (*Device, error)
	GetDeviceBySlug(ctx context.Context, slug string) (*Device, error)
	ListDevices(ctx context.Context) ([]*Device, error)
	ListDevicesPage(ctx context.Context, afterID uint, limit int) ([]*Device, error)
	CreateDevice(ctx context.Context, device *Device) (string, error)
	UpdateDevice(ctx context.Context, device *Device) error
	DeleteDevice(ctx context.Context, uuid string) error
}

// VolumeStore provides volume registry CRUD.
type VolumeStore interface {
	GetVolume(ctx context.Context, uuid string) (*Volume, error)
	GetVolumeByFingerprint(ctx context.Context, fingerprint string) (*Volume, error)
	ListVolumesByDevice(ctx context.Context, deviceUUID string) ([]*Volume, error)
	ListVolumesPage(ctx context.Context, afterID uint, limit int) ([]*Volume, error)
	CreateVolume(ctx context.Context, volume *Volume) (string, error)
	UpdateVolume(ctx context.Context, volume *Volume) error
	DeleteVolume(ctx context.Context, uuid string) error
}

// LocationStore provides registered-root-path CRUD.
type LocationStore interface {
	GetLocation(ctx context.Context, uuid string) (*Location, error)
	GetLocationByID(ctx context.Context, id uint) (*Location, error)
	ListLocations(ctx context.Context) ([]*Location, error)
	ListLocationsByDevice(ctx context.Context, deviceUUID string) ([]*Location, error)
	ListLocationsPage(ctx context.Context, afterID uint, limit int) ([]*Location, error)
	CreateLocation(ctx context.Context, location *Location) (string, error)
	UpdateLocation(ctx context.Context, location *Location) error
	DeleteLocation(ctx context.Context, uuid string) error
}

// EntryStore provides filesystem entry and closure-table operations.
type EntryStore interface {
	GetEntry(ctx context.Context, uuid string) (*Entry, error)
	GetEntryByID(ctx context.Context, id uint) (*Entry, error)
	GetEntryByLocationAndName(ctx context.Context, locationID uint, parentID *uint, name string) (*Entry, error)
	GetEntryByInode(ctx context.Context, locationID uint, inode uint64) (*Entry, error)
	ListEntriesByLocation(ctx context.Context, locationID uint) ([]*Entry, error)
	ListEntriesByContentIdentity(ctx context.Context, contentIdentityID uint) ([]*Entry, error)
	ListEntriesPage(ctx context.Context, afterID uint, limit int) ([]*Entry, error)
	CreateEntry(ctx context.Context, entry *Entry) (string, error)
	UpdateEntry(ctx context.Context, entry *Entry) error
	DeleteEntry(ctx context.Context, id uint) error
	DeleteEntriesNotIn(ctx context.Context, locationID uint, seenIDs []uint) (int64, error)

	// Closure table operations
	InsertClosureRow(ctx context.Context, row *ClosureRow) error
	InsertClosureRows(ctx context.Context, rows []*ClosureRow) error
	GetAncestors(ctx context.Context, entryID uint) ([]*ClosureRow, error)
	GetDescendants(ctx context.Context, entryID uint) ([]*ClosureRow, error)
	DeleteClosureRowsForSubtree(ctx context.Context, entryIDs []uint) error
	GetDirectChildren(ctx context.Context, parentID uint) ([]*Entry, error)
}

// ContentIdentityStore provides CAS identity record CRUD and refcounting.
type ContentIdentityStore interface {
	GetContentIdentity(ctx context.Context, uuid string) (*ContentIdentity, error)
	GetContentIdentityByCasID(ctx context.Context, casID string) (*ContentIdentity, error)
	ListContentIdentitiesPage(ctx context.Context, afterID uint, limit int) ([]*ContentIdentity, error)
	CreateContentIdentity(ctx context.Context, ci *ContentIdentity) (string, error)
	IncrementRefCount(ctx context.Context, casID string) error
	DecrementRefCount(ctx context.Context, casID string) (refCount int, err error)
	DeleteContentIdentity(ctx context.Context, uuid string) error
}

// JobStore provides job scheduler persistence.
type JobStore interface {
	GetJob(ctx context.Context, id string) (*JobRecord, error)
	ListJobsByStatus(ctx context.Context, status JobStatus) ([]*JobRecord, error)
	ListActiveJobs(ctx context.Context) ([]*JobRecord, error)
	ListJobsByDedupHash(ctx context.Context, hash uint64) ([]*JobRecord, error)
	CreateJob(ctx context.Context, job *JobRecord) error
	UpdateJob(ctx context.Context, job *JobRecord) error
	DeleteJob(ctx context.Context, id string) error
}

// SyncCheckpointStore provides per-peer, per-resource-type backfill checkpoints.
type SyncCheckpointStore interface {
	GetCheckpoint(ctx context.Context, localDevice, peerDevice, resourceType string) (*SyncCheckpoint, error)
	UpsertCheckpoint(ctx context.Context, cp *SyncCheckpoint) error
	DeleteCheckpoint(ctx context.Context, localDevice, peerDevice, resourceType string) error
	ListCheckpointsForPeer(ctx context.Context, localDevice, peerDevice string) ([]*SyncCheckpoint, error)
}

// HealthStore provides store lifecycle operations.
type HealthStore interface {
	Healthcheck(ctx context.Context) error
	Close() error
}

// Store is the composite relational persistence interface implemented by GORMStore.
type Store interface {
	DeviceStore
	VolumeStore
	LocationStore
	EntryStore
	ContentIdentityStore
	JobStore
	SyncCheckpointStore
	HealthStore
}
