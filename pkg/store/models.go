package store

import "time"

// EntryKind classifies a filesystem entry.
type EntryKind string

const (
	EntryKindFile      EntryKind = "file"
	EntryKindDirectory EntryKind = "directory"
	EntryKindSymlink   EntryKind = "symlink"
)

// IndexMode selects how deeply a location is indexed.
type IndexMode string

const (
	IndexModeShallow IndexMode = "shallow"
	IndexModeQuick   IndexMode = "quick"
	IndexModeContent IndexMode = "content"
	IndexModeDeep    IndexMode = "deep"
	IndexModeFull    IndexMode = "full"
)

// ScanState is a location's current index run state.
type ScanState string

const (
	ScanStatePending   ScanState = "pending"
	ScanStateRunning   ScanState = "running"
	ScanStateCompleted ScanState = "completed"
	ScanStateFailed    ScanState = "failed"
)

// JobStatus is a job record's lifecycle state.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// MediaKind classifies a content identity's file type for display.
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindAudio    MediaKind = "audio"
	MediaKindDocument MediaKind = "document"
	MediaKindUnknown  MediaKind = "unknown"
)

// Device is a paired or local spacecore instance.
type Device struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UUID       string `gorm:"uniqueIndex;size:36;not null"`
	Name       string `gorm:"not null"`
	Slug       string `gorm:"uniqueIndex;not null"`
	PublicKey  []byte `gorm:"not null"`
	IsLocal    bool   `gorm:"not null;default:false"`
	LastSyncAt *time.Time
	PairedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Volume is a tracked physical or logical storage volume on a device.
type Volume struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	UUID            string `gorm:"uniqueIndex;size:36;not null"`
	DeviceID        uint   `gorm:"not null;index"`
	Fingerprint     string `gorm:"uniqueIndex;not null"`
	MountPoint      string `gorm:"not null"`
	Name            string
	TotalBytes      uint64
	AvailableBytes  uint64
	DiskType        string `gorm:"size:16"` // SSD, HDD, Unknown
	Filesystem      string `gorm:"size:16"` // APFS, NTFS, EXT4, Btrfs, ZFS, ReFS, ExFAT, FAT32, Other
	VolumeType      string `gorm:"size:16"` // Primary, External, Secondary, System, Network, UserData, Unknown
	ReadOnly        bool   `gorm:"not null;default:false"`
	ReadSpeedMBps   *float64
	WriteSpeedMBps  *float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ContentIdentity is a deduplicated content-addressed record shared by entries.
type ContentIdentity struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	UUID         string    `gorm:"uniqueIndex;size:36;not null"`
	CasID        string    `gorm:"uniqueIndex;not null"` // v<version>_<scheme>:<hex>
	RefCount     int       `gorm:"not null;default:0"`
	TotalSize    uint64    `gorm:"not null"`
	MediaKind    MediaKind `gorm:"size:16;not null;default:unknown"`
	MimeType     string
	MetadataJSON string `gorm:"type:text"` // dimensions, duration, EXIF, serialized
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Location is a registered, managed root path on a device.
type Location struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	UUID            string `gorm:"uniqueIndex;size:36;not null"`
	DeviceID        uint   `gorm:"not null;index"`
	EntryID         *uint  `gorm:"index"` // the root entry, nil until first index
	Name            string `gorm:"not null"`
	IndexMode       IndexMode `gorm:"size:16;not null;default:shallow"`
	ScanState       ScanState `gorm:"size:16;not null;default:pending"`
	LastScanAt      *time.Time
	TotalFileCount  uint64
	TotalBytes      uint64
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Entry is a single filesystem object indexed under a location.
type Entry struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	UUID            string    `gorm:"uniqueIndex;size:36;not null"`
	LocationID      uint      `gorm:"not null;index:idx_entries_location_name"`
	Name            string    `gorm:"not null;index:idx_entries_location_name"`
	Kind            EntryKind `gorm:"size:16;not null"`
	Extension       string    `gorm:"size:32"`
	Size            uint64
	AggregateSize   uint64
	ChildCount      uint64
	FileCount       uint64
	CreatedAtFs     time.Time
	ModifiedAtFs    time.Time
	AccessedAtFs    time.Time
	Permissions     uint32
	Inode           *uint64 `gorm:"index"`
	ParentID        *uint   `gorm:"index"`
	ContentIdentityID *uint `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ClosureRow is an (ancestor, descendant, depth) triple in an entry's
// transitive-closure tree. (E, E, 0) always exists for every entry.
type ClosureRow struct {
	AncestorID   uint `gorm:"primaryKey;autoIncrement:false"`
	DescendantID uint `gorm:"primaryKey;autoIncrement:false"`
	Depth        int  `gorm:"not null"`
}

func (ClosureRow) TableName() string { return "entry_closure" }

// JobRecord is a persisted job scheduler entry.
type JobRecord struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Name          string    `gorm:"not null;index"`
	Status        JobStatus `gorm:"size:16;not null;index"`
	Progress      float64   `gorm:"not null;default:0"`
	StateBlob     []byte    `gorm:"type:blob"`
	DedupHash     uint64    `gorm:"index"`
	ErrorMessage  string
	ParentID      *string    `gorm:"size:36;index"`
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// SyncCheckpoint tracks per-resource-type backfill progress between a local
// device and a peer. Primary key is (local_device, peer_device, resource_type).
type SyncCheckpoint struct {
	LocalDevice    string `gorm:"primaryKey;size:36"`
	PeerDevice     string `gorm:"primaryKey;size:36"`
	ResourceType   string `gorm:"primaryKey;size:32"`
	ResumeToken    string
	LastWatermark  string
	RecordsSynced  uint64 `gorm:"not null;default:0"`
	StartedAt      time.Time
	UpdatedAt      time.Time
}

// AllModels returns every model for AutoMigrate, in an order that satisfies
// foreign-key creation (devices and content-identities before their
// dependents).
func AllModels() []interface{} {
	return []interface{}{
		&Device{},
		&Volume{},
		&ContentIdentity{},
		&Location{},
		&Entry{},
		&ClosureRow{},
		&JobRecord{},
		&SyncCheckpoint{},
	}
}
