// Package volume discovers, fingerprints, and classifies storage volumes.
package volume

// DiskType classifies the underlying storage medium.
type DiskType string

const (
	DiskTypeSSD     DiskType = "SSD"
	DiskTypeHDD     DiskType = "HDD"
	DiskTypeUnknown DiskType = "Unknown"
)

// Filesystem identifies the on-disk filesystem format.
type Filesystem string

const (
	FilesystemAPFS    Filesystem = "APFS"
	FilesystemNTFS    Filesystem = "NTFS"
	FilesystemEXT4    Filesystem = "EXT4"
	FilesystemBtrfs   Filesystem = "Btrfs"
	FilesystemZFS     Filesystem = "ZFS"
	FilesystemReFS    Filesystem = "ReFS"
	FilesystemExFAT   Filesystem = "ExFAT"
	FilesystemFAT32   Filesystem = "FAT32"
	FilesystemOther   Filesystem = "Other"
)

// SupportsReflink reports whether the filesystem supports copy-on-write
// reflink clones (used by the job system's strategy router).
func (f Filesystem) SupportsReflink() bool {
	switch f {
	case FilesystemAPFS, FilesystemBtrfs, FilesystemZFS:
		return true
	default:
		return false
	}
}

// SupportsSendfile reports whether the filesystem is expected to benefit
// from sendfile/copy_file_range style kernel-assisted copies.
func (f Filesystem) SupportsSendfile() bool {
	switch f {
	case FilesystemEXT4, FilesystemBtrfs, FilesystemZFS:
		return true
	default:
		return false
	}
}

// Type classifies a volume's role for UX and auto-tracking decisions.
type Type string

const (
	TypePrimary  Type = "Primary"
	TypeExternal Type = "External"
	TypeSecondary Type = "Secondary"
	TypeSystem   Type = "System"
	TypeNetwork  Type = "Network"
	TypeUserData Type = "UserData"
	TypeUnknown  Type = "Unknown"
)

// AutoTrackByDefault reports whether a volume of this type should be
// tracked without requiring explicit user action.
func (t Type) AutoTrackByDefault() bool {
	switch t {
	case TypePrimary, TypeUserData, TypeExternal, TypeSecondary, TypeNetwork:
		return true
	default:
		return false
	}
}

// ShowByDefault reports whether a volume of this type should appear in the
// default `volume list` view.
func (t Type) ShowByDefault() bool {
	return t != TypeSystem && t != TypeUnknown
}

// Volume is a discovered storage volume, physical or network-attached.
type Volume struct {
	Fingerprint    string
	DeviceID       string
	Name           string
	MountPoint     string
	MountPoints    []string
	IsMounted      bool
	DiskType       DiskType
	Filesystem     Filesystem
	VolumeType     Type
	ReadOnly       bool
	TotalBytes     uint64
	AvailableBytes uint64
	ReadSpeedMBps  *float64
	WriteSpeedMBps *float64
}
