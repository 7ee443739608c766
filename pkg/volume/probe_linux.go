//go:build linux

package volume

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"

	"github.com/spacecore/spacecore/pkg/errors"
)

// LinuxProbe enumerates mounted volumes from /proc/mounts and enriches
// each with capacity and filesystem stats from gopsutil.
type LinuxProbe struct {
	DeviceUUID string
}

// NewLinuxProbe returns a Probe bound to the given device UUID, used as
// the first component of each discovered volume's fingerprint.
func NewLinuxProbe(deviceUUID string) *LinuxProbe {
	return &LinuxProbe{DeviceUUID: deviceUUID}
}

// NewDefaultProbe returns the platform's default Probe.
func NewDefaultProbe(deviceUUID string) Probe {
	return NewLinuxProbe(deviceUUID)
}

// pseudoFilesystems are mount sources that never correspond to a
// trackable physical or network volume.
var pseudoFilesystems = map[string]bool{
	"proc": true, "sysfs": true, "devtmpfs": true, "devpts": true,
	"tmpfs": true, "cgroup": true, "cgroup2": true, "overlay": true,
	"mqueue": true, "debugfs": true, "tracefs": true, "securityfs": true,
	"pstore": true, "bpf": true, "configfs": true, "autofs": true,
	"hugetlbfs": true, "fusectl": true, "rpc_pipefs": true, "nsfs": true,
}

func (p *LinuxProbe) Probe(ctx context.Context) ([]Volume, error) {
	mounts, err := readProcMounts()
	if err != nil {
		return nil, err
	}

	var volumes []Volume
	for _, m := range mounts {
		if pseudoFilesystems[m.fstype] {
			continue
		}
		select {
		case <-ctx.Done():
			return volumes, ctx.Err()
		default:
		}

		usage, err := disk.UsageWithContext(ctx, m.mountPoint)
		var total, avail uint64
		if err == nil {
			total, avail = usage.Total, usage.Free
		}

		name := displayName(m.mountPoint)
		fs := classifyFilesystem(m.fstype)
		vt := classifyVolumeType(m.mountPoint, m.fstype)
		volumes = append(volumes, Volume{
			Fingerprint:    Fingerprint(p.DeviceUUID, m.mountPoint, name),
			DeviceID:       p.DeviceUUID,
			Name:           name,
			MountPoint:     m.mountPoint,
			MountPoints:    []string{m.mountPoint},
			IsMounted:      true,
			DiskType:       classifyDiskType(m.source),
			Filesystem:     fs,
			VolumeType:     vt,
			ReadOnly:       hasOption(m.options, "ro"),
			TotalBytes:     total,
			AvailableBytes: avail,
		})
	}
	return volumes, nil
}

type mountEntry struct {
	source     string
	mountPoint string
	fstype     string
	options    []string
}

func readProcMounts() ([]mountEntry, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, errors.IOError("failed to read /proc/mounts", "/proc/mounts", false)
	}
	defer f.Close()

	var entries []mountEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		entries = append(entries, mountEntry{
			source:     fields[0],
			mountPoint: fields[1],
			fstype:     fields[2],
			options:    strings.Split(fields[3], ","),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IOError("failed to scan /proc/mounts", "/proc/mounts", false)
	}
	return entries, nil
}

func hasOption(options []string, want string) bool {
	for _, o := range options {
		if o == want {
			return true
		}
	}
	return false
}

func displayName(mountPoint string) string {
	if mountPoint == "/" {
		return "root"
	}
	idx := strings.LastIndex(strings.TrimRight(mountPoint, "/"), "/")
	if idx < 0 || idx == len(mountPoint)-1 {
		return mountPoint
	}
	return mountPoint[idx+1:]
}

func classifyFilesystem(fstype string) Filesystem {
	switch fstype {
	case "ext4", "ext3", "ext2":
		return FilesystemEXT4
	case "btrfs":
		return FilesystemBtrfs
	case "zfs":
		return FilesystemZFS
	case "vfat", "fat32":
		return FilesystemFAT32
	case "exfat":
		return FilesystemExFAT
	case "ntfs", "ntfs3", "fuseblk":
		return FilesystemNTFS
	default:
		return FilesystemOther
	}
}

func classifyVolumeType(mountPoint, fstype string) Type {
	switch {
	case mountPoint == "/":
		return TypePrimary
	case mountPoint == "/home" || strings.HasPrefix(mountPoint, "/home/"):
		return TypeUserData
	case fstype == "nfs" || fstype == "nfs4" || fstype == "cifs" || fstype == "smbfs":
		return TypeNetwork
	case strings.HasPrefix(mountPoint, "/media/") || strings.HasPrefix(mountPoint, "/run/media/") || strings.HasPrefix(mountPoint, "/mnt/"):
		return TypeExternal
	case strings.HasPrefix(mountPoint, "/boot") || strings.HasPrefix(mountPoint, "/snap/"):
		return TypeSystem
	default:
		return TypeSecondary
	}
}

// classifyDiskType best-efforts SSD-vs-HDD classification by reading the
// kernel's rotational flag for the backing block device. Unresolvable or
// non-block sources (network shares, overlay mounts) report Unknown.
func classifyDiskType(source string) DiskType {
	base := strings.TrimPrefix(source, "/dev/")
	if base == source {
		return DiskTypeUnknown
	}
	base = stripPartitionSuffix(base)

	data, err := os.ReadFile("/sys/block/" + base + "/queue/rotational")
	if err != nil {
		return DiskTypeUnknown
	}
	rotational, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return DiskTypeUnknown
	}
	if rotational == 1 {
		return DiskTypeHDD
	}
	return DiskTypeSSD
}

func stripPartitionSuffix(dev string) string {
	i := len(dev)
	for i > 0 && dev[i-1] >= '0' && dev[i-1] <= '9' {
		i--
	}
	if i == len(dev) {
		return dev
	}
	// Leave nvme0n1p3 -> nvme0n1, but sda1 -> sda.
	if strings.HasPrefix(dev, "nvme") && i > 0 && dev[i-1] == 'p' {
		return dev[:i-1]
	}
	if strings.HasPrefix(dev, "mmcblk") && i > 0 && dev[i-1] == 'p' {
		return dev[:i-1]
	}
	if strings.HasPrefix(dev, "nvme") || strings.HasPrefix(dev, "mmcblk") {
		return dev
	}
	return dev[:i]
}
