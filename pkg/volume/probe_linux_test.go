//go:build linux

package volume

import "testing"

func TestClassifyFilesystem(t *testing.T) {
	cases := map[string]Filesystem{
		"ext4":  FilesystemEXT4,
		"btrfs": FilesystemBtrfs,
		"vfat":  FilesystemFAT32,
		"ntfs3": FilesystemNTFS,
		"tmpfs": FilesystemOther,
	}
	for fstype, want := range cases {
		if got := classifyFilesystem(fstype); got != want {
			t.Errorf("classifyFilesystem(%q) = %q, want %q", fstype, got, want)
		}
	}
}

func TestClassifyVolumeType(t *testing.T) {
	cases := []struct {
		mountPoint, fstype string
		want               Type
	}{
		{"/", "ext4", TypePrimary},
		{"/home", "ext4", TypeUserData},
		{"/mnt/backup", "ext4", TypeExternal},
		{"/data", "nfs", TypeNetwork},
		{"/boot/efi", "vfat", TypeSystem},
		{"/srv/data", "ext4", TypeSecondary},
	}
	for _, c := range cases {
		if got := classifyVolumeType(c.mountPoint, c.fstype); got != c.want {
			t.Errorf("classifyVolumeType(%q, %q) = %q, want %q", c.mountPoint, c.fstype, got, c.want)
		}
	}
}

func TestStripPartitionSuffix(t *testing.T) {
	cases := map[string]string{
		"sda1":      "sda",
		"sda":       "sda",
		"nvme0n1p3": "nvme0n1",
		"nvme0n1":   "nvme0n1",
		"mmcblk0p1": "mmcblk0",
	}
	for dev, want := range cases {
		if got := stripPartitionSuffix(dev); got != want {
			t.Errorf("stripPartitionSuffix(%q) = %q, want %q", dev, got, want)
		}
	}
}
