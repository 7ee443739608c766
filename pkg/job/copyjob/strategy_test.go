package copyjob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spacecore/spacecore/pkg/volume"
)

type fakeLookup struct {
	byPrefix map[string]volume.Volume
}

func (f *fakeLookup) VolumeForPath(path string) (volume.Volume, bool) {
	var best volume.Volume
	bestLen := -1
	for prefix, v := range f.byPrefix {
		if len(prefix) > bestLen && len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			best, bestLen = v, len(prefix)
		}
	}
	return best, bestLen >= 0
}

func TestRoute_SameVolumeReflinkCapableFilesystem(t *testing.T) {
	lookup := &fakeLookup{byPrefix: map[string]volume.Volume{
		"/mnt/a": {Fingerprint: "fp1", Filesystem: volume.FilesystemBtrfs},
	}}
	p := route(lookup, "/mnt/a/x", "/mnt/a/y", false)
	if p.kind != strategyReflink {
		t.Errorf("expected reflink strategy, got %s", p.kind)
	}
}

func TestRoute_SameVolumeMoveUsesRename(t *testing.T) {
	lookup := &fakeLookup{byPrefix: map[string]volume.Volume{
		"/mnt/a": {Fingerprint: "fp1", Filesystem: volume.FilesystemBtrfs},
	}}
	p := route(lookup, "/mnt/a/x", "/mnt/a/y", true)
	if p.kind != strategyRename {
		t.Errorf("expected rename strategy for same-volume move, got %s", p.kind)
	}
}

func TestRoute_DifferentVolumesFallsBackToStreamCopy(t *testing.T) {
	lookup := &fakeLookup{byPrefix: map[string]volume.Volume{
		"/mnt/a": {Fingerprint: "fp1", Filesystem: volume.FilesystemBtrfs, DiskType: volume.DiskTypeSSD},
		"/mnt/b": {Fingerprint: "fp2", Filesystem: volume.FilesystemExFAT, DiskType: volume.DiskTypeHDD},
	}}
	p := route(lookup, "/mnt/a/x", "/mnt/b/y", false)
	if p.kind != strategyStream {
		t.Errorf("expected stream copy across volumes, got %s", p.kind)
	}
	if p.chunkSize != chunkSizeSSD {
		t.Errorf("expected chunk size to follow source disk type (SSD), got %d", p.chunkSize)
	}
}

func TestRoute_NonReflinkFilesystemFallsBackToStreamCopy(t *testing.T) {
	lookup := &fakeLookup{byPrefix: map[string]volume.Volume{
		"/mnt/a": {Fingerprint: "fp1", Filesystem: volume.FilesystemFAT32, DiskType: volume.DiskTypeHDD},
	}}
	p := route(lookup, "/mnt/a/x", "/mnt/a/y", false)
	if p.kind != strategyStream {
		t.Errorf("expected stream copy for a filesystem without reflink support, got %s", p.kind)
	}
	if p.chunkSize != chunkSizeHDD {
		t.Errorf("expected HDD chunk size, got %d", p.chunkSize)
	}
}

func TestStreamCopy_CopiesContentAndReportsProgress(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.bin")
	dst := filepath.Join(dir, "dest.bin")
	content := make([]byte, 10*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	var reported int64
	n, err := streamCopy(context.Background(), src, dst, 1024, func(delta int64) { reported += delta })
	if err != nil {
		t.Fatalf("streamCopy failed: %v", err)
	}
	if n != int64(len(content)) {
		t.Errorf("expected %d bytes copied, got %d", len(content), n)
	}
	if reported != int64(len(content)) {
		t.Errorf("expected progress to report %d bytes total, got %d", len(content), reported)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != string(content) {
		t.Error("destination content does not match source")
	}
}

func TestRenameStrategy_MovesFileWithinSameVolume(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	n, err := renameStrategy(src, dst)
	if err != nil {
		t.Fatalf("renameStrategy failed: %v", err)
	}
	if n != 5 {
		t.Errorf("expected size 5, got %d", n)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("expected source to no longer exist after rename")
	}
	if _, err := os.Stat(dst); err != nil {
		t.Error("expected destination to exist after rename")
	}
}
