// Package copyjob implements the file copy/move job: a strategy router
// picks reflink, local rename, or a chunked stream copy per source file,
// based on whether source and destination share a volume or device.
package copyjob

import (
	"context"
	"io"
	"os"

	"github.com/spacecore/spacecore/pkg/volume"
)

// chunk sizes for the stream-copy fallback, selected by the source
// volume's disk type.
const (
	chunkSizeSSD     = 1 << 20 // 1 MiB
	chunkSizeHDD     = 256 << 10
	chunkSizeUnknown = 64 << 10
)

// VolumeLookup resolves a local filesystem path to the volume that
// contains it, used by the router to decide same-volume eligibility.
type VolumeLookup interface {
	VolumeForPath(path string) (volume.Volume, bool)
}

// strategyKind names the selected strategy, used only for progress
// reporting ("current_operation").
type strategyKind string

const (
	strategyReflink strategyKind = "reflink"
	strategyRename  strategyKind = "rename"
	strategyStream  strategyKind = "stream-copy"
)

// plan is the router's decision for a single source file.
type plan struct {
	kind      strategyKind
	chunkSize int
}

// route selects a copy strategy for one (source, destination) pair.
// isMove indicates a move operation: same-device-and-volume moves use a
// local rename instead of a physical copy.
func route(lookup VolumeLookup, source, destination string, isMove bool) plan {
	srcVol, srcOK := lookup.VolumeForPath(source)
	dstVol, dstOK := lookup.VolumeForPath(destination)
	sameVolume := srcOK && dstOK && srcVol.Fingerprint == dstVol.Fingerprint

	if isMove && sameVolume {
		return plan{kind: strategyRename}
	}
	if sameVolume && srcVol.Filesystem.SupportsReflink() {
		return plan{kind: strategyReflink}
	}
	return plan{kind: strategyStream, chunkSize: chunkSizeFor(srcVol, srcOK)}
}

func chunkSizeFor(v volume.Volume, ok bool) int {
	if !ok {
		return chunkSizeUnknown
	}
	switch v.DiskType {
	case volume.DiskTypeSSD:
		return chunkSizeSSD
	case volume.DiskTypeHDD:
		return chunkSizeHDD
	default:
		return chunkSizeUnknown
	}
}

// execute runs the selected strategy, returning the number of bytes
// written. reflink falls back to a stream copy when the platform ioctl is
// unavailable or fails (e.g. cross-filesystem edge cases the router
// couldn't detect).
func (p plan) execute(ctx context.Context, source, destination string, progress func(n int64)) (int64, error) {
	switch p.kind {
	case strategyRename:
		return renameStrategy(source, destination)
	case strategyReflink:
		n, err := reflinkStrategy(source, destination)
		if err != nil {
			return streamCopy(ctx, source, destination, chunkSizeUnknown, progress)
		}
		return n, nil
	default:
		return streamCopy(ctx, source, destination, p.chunkSize, progress)
	}
}

func renameStrategy(source, destination string) (int64, error) {
	info, err := os.Stat(source)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(source, destination); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func streamCopy(ctx context.Context, source, destination string, chunkSize int, progress func(n int64)) (int64, error) {
	src, err := os.Open(source)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(destination)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	buf := make([]byte, chunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			written, writeErr := dst.Write(buf[:n])
			total += int64(written)
			if progress != nil {
				progress(int64(written))
			}
			if writeErr != nil {
				return total, writeErr
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, readErr
		}
	}
	if err := dst.Sync(); err != nil {
		return total, err
	}
	return total, nil
}
