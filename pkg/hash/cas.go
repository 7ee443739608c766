// Package hash computes and verifies content-addressed identifiers (CAS-IDs)
// for indexed files, using BLAKE3 across three schemes selected by file size
// and persistence state.
package hash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"lukechampine.com/blake3"

	"github.com/spacecore/spacecore/pkg/errors"
)

// Scheme selects how a CAS-ID is derived from a file's content.
type Scheme string

const (
	// SchemeFull hashes the entire file. Used when size <= SmallFileThreshold.
	SchemeFull Scheme = "full"

	// SchemeSampled hashes three fixed-size samples (start, middle, end) plus
	// the declared file size. Used for files above SmallFileThreshold.
	SchemeSampled Scheme = "sampled"

	// SchemeContent hashes an in-memory buffer for content not yet persisted
	// to disk (e.g. a file being staged before write).
	SchemeContent Scheme = "content"
)

// Version is the current CAS-ID scheme version, embedded in every identifier.
const Version = 1

// SmallFileThreshold is the default size boundary between the full and
// sampled schemes. Overridable via IndexerConfig.SmallFileThreshold.
const SmallFileThreshold = 128 * 1024 // 128 KiB

const (
	sampleSize  = 16 * 1024 // bytes read from each of start/middle/end
	readBufSize = 64 * 1024
)

// ID is a parsed CAS identifier: v<version>_<scheme>:<hex digest>.
type ID struct {
	Version int
	Scheme  Scheme
	Digest  string // lowercase hex
}

// String renders the canonical CAS-ID representation.
func (id ID) String() string {
	return fmt.Sprintf("v%d_%s:%s", id.Version, id.Scheme, id.Digest)
}

// Parse decodes a CAS-ID string into its components.
func Parse(s string) (ID, error) {
	prefix, digest, ok := strings.Cut(s, ":")
	if !ok {
		return ID{}, errors.InvalidArgument("malformed cas id: missing ':' separator")
	}
	versionPart, schemePart, ok := strings.Cut(prefix, "_")
	if !ok || !strings.HasPrefix(versionPart, "v") {
		return ID{}, errors.InvalidArgument("malformed cas id: missing version/scheme prefix")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(versionPart, "v"))
	if err != nil {
		return ID{}, errors.InvalidArgument("malformed cas id: non-numeric version")
	}
	scheme := Scheme(schemePart)
	switch scheme {
	case SchemeFull, SchemeSampled, SchemeContent:
	default:
		return ID{}, errors.InvalidArgument("malformed cas id: unknown scheme " + schemePart)
	}
	return ID{Version: version, Scheme: scheme, Digest: strings.ToLower(digest)}, nil
}

// HashFile computes the CAS-ID for a file on disk, selecting the full or
// sampled scheme based on its size relative to threshold.
func HashFile(path string, threshold uint64) (ID, error) {
	f, err := os.Open(path)
	if err != nil {
		return ID{}, errors.IOError("failed to open file for hashing", path, isTransient(err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ID{}, errors.IOError("failed to stat file for hashing", path, isTransient(err))
	}

	size := uint64(info.Size())
	if size <= threshold {
		return hashFull(f, path)
	}
	return hashSampled(f, size, path)
}

// HashBuffer computes a SchemeContent CAS-ID over an in-memory buffer, for
// content that has not yet been persisted to disk.
func HashBuffer(buf []byte) ID {
	sum := blake3.Sum256(buf)
	return ID{Version: Version, Scheme: SchemeContent, Digest: hex.EncodeToString(sum[:])}
}

func hashFull(r io.Reader, path string) (ID, error) {
	h := blake3.New(32, nil)
	buf := make([]byte, readBufSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return ID{}, errors.IOError("failed to read file for hashing", path, isTransient(err))
	}
	return ID{Version: Version, Scheme: SchemeFull, Digest: hex.EncodeToString(h.Sum(nil))}, nil
}

// hashSampled hashes three fixed-size samples (start, middle, end) plus the
// file's declared size as big-endian bytes.
func hashSampled(f *os.File, size uint64, path string) (ID, error) {
	h := blake3.New(32, nil)

	readAt := func(offset int64, n int) error {
		buf := make([]byte, n)
		read, err := f.ReadAt(buf, offset)
		if err != nil && err != io.EOF {
			return err
		}
		_, werr := h.Write(buf[:read])
		return werr
	}

	n := sampleSize
	if uint64(n) > size {
		n = int(size)
	}
	if err := readAt(0, n); err != nil {
		return ID{}, errors.IOError("failed to read start sample", path, isTransient(err))
	}

	mid := int64(size)/2 - int64(n)/2
	if mid < 0 {
		mid = 0
	}
	if err := readAt(mid, n); err != nil {
		return ID{}, errors.IOError("failed to read middle sample", path, isTransient(err))
	}

	end := int64(size) - int64(n)
	if end < 0 {
		end = 0
	}
	if err := readAt(end, n); err != nil {
		return ID{}, errors.IOError("failed to read end sample", path, isTransient(err))
	}

	var sizeBytes [8]byte
	for i := 0; i < 8; i++ {
		sizeBytes[7-i] = byte(size >> (8 * i))
	}
	if _, err := h.Write(sizeBytes[:]); err != nil {
		return ID{}, errors.IOError("failed to hash size suffix", path, false)
	}

	return ID{Version: Version, Scheme: SchemeSampled, Digest: hex.EncodeToString(h.Sum(nil))}, nil
}

// Verify re-derives the CAS-ID for path and compares it against expected.
// Sampled IDs can only be verified if recomputed with the same threshold
// decision that produced them; callers should prefer full-scheme
// verification for integrity-critical checks (e.g. post-copy verify).
func Verify(path string, expected ID, threshold uint64) (bool, error) {
	var got ID
	var err error
	switch expected.Scheme {
	case SchemeFull:
		f, oerr := os.Open(path)
		if oerr != nil {
			return false, errors.IOError("failed to open file for verification", path, isTransient(oerr))
		}
		defer f.Close()
		got, err = hashFull(f, path)
	case SchemeSampled:
		got, err = HashFile(path, 0) // force sampled regardless of threshold
	default:
		return false, errors.InvalidArgument("cannot verify a content-scheme cas id against disk")
	}
	if err != nil {
		return false, err
	}
	return got.Digest == expected.Digest, nil
}

func isTransient(err error) bool {
	return os.IsTimeout(err)
}
