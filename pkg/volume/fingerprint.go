package volume

import (
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Fingerprint computes a volume's stable identity as
// blake3(deviceUUID || mountPoint || name || len(mountPoint) || len(name)),
// with the two lengths appended as big-endian uint64 suffixes so that
// "ab"+"c" and "a"+"bc" never collide. Deterministic across process
// restarts and re-mounts of the same physical volume.
func Fingerprint(deviceUUID, mountPoint, name string) string {
	h := blake3.New(32, nil)
	h.Write([]byte(deviceUUID))
	h.Write([]byte(mountPoint))
	h.Write([]byte(name))

	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(mountPoint)))
	h.Write(lenBuf[:])
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(name)))
	h.Write(lenBuf[:])

	return hex.EncodeToString(h.Sum(nil))
}
