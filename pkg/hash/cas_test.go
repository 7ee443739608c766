package hash

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestHashFile_FullSchemeIsDeterministic(t *testing.T) {
	path := writeTempFile(t, []byte("hello spacecore"))

	id1, err := HashFile(path, SmallFileThreshold)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	id2, err := HashFile(path, SmallFileThreshold)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if id1.Scheme != SchemeFull {
		t.Errorf("expected full scheme for small file, got %s", id1.Scheme)
	}
	if id1.Digest != id2.Digest {
		t.Errorf("expected identical digests for identical content, got %q and %q", id1.Digest, id2.Digest)
	}
}

func TestHashFile_DifferentContentDifferentDigest(t *testing.T) {
	path1 := writeTempFile(t, []byte("content A"))
	path2 := writeTempFile(t, []byte("content B"))

	id1, err := HashFile(path1, SmallFileThreshold)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	id2, err := HashFile(path2, SmallFileThreshold)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if id1.Digest == id2.Digest {
		t.Error("expected different digests for different content")
	}
}

func TestHashFile_SampledSchemeForLargeFiles(t *testing.T) {
	big := make([]byte, 256*1024)
	for i := range big {
		big[i] = byte(i % 251)
	}
	path := writeTempFile(t, big)

	id, err := HashFile(path, 128*1024)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if id.Scheme != SchemeSampled {
		t.Errorf("expected sampled scheme for large file, got %s", id.Scheme)
	}
}

func TestHashBuffer_ContentScheme(t *testing.T) {
	id := HashBuffer([]byte("staged content"))
	if id.Scheme != SchemeContent {
		t.Errorf("expected content scheme, got %s", id.Scheme)
	}
	if id.Digest == "" {
		t.Error("expected non-empty digest")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	id := ID{Version: 1, Scheme: SchemeFull, Digest: "deadbeef"}
	parsed, err := Parse(id.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed != id {
		t.Errorf("expected round-trip to produce %+v, got %+v", id, parsed)
	}
}

func TestParse_RejectsMalformed(t *testing.T) {
	cases := []string{
		"not-a-cas-id",
		"v1_full", // missing colon
		"vX_full:deadbeef",
		"v1_unknown:deadbeef",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("expected error parsing %q", c)
		}
	}
}

func TestVerify_FullSchemeRoundTrip(t *testing.T) {
	path := writeTempFile(t, []byte("verify me"))

	id, err := HashFile(path, SmallFileThreshold)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	ok, err := Verify(path, id, SmallFileThreshold)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Error("expected verification to succeed for unmodified file")
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	path := writeTempFile(t, []byte("original content"))

	id, err := HashFile(path, SmallFileThreshold)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("tampered content"), 0644); err != nil {
		t.Fatalf("failed to tamper with file: %v", err)
	}

	ok, err := Verify(path, id, SmallFileThreshold)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Error("expected verification to fail after tampering")
	}
}
