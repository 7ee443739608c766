package copyjob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spacecore/spacecore/pkg/identity"
	"github.com/spacecore/spacecore/pkg/job"
	"github.com/spacecore/spacecore/pkg/volume"
)

type fakeResolver struct {
	byDeviceAndPath map[string]string // deviceID+"\x00"+path -> local path
}

func (r *fakeResolver) ResolveLocal(ctx context.Context, p identity.SdPath) (string, error) {
	deviceID, path, err := p.AsPhysical()
	if err != nil {
		return "", err
	}
	if resolved, ok := r.byDeviceAndPath[deviceID+"\x00"+path]; ok {
		return resolved, nil
	}
	return path, nil
}

func testCheckpointer() *job.Checkpointer {
	return job.NewCheckpointer(1, 20, func() ([]byte, error) { return nil, nil }, nil, nil)
}

func TestJob_CopiesSingleFileAndReportsOutput(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "in.txt")
	dstPath := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(srcPath, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	resolver := &fakeResolver{byDeviceAndPath: map[string]string{
		"dev\x00src": srcPath,
		"dev\x00dst": dstPath,
	}}
	lookup := &fakeLookup{byPrefix: map[string]volume.Volume{
		dir: {Fingerprint: "fp", Filesystem: volume.FilesystemOther, DiskType: volume.DiskTypeUnknown},
	}}

	j := New(resolver, lookup, []identity.SdPath{identity.Physical("dev", "src")}, identity.Physical("dev", "dst"), Options{})

	ckpt := testCheckpointer()
	if err := j.Run(context.Background(), ckpt); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	out := j.Output()
	if out.CopiedCount != 1 {
		t.Errorf("expected 1 file copied, got %d", out.CopiedCount)
	}
	if out.FailedCount != 0 {
		t.Errorf("expected no failures, got %d: %+v", out.FailedCount, out.FailedCopies)
	}

	got, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("expected dest content %q, got %q", "payload", got)
	}
}

func TestJob_SkipsCompletedIndicesOnResume(t *testing.T) {
	dir := t.TempDir()
	src1 := filepath.Join(dir, "a.txt")
	src2 := filepath.Join(dir, "b.txt")
	dstDir := filepath.Join(dir, "out")
	if err := os.Mkdir(dstDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(src1, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src2, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolver := &fakeResolver{byDeviceAndPath: map[string]string{
		"dev\x00a":   src1,
		"dev\x00b":   src2,
		"dev\x00out": dstDir,
	}}
	lookup := &fakeLookup{byPrefix: map[string]volume.Volume{
		dir: {Fingerprint: "fp", Filesystem: volume.FilesystemOther, DiskType: volume.DiskTypeUnknown},
	}}

	j := New(resolver, lookup, []identity.SdPath{identity.Physical("dev", "a"), identity.Physical("dev", "b")}, identity.Physical("dev", "out"), Options{})

	// Simulate a resume where index 0 already completed: mark it directly
	// rather than round-tripping through JSON, since Serialize/Resume are
	// exercised separately in TestJob_SerializeResumeRoundTrip.
	j.completedIndices[0] = true

	ckpt := testCheckpointer()
	if err := j.Run(context.Background(), ckpt); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dstDir, "a.txt")); !os.IsNotExist(err) {
		t.Error("expected a.txt to be skipped, not copied")
	}
	if _, err := os.Stat(filepath.Join(dstDir, "b.txt")); err != nil {
		t.Error("expected b.txt to be copied")
	}
}

func TestJob_SerializeResumeRoundTrip(t *testing.T) {
	resolver := &fakeResolver{byDeviceAndPath: map[string]string{}}
	lookup := &fakeLookup{byPrefix: map[string]volume.Volume{}}

	j := New(resolver, lookup, []identity.SdPath{identity.Physical("dev", "a")}, identity.Physical("dev", "out"), Options{VerifyChecksum: true})
	j.completedIndices[0] = true

	state, err := j.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	restored := New(resolver, lookup, nil, identity.SdPath{}, Options{})
	if err := restored.Resume(state); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !restored.completedIndices[0] {
		t.Error("expected completed index 0 to survive round trip")
	}
	if !restored.Options.VerifyChecksum {
		t.Error("expected options to survive round trip")
	}
}

func TestJob_OverwriteFalseFailsWhenDestinationExists(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(src, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dst, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolver := &fakeResolver{byDeviceAndPath: map[string]string{"dev\x00a": src, "dev\x00b": dst}}
	lookup := &fakeLookup{byPrefix: map[string]volume.Volume{dir: {Fingerprint: "fp"}}}

	j := New(resolver, lookup, []identity.SdPath{identity.Physical("dev", "a")}, identity.Physical("dev", "b"), Options{Overwrite: false})

	ckpt := testCheckpointer()
	if err := j.Run(context.Background(), ckpt); err != nil {
		t.Fatalf("run should not itself error: %v", err)
	}
	out := j.Output()
	if out.FailedCount != 1 {
		t.Errorf("expected 1 failure for existing destination, got %d", out.FailedCount)
	}
}
