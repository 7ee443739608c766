//go:build integration

package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spacecore/spacecore/pkg/hash"
	"github.com/spacecore/spacecore/pkg/job"
)

func testCheckpointer(serialize func() ([]byte, error)) *job.Checkpointer {
	return job.NewCheckpointer(1, 20, serialize, nil, nil)
}

func TestJob_RunIndexesNewLocationEndToEnd(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	loc := createTestLocation(t, st, "e2e")

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write a.txt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatalf("write b.txt: %v", err)
	}

	j := New(st, loc.ID, loc.UUID, root, Options{SmallFileThreshold: hash.SmallFileThreshold})
	ckpt := testCheckpointer(j.Serialize)

	if err := j.Run(context.Background(), ckpt); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := j.Output()
	if out.Created != 4 {
		t.Errorf("expected 4 created entries (root, sub, a.txt, b.txt), got %d", out.Created)
	}
	if len(out.Errors) != 0 {
		t.Errorf("expected no errors, got %v", out.Errors)
	}

	entries, err := st.ListEntriesByLocation(context.Background(), loc.ID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 persisted entries, got %d", len(entries))
	}
}

func TestJob_SecondRunIsIdempotentAndDetectsNoChanges(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	loc := createTestLocation(t, st, "idempotent")

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write a.txt: %v", err)
	}

	opts := Options{SmallFileThreshold: hash.SmallFileThreshold}

	j1 := New(st, loc.ID, loc.UUID, root, opts)
	if err := j1.Run(context.Background(), testCheckpointer(j1.Serialize)); err != nil {
		t.Fatalf("first run: %v", err)
	}

	loc2, err := st.GetLocationByID(context.Background(), loc.ID)
	if err != nil {
		t.Fatalf("reload location: %v", err)
	}

	j2 := New(st, loc2.ID, loc2.UUID, root, opts)
	if err := j2.Run(context.Background(), testCheckpointer(j2.Serialize)); err != nil {
		t.Fatalf("second run: %v", err)
	}

	out := j2.Output()
	if out.Created != 0 {
		t.Errorf("expected 0 newly created entries on an unchanged re-index, got %d", out.Created)
	}
	if out.Unchanged != 2 {
		t.Errorf("expected 2 unchanged entries (root, a.txt), got %d", out.Unchanged)
	}
}

func TestJob_SerializeResumeRoundTripsMidRun(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	loc := createTestLocation(t, st, "resume")

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write a.txt: %v", err)
	}

	j := New(st, loc.ID, loc.UUID, root, Options{SmallFileThreshold: hash.SmallFileThreshold})
	ckpt := testCheckpointer(j.Serialize)

	// Run just the Walk phase, then simulate a pause by serializing and
	// restoring into a fresh Job.
	if err := j.runWalk(context.Background(), ckpt); err != nil {
		t.Fatalf("walk: %v", err)
	}
	j.currentPhase = phaseProcess

	state, err := j.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	resumed := New(st, 0, "", "", Options{})
	if err := resumed.Resume(state); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.currentPhase != phaseProcess {
		t.Errorf("expected resumed job to be in the process phase, got %v", resumed.currentPhase)
	}
	if len(resumed.batches) == 0 {
		t.Errorf("expected walked batches to survive the round trip")
	}

	if err := resumed.Run(context.Background(), testCheckpointer(resumed.Serialize)); err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if resumed.Output().Created != 2 {
		t.Errorf("expected 2 created entries after resuming, got %d", resumed.Output().Created)
	}
}
