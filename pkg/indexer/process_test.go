//go:build integration

package indexer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spacecore/spacecore/pkg/store"
)

func TestProcessor_FirstRunCreatesRootAndChildren(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	ctx := context.Background()
	loc := createTestLocation(t, st, "first-run")

	root := "/data/loc"
	mtime := time.Now().Truncate(time.Second)
	detector, err := loadChangeDetector(ctx, st, loc, 0)
	if err != nil {
		t.Fatalf("load detector: %v", err)
	}
	proc := newProcessor(st, loc, detector, root, nil)

	batch := []DirEntry{
		{Path: root, Kind: store.EntryKindDirectory, Modified: mtime},
		{Path: filepath.Join(root, "a.txt"), Kind: store.EntryKindFile, Size: 12, Modified: mtime},
	}
	res, err := proc.processBatch(ctx, batch)
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if res.Created != 2 {
		t.Errorf("expected 2 created entries, got %d", res.Created)
	}
	if len(res.PendingContentID) != 1 {
		t.Errorf("expected 1 pending content id (the file), got %d", len(res.PendingContentID))
	}

	entries, err := st.ListEntriesByLocation(ctx, loc.ID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries persisted, got %d", len(entries))
	}
}

func TestProcessor_SecondRunDetectsModificationAndDeletesMissing(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	ctx := context.Background()
	loc := createTestLocation(t, st, "second-run")

	root := "/data/loc2"
	mtime := time.Now().Truncate(time.Second)

	detector, err := loadChangeDetector(ctx, st, loc, 0)
	if err != nil {
		t.Fatalf("load detector: %v", err)
	}
	proc := newProcessor(st, loc, detector, root, nil)
	firstBatch := []DirEntry{
		{Path: root, Kind: store.EntryKindDirectory, Modified: mtime},
		{Path: filepath.Join(root, "a.txt"), Kind: store.EntryKindFile, Size: 10, Modified: mtime},
		{Path: filepath.Join(root, "b.txt"), Kind: store.EntryKindFile, Size: 20, Modified: mtime},
	}
	if _, err := proc.processBatch(ctx, firstBatch); err != nil {
		t.Fatalf("first processBatch: %v", err)
	}
	if _, err := proc.finalize(ctx); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	loc, err = st.GetLocationByID(ctx, loc.ID)
	if err != nil {
		t.Fatalf("reload location: %v", err)
	}

	// Second run: a.txt's size changed, b.txt is gone.
	detector2, err := loadChangeDetector(ctx, st, loc, 0)
	if err != nil {
		t.Fatalf("load detector 2: %v", err)
	}
	proc2 := newProcessor(st, loc, detector2, root, nil)
	secondBatch := []DirEntry{
		{Path: root, Kind: store.EntryKindDirectory, Modified: mtime},
		{Path: filepath.Join(root, "a.txt"), Kind: store.EntryKindFile, Size: 99, Modified: mtime},
	}
	res, err := proc2.processBatch(ctx, secondBatch)
	if err != nil {
		t.Fatalf("second processBatch: %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("expected 1 updated entry, got %d", res.Updated)
	}

	deleted, err := proc2.finalize(ctx)
	if err != nil {
		t.Fatalf("finalize 2: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 entry deleted (b.txt), got %d", deleted)
	}

	entries, err := st.ListEntriesByLocation(ctx, loc.ID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 surviving entries (root, a.txt), got %d", len(entries))
	}
}
