//go:build integration

package indexer

import (
	"context"
	"testing"

	"github.com/spacecore/spacecore/pkg/store"
)

func TestRunAggregate_SumsSizesBottomUp(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	ctx := context.Background()
	loc := createTestLocation(t, st, "agg")

	root := &store.Entry{LocationID: loc.ID, Name: "root", Kind: store.EntryKindDirectory}
	if _, err := st.CreateEntry(ctx, root); err != nil {
		t.Fatalf("create root: %v", err)
	}
	loc.EntryID = &root.ID
	if err := st.UpdateLocation(ctx, loc); err != nil {
		t.Fatalf("update location: %v", err)
	}

	sub := &store.Entry{LocationID: loc.ID, Name: "sub", Kind: store.EntryKindDirectory, ParentID: &root.ID}
	if _, err := st.CreateEntry(ctx, sub); err != nil {
		t.Fatalf("create sub: %v", err)
	}
	fileA := &store.Entry{LocationID: loc.ID, Name: "a.txt", Kind: store.EntryKindFile, Size: 100, ParentID: &root.ID}
	if _, err := st.CreateEntry(ctx, fileA); err != nil {
		t.Fatalf("create a.txt: %v", err)
	}
	fileB := &store.Entry{LocationID: loc.ID, Name: "b.txt", Kind: store.EntryKindFile, Size: 50, ParentID: &sub.ID}
	if _, err := st.CreateEntry(ctx, fileB); err != nil {
		t.Fatalf("create b.txt: %v", err)
	}

	if err := runAggregate(ctx, st, loc); err != nil {
		t.Fatalf("runAggregate: %v", err)
	}

	gotSub, err := st.GetEntryByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get sub: %v", err)
	}
	if gotSub.AggregateSize != 50 || gotSub.FileCount != 1 {
		t.Errorf("expected sub aggregate size 50 / file count 1, got %d / %d", gotSub.AggregateSize, gotSub.FileCount)
	}

	gotRoot, err := st.GetEntryByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	if gotRoot.AggregateSize != 150 {
		t.Errorf("expected root aggregate size 150, got %d", gotRoot.AggregateSize)
	}
	if gotRoot.FileCount != 2 {
		t.Errorf("expected root file count 2, got %d", gotRoot.FileCount)
	}
	if gotRoot.ChildCount != 3 {
		t.Errorf("expected root child count 3 (sub, a.txt, b.txt), got %d", gotRoot.ChildCount)
	}

	gotLoc, err := st.GetLocationByID(ctx, loc.ID)
	if err != nil {
		t.Fatalf("get location: %v", err)
	}
	if gotLoc.TotalBytes != 150 {
		t.Errorf("expected location total bytes 150, got %d", gotLoc.TotalBytes)
	}
	if gotLoc.TotalFileCount != 2 {
		t.Errorf("expected location total file count 2, got %d", gotLoc.TotalFileCount)
	}
}
