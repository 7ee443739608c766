//go:build integration

package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/spacecore/spacecore/pkg/store"
)

func inodePtr(i uint64) *uint64 { return &i }

func TestLoadChangeDetector_EmptyLocationYieldsEmptyMaps(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	loc := createTestLocation(t, st, "empty")

	cd, err := loadChangeDetector(context.Background(), st, loc, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cd.byPath) != 0 || len(cd.byInode) != 0 {
		t.Errorf("expected empty maps for a never-indexed location")
	}
}

func TestClassify_Unchanged(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	ctx := context.Background()
	loc := createTestLocation(t, st, "unchanged")

	mtime := time.Now().Truncate(time.Second)
	root := &store.Entry{LocationID: loc.ID, Name: "root", Kind: store.EntryKindDirectory, ModifiedAtFs: mtime}
	if _, err := st.CreateEntry(ctx, root); err != nil {
		t.Fatalf("create root: %v", err)
	}
	loc.EntryID = &root.ID
	if err := st.UpdateLocation(ctx, loc); err != nil {
		t.Fatalf("update location: %v", err)
	}
	file := &store.Entry{LocationID: loc.ID, Name: "a.txt", Kind: store.EntryKindFile, Size: 10, ModifiedAtFs: mtime, ParentID: &root.ID}
	if _, err := st.CreateEntry(ctx, file); err != nil {
		t.Fatalf("create file: %v", err)
	}

	cd, err := loadChangeDetector(ctx, st, loc, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	kind, existing, _ := cd.classify("a.txt", DirEntry{Size: 10, Modified: mtime})
	if kind != changeUnchanged {
		t.Errorf("expected changeUnchanged, got %v", kind)
	}
	if existing.id != file.ID {
		t.Errorf("expected existing entry id %d, got %d", file.ID, existing.id)
	}
}

func TestClassify_Modified(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	ctx := context.Background()
	loc := createTestLocation(t, st, "modified")

	mtime := time.Now().Truncate(time.Second)
	root := &store.Entry{LocationID: loc.ID, Name: "root", Kind: store.EntryKindDirectory}
	if _, err := st.CreateEntry(ctx, root); err != nil {
		t.Fatalf("create root: %v", err)
	}
	file := &store.Entry{LocationID: loc.ID, Name: "a.txt", Kind: store.EntryKindFile, Size: 10, ModifiedAtFs: mtime, ParentID: &root.ID}
	if _, err := st.CreateEntry(ctx, file); err != nil {
		t.Fatalf("create file: %v", err)
	}

	cd, err := loadChangeDetector(ctx, st, loc, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	kind, _, _ := cd.classify("a.txt", DirEntry{Size: 99, Modified: mtime})
	if kind != changeModified {
		t.Errorf("expected changeModified, got %v", kind)
	}
}

func TestClassify_MovedByInode(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	ctx := context.Background()
	loc := createTestLocation(t, st, "moved")

	mtime := time.Now().Truncate(time.Second)
	root := &store.Entry{LocationID: loc.ID, Name: "root", Kind: store.EntryKindDirectory}
	if _, err := st.CreateEntry(ctx, root); err != nil {
		t.Fatalf("create root: %v", err)
	}
	file := &store.Entry{LocationID: loc.ID, Name: "old.txt", Kind: store.EntryKindFile, Size: 10, ModifiedAtFs: mtime, Inode: inodePtr(42), ParentID: &root.ID}
	if _, err := st.CreateEntry(ctx, file); err != nil {
		t.Fatalf("create file: %v", err)
	}

	cd, err := loadChangeDetector(ctx, st, loc, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	kind, existing, oldPath := cd.classify("new.txt", DirEntry{Size: 10, Modified: mtime, Inode: inodePtr(42)})
	if kind != changeMoved {
		t.Errorf("expected changeMoved, got %v", kind)
	}
	if existing.id != file.ID {
		t.Errorf("expected existing entry id %d, got %d", file.ID, existing.id)
	}
	if oldPath != "old.txt" {
		t.Errorf("expected old path old.txt, got %s", oldPath)
	}
}

func TestClassify_DuplicateHardLinkSameNameAndMtime(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	ctx := context.Background()
	loc := createTestLocation(t, st, "duplicate")

	mtime := time.Now().Truncate(time.Second)
	root := &store.Entry{LocationID: loc.ID, Name: "root", Kind: store.EntryKindDirectory}
	if _, err := st.CreateEntry(ctx, root); err != nil {
		t.Fatalf("create root: %v", err)
	}
	sub1 := &store.Entry{LocationID: loc.ID, Name: "sub1", Kind: store.EntryKindDirectory, ParentID: &root.ID}
	if _, err := st.CreateEntry(ctx, sub1); err != nil {
		t.Fatalf("create sub1: %v", err)
	}
	file := &store.Entry{LocationID: loc.ID, Name: "a.txt", Kind: store.EntryKindFile, Size: 10, ModifiedAtFs: mtime, Inode: inodePtr(7), ParentID: &sub1.ID}
	if _, err := st.CreateEntry(ctx, file); err != nil {
		t.Fatalf("create file: %v", err)
	}

	cd, err := loadChangeDetector(ctx, st, loc, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Same inode (hard link), same base name, same mtime, different parent directory.
	kind, _, _ := cd.classify("sub2/a.txt", DirEntry{Size: 10, Modified: mtime, Inode: inodePtr(7)})
	if kind != changeDuplicate {
		t.Errorf("expected changeDuplicate, got %v", kind)
	}
}

func TestClassify_NewWhenNoPathOrInodeMatch(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()
	loc := createTestLocation(t, st, "new")

	cd, err := loadChangeDetector(context.Background(), st, loc, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	kind, existing, _ := cd.classify("fresh.txt", DirEntry{Size: 5, Modified: time.Now()})
	if kind != changeNew {
		t.Errorf("expected changeNew, got %v", kind)
	}
	if existing != nil {
		t.Errorf("expected nil existing entry for a new path")
	}
}
