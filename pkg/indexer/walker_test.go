package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spacecore/spacecore/pkg/store"
)

func TestWalk_EnumeratesFilesAndDirectories(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var all []DirEntry
	err := Walk(context.Background(), root, WalkOptions{Concurrency: 2}, func(batch []DirEntry) error {
		all = append(all, batch...)
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	kinds := make(map[string]store.EntryKind)
	for _, e := range all {
		kinds[e.Path] = e.Kind
	}
	if kinds[root] != store.EntryKindDirectory {
		t.Errorf("expected root to be a directory entry")
	}
	if kinds[filepath.Join(root, "sub")] != store.EntryKindDirectory {
		t.Errorf("expected sub to be a directory entry")
	}
	if kinds[filepath.Join(root, "a.txt")] != store.EntryKindFile {
		t.Errorf("expected a.txt to be a file entry")
	}
	if kinds[filepath.Join(root, "sub", "b.txt")] != store.EntryKindFile {
		t.Errorf("expected sub/b.txt to be a file entry")
	}
}

func TestWalk_HonorsDepthLimit(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "l1", "l2")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(deep, "c.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var all []DirEntry
	err := Walk(context.Background(), root, WalkOptions{Concurrency: 2, DepthLimit: 1}, func(batch []DirEntry) error {
		all = append(all, batch...)
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	for _, e := range all {
		if e.Path == filepath.Join(deep, "c.txt") {
			t.Errorf("expected depth limit 1 to exclude %s", e.Path)
		}
	}
}

func TestWalk_ExcludesMatchingPatterns(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "skip.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	excl := NewExclude(nil, []string{"*.tmp"}, root, false)
	var all []DirEntry
	err := Walk(context.Background(), root, WalkOptions{Concurrency: 2, Exclude: excl}, func(batch []DirEntry) error {
		all = append(all, batch...)
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	for _, e := range all {
		if e.Path == filepath.Join(root, "skip.tmp") {
			t.Errorf("expected skip.tmp to be excluded")
		}
	}
}
