package indexer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExclude_RejectWinsOverAccept(t *testing.T) {
	e := NewExclude([]string{"*.txt"}, []string{"*.txt"}, t.TempDir(), false)
	if !e.Matches("/a/b.txt", false) {
		t.Errorf("expected reject to win over accept for matching pattern")
	}
}

func TestExclude_AcceptListRestrictsToMatches(t *testing.T) {
	e := NewExclude([]string{"*.jpg"}, nil, t.TempDir(), false)
	if e.Matches("/a/photo.jpg", false) {
		t.Errorf("expected photo.jpg to be kept")
	}
	if !e.Matches("/a/doc.txt", false) {
		t.Errorf("expected doc.txt to be excluded when an accept list is set and it doesn't match")
	}
}

func TestExclude_EmptyRulesKeepEverything(t *testing.T) {
	e := NewExclude(nil, nil, t.TempDir(), false)
	if e.Matches("/anything/at/all.bin", false) {
		t.Errorf("expected no rules to keep everything")
	}
}

func TestExclude_GitignorePatternsApply(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644); err != nil {
		t.Fatalf("write .gitignore: %v", err)
	}
	e := NewExclude(nil, nil, root, true)
	if !e.Matches(filepath.Join(root, "debug.log"), false) {
		t.Errorf("expected debug.log to be excluded via .gitignore")
	}
	if e.Matches(filepath.Join(root, "keep.txt"), false) {
		t.Errorf("expected keep.txt to survive")
	}
}

func TestExclude_NilReceiverMatchesNothing(t *testing.T) {
	var e *Exclude
	if e.Matches("/anything", false) {
		t.Errorf("expected a nil Exclude to exclude nothing")
	}
}
