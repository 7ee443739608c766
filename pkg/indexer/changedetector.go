package indexer

import (
	"context"
	"time"

	"github.com/spacecore/spacecore/pkg/store"
)

// mtimeToleranceDefault is the default (1 ms) tolerance for timestamp
// comparison, accommodating filesystems with coarse mtime precision.
const mtimeToleranceDefault = 1 * time.Millisecond

// existingEntry is the change detector's cached view of a previously
// indexed entry.
type existingEntry struct {
	id     uint
	inode  *uint64
	mtime  time.Time
	size   uint64
	name   string
	parent *uint
}

// changeDetector loads every entry under a location once, indexed both
// by materialized path and by inode, so Classify runs in O(1) per walked
// entry. Memory is bounded by the subtree size.
type changeDetector struct {
	byPath  map[string]*existingEntry
	byInode map[uint64]string // inode -> path, for move detection
	tolerance time.Duration
}

// loadChangeDetector builds the path/inode maps for a location by reading
// every entry the store already has for it and reconstructing each
// entry's materialized path via closure ancestry.
func loadChangeDetector(ctx context.Context, st store.EntryStore, loc *store.Location, tolerance time.Duration) (*changeDetector, error) {
	if tolerance <= 0 {
		tolerance = mtimeToleranceDefault
	}
	cd := &changeDetector{
		byPath:    make(map[string]*existingEntry),
		byInode:   make(map[uint64]string),
		tolerance: tolerance,
	}

	entries, err := st.ListEntriesByLocation(ctx, loc.ID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*store.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	// Paths are relative to the location's root entry (which is the root
	// filesystem path itself), matching the Walk phase's rel convention:
	// the root entry's own path is "", not its store Name.
	paths := make(map[uint]string, len(entries))
	var resolve func(e *store.Entry) string
	resolve = func(e *store.Entry) string {
		if p, ok := paths[e.ID]; ok {
			return p
		}
		if e.ParentID == nil {
			paths[e.ID] = ""
			return ""
		}
		parent, ok := byID[*e.ParentID]
		if !ok {
			paths[e.ID] = e.Name
			return e.Name
		}
		parentPath := resolve(parent)
		full := e.Name
		if parentPath != "" {
			full = parentPath + "/" + e.Name
		}
		paths[e.ID] = full
		return full
	}

	for _, e := range entries {
		path := resolve(e)
		existing := &existingEntry{
			id:     e.ID,
			inode:  e.Inode,
			mtime:  e.ModifiedAtFs,
			size:   e.Size,
			name:   e.Name,
			parent: e.ParentID,
		}
		cd.byPath[path] = existing
		if e.Inode != nil {
			cd.byInode[*e.Inode] = path
		}
	}
	return cd, nil
}

// changeKind classifies one walked entry relative to the store's prior
// state.
type changeKind int

const (
	changeNew changeKind = iota
	changeModified
	changeMoved
	changeUnchanged
	changeDuplicate
)

// classify determines what happened to a walked entry since the last
// index run.
func (cd *changeDetector) classify(rel string, d DirEntry) (changeKind, *existingEntry, string) {
	if existing, ok := cd.byPath[rel]; ok {
		if cd.unchanged(existing, d) {
			return changeUnchanged, existing, rel
		}
		return changeModified, existing, rel
	}

	if d.Inode == nil {
		return changeNew, nil, rel
	}
	oldPath, ok := cd.byInode[*d.Inode]
	if !ok {
		return changeNew, nil, rel
	}
	existing := cd.byPath[oldPath]
	if existing == nil {
		return changeNew, nil, rel
	}

	// Same inode, same base name: a hard link / dedup artifact sharing
	// mtime is a duplicate, not a move.
	if existing.name == baseName(rel) && cd.withinTolerance(existing.mtime, d.Modified) {
		return changeDuplicate, existing, oldPath
	}
	return changeMoved, existing, oldPath
}

func (cd *changeDetector) unchanged(existing *existingEntry, d DirEntry) bool {
	return existing.size == d.Size && cd.withinTolerance(existing.mtime, d.Modified)
}

func (cd *changeDetector) withinTolerance(a, b time.Time) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= cd.tolerance
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
