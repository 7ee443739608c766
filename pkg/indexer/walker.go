// Package indexer implements the four-phase (Walk, Process, Identify,
// Aggregate) filesystem indexing job: it walks a root path, detects new/
// modified/moved/deleted entries against the store, identifies file
// content, and maintains closure-table hierarchy and aggregate directory
// sizes.
package indexer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spacecore/spacecore/pkg/store"
)

// batchSize is how many walked entries go into one batch. Walk holds every
// batch in memory until the whole subtree has been read and only then
// hands them to the caller, so batching does not bound the walk's memory.
const batchSize = 1000

// dirReadChunk is how many entries os.ReadDir reads per underlying
// Readdir(n) call, bounding memory for very large directories.
const dirReadChunk = 1000

// DirEntry is one filesystem object observed during the Walk phase.
type DirEntry struct {
	Path     string
	Kind     store.EntryKind
	Size     uint64
	Modified time.Time
	Inode    *uint64
}

// WalkOptions configures the Walk phase.
type WalkOptions struct {
	// DepthLimit bounds recursion below the root; 0 means unlimited.
	DepthLimit int
	Exclude    *Exclude
	// Concurrency bounds how many directories are read in parallel.
	Concurrency int
}

// BatchFunc receives one batch of walked entries. Returning an error
// aborts the walk.
type BatchFunc func(batch []DirEntry) error

// Walk enumerates root's subtree concurrently (bounded by
// opts.Concurrency directory reads in flight at once), honoring
// opts.Exclude and opts.DepthLimit, and, once the whole subtree has been
// read, passes the entries to emit in opts-independent fixed-size batches.
// Symlinks are recorded but never followed.
func Walk(ctx context.Context, root string, opts WalkOptions, emit BatchFunc) error {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}

	w := &walker{
		opts: opts,
		sem:  make(chan struct{}, opts.Concurrency),
		ctx:  ctx,
	}

	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	rootEntry, isDir := w.classify(root, info)
	w.appendBatch(rootEntry)

	if isDir {
		w.wg.Add(1)
		w.walkDir(root, 1)
	}
	w.wg.Wait()

	if w.firstErr != nil {
		return w.firstErr
	}
	return w.flush(emit)
}

type walker struct {
	opts WalkOptions
	sem  chan struct{}
	ctx  context.Context
	wg   sync.WaitGroup

	mu       sync.Mutex
	pending  []DirEntry
	batches  [][]DirEntry
	firstErr error
}

func (w *walker) walkDir(dir string, depth int) {
	defer w.wg.Done()

	if w.opts.DepthLimit > 0 && depth > w.opts.DepthLimit {
		return
	}
	select {
	case w.sem <- struct{}{}:
	case <-w.ctx.Done():
		w.setErr(w.ctx.Err())
		return
	}

	entries, subdirs, err := w.listDirectory(dir)
	<-w.sem
	if err != nil {
		w.setErr(err)
		return
	}

	for _, e := range entries {
		w.appendBatch(e)
	}

	for _, sub := range subdirs {
		w.wg.Add(1)
		go w.walkDir(sub, depth+1)
	}
}

func (w *walker) listDirectory(dir string) ([]DirEntry, []string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var entries []DirEntry
	var subdirs []string
	for {
		dirEntries, readErr := f.ReadDir(dirReadChunk)
		for _, de := range dirEntries {
			path := filepath.Join(dir, de.Name())
			if w.opts.Exclude != nil && w.opts.Exclude.Matches(path, de.IsDir()) {
				continue
			}
			info, infoErr := de.Info()
			if infoErr != nil {
				continue // raced with a concurrent delete; skip
			}
			entry, isDir := w.classify(path, info)
			entries = append(entries, entry)
			if isDir {
				subdirs = append(subdirs, path)
			}
		}
		if readErr == io.EOF || len(dirEntries) == 0 {
			break
		}
		if readErr != nil {
			return entries, subdirs, readErr
		}
	}
	return entries, subdirs, nil
}

func (w *walker) classify(path string, info os.FileInfo) (DirEntry, bool) {
	kind := store.EntryKindFile
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		kind = store.EntryKindSymlink
	case info.IsDir():
		kind = store.EntryKindDirectory
	}
	return DirEntry{
		Path:     path,
		Kind:     kind,
		Size:     uint64(info.Size()),
		Modified: info.ModTime(),
		Inode:    inodeOf(info),
	}, kind == store.EntryKindDirectory
}

func (w *walker) appendBatch(e DirEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, e)
	if len(w.pending) >= batchSize {
		w.batches = append(w.batches, w.pending)
		w.pending = nil
	}
}

func (w *walker) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.firstErr == nil {
		w.firstErr = err
	}
}

func (w *walker) flush(emit BatchFunc) error {
	w.mu.Lock()
	batches := w.batches
	if len(w.pending) > 0 {
		batches = append(batches, w.pending)
	}
	w.mu.Unlock()

	for _, b := range batches {
		if err := emit(b); err != nil {
			return err
		}
	}
	return nil
}
