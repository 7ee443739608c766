package indexer

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/store"
)

// kindRank orders entries at equal depth so directories are written before
// symlinks before files, guaranteeing a parent row exists before any
// child row.
func kindRank(k store.EntryKind) int {
	switch k {
	case store.EntryKindDirectory:
		return 0
	case store.EntryKindSymlink:
		return 1
	default:
		return 2
	}
}

func depthOf(rel string) int {
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/")
}

// walked is one Walk-phase entry paired with its path relative to the
// location root (the form the change detector and store key on).
type walked struct {
	rel   string
	entry DirEntry
}

// processResult summarizes one Process-phase batch's outcome, accumulated
// across the whole run for the job's final output and checkpoint state.
type processResult struct {
	Created          int
	Updated          int
	Moved            int
	Unchanged        int
	Deleted          int
	Duplicate        int
	PendingContentID []uint // entry IDs newly created/modified, for content identification
}

func (r *processResult) add(o processResult) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Moved += o.Moved
	r.Unchanged += o.Unchanged
	r.Deleted += o.Deleted
	r.Duplicate += o.Duplicate
	r.PendingContentID = append(r.PendingContentID, o.PendingContentID...)
}

// entryWriter is the subset of store.Store the Process and Aggregate
// phases need: entry and closure-table writes, plus the location reads
// and updates that track the root entry and rollup totals.
type entryWriter interface {
	store.EntryStore
	GetLocationByID(ctx context.Context, id uint) (*store.Location, error)
	UpdateLocation(ctx context.Context, location *store.Location) error
}

// processor runs the Process phase: sorts walked entries by (depth, kind),
// classifies each against the change detector, and writes the result to
// the store one batch at a time.
type processor struct {
	store     entryWriter
	loc       *store.Location
	detector  *changeDetector
	root      string
	seenRel   map[string]bool
	parentIDs map[string]uint // rel path -> store entry id, filled as rows are written
}

func newProcessor(st entryWriter, loc *store.Location, detector *changeDetector, root string, parentIDs map[string]uint) *processor {
	if parentIDs == nil {
		parentIDs = make(map[string]uint)
	}
	return &processor{
		store:     st,
		loc:       loc,
		detector:  detector,
		root:      root,
		seenRel:   make(map[string]bool),
		parentIDs: parentIDs,
	}
}

// processBatch sorts one Walk-phase batch and writes it to the store.
func (p *processor) processBatch(ctx context.Context, batch []DirEntry) (processResult, error) {
	items := make([]walked, 0, len(batch))
	for _, d := range batch {
		rel, err := filepath.Rel(p.root, d.Path)
		if err != nil {
			return processResult{}, err
		}
		if rel == "." {
			rel = ""
		}
		items = append(items, walked{rel: filepath.ToSlash(rel), entry: d})
	}

	sort.Slice(items, func(i, j int) bool {
		di, dj := depthOf(items[i].rel), depthOf(items[j].rel)
		if di != dj {
			return di < dj
		}
		return kindRank(items[i].entry.Kind) < kindRank(items[j].entry.Kind)
	})

	var result processResult
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		p.seenRel[item.rel] = true
		if err := p.processOne(ctx, item, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (p *processor) processOne(ctx context.Context, item walked, result *processResult) error {
	if item.rel == "" {
		return p.processRoot(ctx, item, result)
	}

	parentRel := filepath.ToSlash(filepath.Dir(item.rel))
	if parentRel == "." {
		parentRel = ""
	}
	parentID, ok := p.parentIDs[parentRel]
	if !ok {
		return errors.Internal("process phase encountered entry before its parent: " + item.rel)
	}

	kind, existing, refPath := p.detector.classify(item.rel, item.entry)
	switch kind {
	case changeUnchanged:
		p.parentIDs[item.rel] = existing.id
		result.Unchanged++
		return nil

	case changeModified:
		entry, err := p.store.GetEntryByID(ctx, existing.id)
		if err != nil {
			return err
		}
		entry.Size = item.entry.Size
		entry.ModifiedAtFs = item.entry.Modified
		if err := p.store.UpdateEntry(ctx, entry); err != nil {
			return err
		}
		p.parentIDs[item.rel] = entry.ID
		result.Updated++
		result.PendingContentID = append(result.PendingContentID, entry.ID)
		return nil

	case changeMoved:
		entry, err := p.store.GetEntryByID(ctx, existing.id)
		if err != nil {
			return err
		}
		entry.Name = filepath.Base(item.rel)
		entry.ParentID = &parentID
		if err := p.store.UpdateEntry(ctx, entry); err != nil {
			return err
		}
		p.parentIDs[item.rel] = entry.ID
		result.Moved++
		delete(p.detector.byPath, refPath)
		p.detector.byPath[item.rel] = existing
		return nil

	case changeDuplicate, changeNew:
		if kind == changeDuplicate {
			result.Duplicate++
		}
		id, err := p.createEntry(ctx, item, &parentID)
		if err != nil {
			return err
		}
		p.parentIDs[item.rel] = id
		result.Created++
		result.PendingContentID = append(result.PendingContentID, id)
		return nil
	}
	return nil
}

func (p *processor) processRoot(ctx context.Context, item walked, result *processResult) error {
	if p.loc.EntryID != nil {
		p.parentIDs[""] = *p.loc.EntryID
		result.Unchanged++
		return nil
	}
	id, err := p.createEntry(ctx, item, nil)
	if err != nil {
		return err
	}
	p.parentIDs[""] = id
	p.loc.EntryID = &id
	if err := p.store.UpdateLocation(ctx, p.loc); err != nil {
		return err
	}
	result.Created++
	return nil
}

func (p *processor) createEntry(ctx context.Context, item walked, parentID *uint) (uint, error) {
	name := filepath.Base(item.rel)
	if item.rel == "" {
		name = p.loc.Name
	}
	row := &store.Entry{
		UUID:         uuid.New().String(),
		LocationID:   p.loc.ID,
		Name:         name,
		Kind:         item.entry.Kind,
		Extension:    strings.TrimPrefix(filepath.Ext(name), "."),
		Size:         item.entry.Size,
		ModifiedAtFs: item.entry.Modified,
		CreatedAtFs:  item.entry.Modified,
		AccessedAtFs: item.entry.Modified,
		Inode:        item.entry.Inode,
		ParentID:     parentID,
	}
	if _, err := p.store.CreateEntry(ctx, row); err != nil {
		return 0, err
	}

	selfRow := &store.ClosureRow{AncestorID: row.ID, DescendantID: row.ID, Depth: 0}
	if err := p.store.InsertClosureRow(ctx, selfRow); err != nil {
		return 0, err
	}
	if parentID != nil {
		ancestors, err := p.store.GetAncestors(ctx, *parentID)
		if err != nil {
			return 0, err
		}
		rows := make([]*store.ClosureRow, 0, len(ancestors))
		for _, a := range ancestors {
			rows = append(rows, &store.ClosureRow{AncestorID: a.AncestorID, DescendantID: row.ID, Depth: a.Depth + 1})
		}
		if len(rows) > 0 {
			if err := p.store.InsertClosureRows(ctx, rows); err != nil {
				return 0, err
			}
		}
	}
	return row.ID, nil
}

// finalize deletes store entries that were never seen during this run's
// walk, along with their closure rows.
func (p *processor) finalize(ctx context.Context) (int64, error) {
	seenIDs := make([]uint, 0, len(p.parentIDs))
	for _, id := range p.parentIDs {
		seenIDs = append(seenIDs, id)
	}
	deletedCount, err := p.store.DeleteEntriesNotIn(ctx, p.loc.ID, seenIDs)
	if err != nil {
		return 0, err
	}
	return deletedCount, nil
}
