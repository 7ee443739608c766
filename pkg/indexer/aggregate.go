package indexer

import (
	"context"

	"github.com/spacecore/spacecore/pkg/store"
)

// aggregateNode is one entry's working state during the bottom-up sweep.
type aggregateNode struct {
	entry    *store.Entry
	children []uint
}

// runAggregate recomputes AggregateSize, ChildCount and FileCount for every
// directory under loc by walking the entry tree bottom-up: a directory's
// aggregate values are the sum of its direct children's (already-resolved)
// aggregate values plus its own size for files.
func runAggregate(ctx context.Context, st entryWriter, loc *store.Location) error {
	entries, err := st.ListEntriesByLocation(ctx, loc.ID)
	if err != nil {
		return err
	}

	nodes := make(map[uint]*aggregateNode, len(entries))
	var roots []uint
	for _, e := range entries {
		nodes[e.ID] = &aggregateNode{entry: e}
	}
	for _, e := range entries {
		if e.ParentID != nil {
			if parent, ok := nodes[*e.ParentID]; ok {
				parent.children = append(parent.children, e.ID)
				continue
			}
		}
		roots = append(roots, e.ID)
	}

	order := postOrder(nodes, roots)
	for _, id := range order {
		n := nodes[id]
		if n.entry.Kind != store.EntryKindDirectory {
			n.entry.AggregateSize = n.entry.Size
			n.entry.ChildCount = 0
			n.entry.FileCount = 0
			if n.entry.Kind == store.EntryKindFile {
				n.entry.FileCount = 1
			}
			continue
		}

		var aggSize, childCount, fileCount uint64
		for _, cid := range n.children {
			c := nodes[cid]
			aggSize += c.entry.AggregateSize
			fileCount += c.entry.FileCount
			childCount++
			if c.entry.Kind == store.EntryKindDirectory {
				childCount += c.entry.ChildCount
			}
		}
		n.entry.AggregateSize = aggSize
		n.entry.ChildCount = childCount
		n.entry.FileCount = fileCount
	}

	for _, id := range order {
		if err := st.UpdateEntry(ctx, nodes[id].entry); err != nil {
			return err
		}
	}

	if loc.EntryID != nil {
		if root, ok := nodes[*loc.EntryID]; ok {
			loc.TotalBytes = root.entry.AggregateSize
			loc.TotalFileCount = root.entry.FileCount
			if err := st.UpdateLocation(ctx, loc); err != nil {
				return err
			}
		}
	}
	return nil
}

// postOrder returns entry IDs ordered so every child precedes its parent,
// computed iteratively with an explicit stack.
func postOrder(nodes map[uint]*aggregateNode, roots []uint) []uint {
	type frame struct {
		id      uint
		visited bool
	}
	order := make([]uint, 0, len(nodes))
	stack := make([]frame, 0, len(roots))
	for _, r := range roots {
		stack = append(stack, frame{id: r})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.visited {
			order = append(order, top.id)
			continue
		}
		stack = append(stack, frame{id: top.id, visited: true})
		for _, cid := range nodes[top.id].children {
			stack = append(stack, frame{id: cid})
		}
	}
	return order
}
