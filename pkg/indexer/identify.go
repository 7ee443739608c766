package indexer

import (
	"context"

	"github.com/google/uuid"

	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/hash"
	"github.com/spacecore/spacecore/pkg/store"
)

// identityWriter is the subset of store.Store the identify step needs on
// top of entryWriter: content-identity lookup, creation and refcounting.
type identityWriter interface {
	entryWriter
	store.ContentIdentityStore
}

// identifyOne computes the CAS-ID for a newly created or modified file
// entry and attaches it to a (possibly shared) ContentIdentity row,
// incrementing its reference count. Directories and symlinks are skipped.
func identifyOne(ctx context.Context, st identityWriter, entryID uint, path string, smallFileThreshold uint64) error {
	entry, err := st.GetEntryByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Kind != store.EntryKindFile {
		return nil
	}

	id, err := hash.HashFile(path, smallFileThreshold)
	if err != nil {
		return err
	}
	casID := id.String()

	ci, err := st.GetContentIdentityByCasID(ctx, casID)
	if err != nil {
		if !errors.IsNotFound(err) {
			return err
		}
		ci = &store.ContentIdentity{
			UUID:      uuid.New().String(),
			CasID:     casID,
			TotalSize: entry.Size,
			MediaKind: store.MediaKindUnknown,
		}
		if _, err := st.CreateContentIdentity(ctx, ci); err != nil {
			return err
		}
	}
	if err := st.IncrementRefCount(ctx, casID); err != nil {
		return err
	}

	if entry.ContentIdentityID != nil && *entry.ContentIdentityID == ci.ID {
		return nil
	}
	entry.ContentIdentityID = &ci.ID
	return st.UpdateEntry(ctx, entry)
}
