package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/spacecore/spacecore/pkg/errors"
)

func (s *GORMStore) GetEntry(ctx context.Context, uuid string) (*Entry, error) {
	return getByField[Entry](s.db, ctx, "uuid", uuid, errors.NotFound("entry", uuid))
}

func (s *GORMStore) GetEntryByID(ctx context.Context, id uint) (*Entry, error) {
	var entry Entry
	if err := s.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		return nil, convertNotFoundError(err, errors.NotFound("entry", ""))
	}
	return &entry, nil
}

func (s *GORMStore) GetEntryByLocationAndName(ctx context.Context, locationID uint, parentID *uint, name string) (*Entry, error) {
	q := s.db.WithContext(ctx).Where("location_id = ? AND name = ?", locationID, name)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}
	var entry Entry
	if err := q.First(&entry).Error; err != nil {
		return nil, convertNotFoundError(err, errors.NotFound("entry", name))
	}
	return &entry, nil
}

func (s *GORMStore) GetEntryByInode(ctx context.Context, locationID uint, inode uint64) (*Entry, error) {
	var entry Entry
	err := s.db.WithContext(ctx).
		Where("location_id = ? AND inode = ?", locationID, inode).
		First(&entry).Error
	if err != nil {
		return nil, convertNotFoundError(err, errors.NotFound("entry", ""))
	}
	return &entry, nil
}

func (s *GORMStore) ListEntriesByLocation(ctx context.Context, locationID uint) ([]*Entry, error) {
	var results []*Entry
	if err := s.db.WithContext(ctx).Where("location_id = ?", locationID).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GORMStore) ListEntriesByContentIdentity(ctx context.Context, contentIdentityID uint) ([]*Entry, error) {
	var results []*Entry
	if err := s.db.WithContext(ctx).Where("content_identity_id = ?", contentIdentityID).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListEntriesPage lists entries across all locations with id > afterID,
// ordered by id ascending, for checkpointed backfill passes.
func (s *GORMStore) ListEntriesPage(ctx context.Context, afterID uint, limit int) ([]*Entry, error) {
	return listPage[Entry](s.db, ctx, afterID, limit)
}

func (s *GORMStore) CreateEntry(ctx context.Context, entry *Entry) (string, error) {
	return createWithUUID(s.db, ctx, entry, func(e *Entry, id string) { e.UUID = id }, entry.UUID,
		errors.AlreadyExists("entry", entry.Name))
}

func (s *GORMStore) UpdateEntry(ctx context.Context, entry *Entry) error {
	result := s.db.WithContext(ctx).Where("id = ?", entry.ID).Updates(entry)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("entry", entry.UUID)
	}
	return nil
}

func (s *GORMStore) DeleteEntry(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&Entry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("entry", "")
	}
	return nil
}

// DeleteEntriesNotIn removes entries under locationID whose id is not in
// seenIDs, along with their closure rows. Used at the end of the indexer's
// Process phase to sweep paths no longer present on disk.
func (s *GORMStore) DeleteEntriesNotIn(ctx context.Context, locationID uint, seenIDs []uint) (int64, error) {
	var staleIDs []uint
	q := s.db.WithContext(ctx).Model(&Entry{}).Where("location_id = ?", locationID)
	if len(seenIDs) > 0 {
		q = q.Where("id NOT IN ?", seenIDs)
	}
	if err := q.Pluck("id", &staleIDs).Error; err != nil {
		return 0, err
	}
	if len(staleIDs) == 0 {
		return 0, nil
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ancestor_id IN ? OR descendant_id IN ?", staleIDs, staleIDs).
			Delete(&ClosureRow{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", staleIDs).Delete(&Entry{})
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		return nil
	})
	return affected, err
}

func (s *GORMStore) InsertClosureRow(ctx context.Context, row *ClosureRow) error {
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *GORMStore) InsertClosureRows(ctx context.Context, rows []*ClosureRow) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 500).Error
}

func (s *GORMStore) GetAncestors(ctx context.Context, entryID uint) ([]*ClosureRow, error) {
	var rows []*ClosureRow
	err := s.db.WithContext(ctx).
		Where("descendant_id = ?", entryID).
		Order("depth DESC").
		Find(&rows).Error
	return rows, err
}

func (s *GORMStore) GetDescendants(ctx context.Context, entryID uint) ([]*ClosureRow, error) {
	var rows []*ClosureRow
	err := s.db.WithContext(ctx).
		Where("ancestor_id = ?", entryID).
		Order("depth ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GORMStore) DeleteClosureRowsForSubtree(ctx context.Context, entryIDs []uint) error {
	if len(entryIDs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("ancestor_id IN ? OR descendant_id IN ?", entryIDs, entryIDs).
		Delete(&ClosureRow{}).Error
}

func (s *GORMStore) GetDirectChildren(ctx context.Context, parentID uint) ([]*Entry, error) {
	var results []*Entry
	err := s.db.WithContext(ctx).Where("parent_id = ?", parentID).Find(&results).Error
	return results, err
}
