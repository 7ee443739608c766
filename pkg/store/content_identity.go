package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/spacecore/spacecore/pkg/errors"
)

func (s *GORMStore) GetContentIdentity(ctx context.Context, uuid string) (*ContentIdentity, error) {
	return getByField[ContentIdentity](s.db, ctx, "uuid", uuid, errors.NotFound("content-identity", uuid))
}

func (s *GORMStore) GetContentIdentityByCasID(ctx context.Context, casID string) (*ContentIdentity, error) {
	return getByField[ContentIdentity](s.db, ctx, "cas_id", casID, errors.NotFound("content-identity", casID))
}

// ListContentIdentitiesPage lists content identities with id > afterID,
// ordered by id ascending, for checkpointed backfill passes.
func (s *GORMStore) ListContentIdentitiesPage(ctx context.Context, afterID uint, limit int) ([]*ContentIdentity, error) {
	return listPage[ContentIdentity](s.db, ctx, afterID, limit)
}

func (s *GORMStore) CreateContentIdentity(ctx context.Context, ci *ContentIdentity) (string, error) {
	return createWithUUID(s.db, ctx, ci, func(c *ContentIdentity, id string) { c.UUID = id }, ci.UUID,
		errors.AlreadyExists("content-identity", ci.CasID))
}

// IncrementRefCount bumps a content identity's reference count by one,
// called when an entry is linked to it.
func (s *GORMStore) IncrementRefCount(ctx context.Context, casID string) error {
	result := s.db.WithContext(ctx).Model(&ContentIdentity{}).
		Where("cas_id = ?", casID).
		UpdateColumn("ref_count", gorm.Expr("ref_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("content-identity", casID)
	}
	return nil
}

// DecrementRefCount decrements a content identity's reference count,
// deleting the row (orphan sweep) when the count reaches zero. Returns the
// post-decrement count, or 0 and a nil error if the row was removed.
func (s *GORMStore) DecrementRefCount(ctx context.Context, casID string) (int, error) {
	var refCount int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ci ContentIdentity
		if err := tx.Where("cas_id = ?", casID).First(&ci).Error; err != nil {
			return convertNotFoundError(err, errors.NotFound("content-identity", casID))
		}
		ci.RefCount--
		if ci.RefCount <= 0 {
			refCount = 0
			return tx.Delete(&ci).Error
		}
		refCount = ci.RefCount
		return tx.Save(&ci).Error
	})
	return refCount, err
}

func (s *GORMStore) DeleteContentIdentity(ctx context.Context, uuid string) error {
	return deleteByField[ContentIdentity](s.db, ctx, "uuid", uuid, errors.NotFound("content-identity", uuid))
}
