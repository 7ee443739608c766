package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ============================================================================
// Generic GORM helpers
// ============================================================================
//
// These reduce repetitive CRUD boilerplate across the per-entity query
// files. They are unexported and operate on the raw *gorm.DB to avoid
// coupling to GORMStore.

// getByField retrieves a single record of type T by matching field=value,
// converting gorm.ErrRecordNotFound to notFoundErr.
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error, preloads ...string) (*T, error) {
	var result T
	q := db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// listAll retrieves all records of type T, applying optional Preload clauses.
func listAll[T any](db *gorm.DB, ctx context.Context, preloads ...string) ([]*T, error) {
	var results []*T
	q := db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// listPage retrieves up to limit records of type T with id > afterID,
// ordered by id ascending. Used for checkpointed backfill passes, where the
// cursor is the last id seen and must be stable across restarts.
func listPage[T any](db *gorm.DB, ctx context.Context, afterID uint, limit int) ([]*T, error) {
	var results []*T
	if err := db.WithContext(ctx).Where("id > ?", afterID).Order("id asc").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// createWithUUID generates a UUID for the entity if it has none, then
// creates it. Unique constraint violations are converted to dupErr.
func createWithUUID[T any](db *gorm.DB, ctx context.Context, entity *T, idSetter func(*T, string), currentID string, dupErr error) (string, error) {
	id := currentID
	if id == "" {
		id = uuid.New().String()
		idSetter(entity, id)
	}
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", dupErr
		}
		return "", err
	}
	return id, nil
}

// deleteByField deletes records of type T matching field=value, returning
// notFoundErr if no rows were affected.
func deleteByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) error {
	var zero T
	result := db.WithContext(ctx).Where(field+" = ?", value).Delete(&zero)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr
	}
	return nil
}
