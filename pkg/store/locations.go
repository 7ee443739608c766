package store

import (
	"context"

	"github.com/spacecore/spacecore/pkg/errors"
)

func (s *GORMStore) GetLocation(ctx context.Context, uuid string) (*Location, error) {
	return getByField[Location](s.db, ctx, "uuid", uuid, errors.NotFound("location", uuid))
}

func (s *GORMStore) GetLocationByID(ctx context.Context, id uint) (*Location, error) {
	return getByField[Location](s.db, ctx, "id", id, errors.NotFound("location", "(unknown)"))
}

func (s *GORMStore) ListLocations(ctx context.Context) ([]*Location, error) {
	return listAll[Location](s.db, ctx)
}

func (s *GORMStore) ListLocationsByDevice(ctx context.Context, deviceUUID string) ([]*Location, error) {
	device, err := s.GetDevice(ctx, deviceUUID)
	if err != nil {
		return nil, err
	}
	var results []*Location
	if err := s.db.WithContext(ctx).Where("device_id = ?", device.ID).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListLocationsPage lists locations across all devices with id > afterID,
// ordered by id ascending, for checkpointed backfill passes.
func (s *GORMStore) ListLocationsPage(ctx context.Context, afterID uint, limit int) ([]*Location, error) {
	return listPage[Location](s.db, ctx, afterID, limit)
}

func (s *GORMStore) CreateLocation(ctx context.Context, location *Location) (string, error) {
	return createWithUUID(s.db, ctx, location, func(l *Location, id string) { l.UUID = id }, location.UUID,
		errors.AlreadyExists("location", location.Name))
}

func (s *GORMStore) UpdateLocation(ctx context.Context, location *Location) error {
	result := s.db.WithContext(ctx).Where("uuid = ?", location.UUID).Updates(location)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("location", location.UUID)
	}
	return nil
}

func (s *GORMStore) DeleteLocation(ctx context.Context, uuid string) error {
	return deleteByField[Location](s.db, ctx, "uuid", uuid, errors.NotFound("location", uuid))
}
