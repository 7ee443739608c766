package store

import (
	"context"

	"github.com/spacecore/spacecore/pkg/errors"
)

func (s *GORMStore) GetDevice(ctx context.Context, uuid string) (*Device, error) {
	return getByField[Device](s.db, ctx, "uuid", uuid, errors.NotFound("device", uuid))
}

func (s *GORMStore) GetDeviceByID(ctx context.Context, id uint) (*Device, error) {
	return getByField[Device](s.db, ctx, "id", id, errors.NotFound("device", "(unknown)"))
}

func (s *GORMStore) GetDeviceBySlug(ctx context.Context, slug string) (*Device, error) {
	return getByField[Device](s.db, ctx, "slug", slug, errors.NotFound("device", slug))
}

func (s *GORMStore) ListDevices(ctx context.Context) ([]*Device, error) {
	return listAll[Device](s.db, ctx)
}

// ListDevicesPage lists devices with id > afterID, ordered by id ascending,
// for checkpointed backfill passes.
func (s *GORMStore) ListDevicesPage(ctx context.Context, afterID uint, limit int) ([]*Device, error) {
	return listPage[Device](s.db, ctx, afterID, limit)
}

func (s *GORMStore) CreateDevice(ctx context.Context, device *Device) (string, error) {
	return createWithUUID(s.db, ctx, device, func(d *Device, id string) { d.UUID = id }, device.UUID,
		errors.AlreadyExists("device", device.UUID))
}

func (s *GORMStore) UpdateDevice(ctx context.Context, device *Device) error {
	result := s.db.WithContext(ctx).Where("uuid = ?", device.UUID).Updates(device)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("device", device.UUID)
	}
	return nil
}

func (s *GORMStore) DeleteDevice(ctx context.Context, uuid string) error {
	return deleteByField[Device](s.db, ctx, "uuid", uuid, errors.NotFound("device", uuid))
}
