package store

import (
	"context"

	"github.com/spacecore/spacecore/pkg/errors"
)

func (s *GORMStore) GetVolume(ctx context.Context, uuid string) (*Volume, error) {
	return getByField[Volume](s.db, ctx, "uuid", uuid, errors.NotFound("volume", uuid))
}

func (s *GORMStore) GetVolumeByFingerprint(ctx context.Context, fingerprint string) (*Volume, error) {
	return getByField[Volume](s.db, ctx, "fingerprint", fingerprint, errors.NotFound("volume", fingerprint))
}

func (s *GORMStore) ListVolumesByDevice(ctx context.Context, deviceUUID string) ([]*Volume, error) {
	device, err := s.GetDevice(ctx, deviceUUID)
	if err != nil {
		return nil, err
	}
	var results []*Volume
	if err := s.db.WithContext(ctx).Where("device_id = ?", device.ID).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListVolumesPage lists volumes across all devices with id > afterID,
// ordered by id ascending, for checkpointed backfill passes.
func (s *GORMStore) ListVolumesPage(ctx context.Context, afterID uint, limit int) ([]*Volume, error) {
	return listPage[Volume](s.db, ctx, afterID, limit)
}

func (s *GORMStore) CreateVolume(ctx context.Context, volume *Volume) (string, error) {
	return createWithUUID(s.db, ctx, volume, func(v *Volume, id string) { v.UUID = id }, volume.UUID,
		errors.AlreadyExists("volume", volume.Fingerprint))
}

func (s *GORMStore) UpdateVolume(ctx context.Context, volume *Volume) error {
	result := s.db.WithContext(ctx).Where("uuid = ?", volume.UUID).Updates(volume)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("volume", volume.UUID)
	}
	return nil
}

func (s *GORMStore) DeleteVolume(ctx context.Context, uuid string) error {
	return deleteByField[Volume](s.db, ctx, "uuid", uuid, errors.NotFound("volume", uuid))
}
