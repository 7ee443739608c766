package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/spacecore/spacecore/pkg/errors"
)

func (s *GORMStore) GetCheckpoint(ctx context.Context, localDevice, peerDevice, resourceType string) (*SyncCheckpoint, error) {
	var cp SyncCheckpoint
	err := s.db.WithContext(ctx).
		Where("local_device = ? AND peer_device = ? AND resource_type = ?", localDevice, peerDevice, resourceType).
		First(&cp).Error
	if err != nil {
		return nil, convertNotFoundError(err, errors.NotFound("sync-checkpoint", resourceType))
	}
	return &cp, nil
}

// UpsertCheckpoint creates or updates the checkpoint identified by its
// composite key (local_device, peer_device, resource_type). Called after
// each backfill page to persist (records_synced, resume_token, last_watermark).
func (s *GORMStore) UpsertCheckpoint(ctx context.Context, cp *SyncCheckpoint) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "local_device"}, {Name: "peer_device"}, {Name: "resource_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"resume_token", "last_watermark", "records_synced", "updated_at"}),
	}).Create(cp).Error
}

// DeleteCheckpoint removes the checkpoint row, marking the resource type
// drained for this peer.
func (s *GORMStore) DeleteCheckpoint(ctx context.Context, localDevice, peerDevice, resourceType string) error {
	result := s.db.WithContext(ctx).
		Where("local_device = ? AND peer_device = ? AND resource_type = ?", localDevice, peerDevice, resourceType).
		Delete(&SyncCheckpoint{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("sync-checkpoint", resourceType)
	}
	return nil
}

func (s *GORMStore) ListCheckpointsForPeer(ctx context.Context, localDevice, peerDevice string) ([]*SyncCheckpoint, error) {
	var results []*SyncCheckpoint
	err := s.db.WithContext(ctx).
		Where("local_device = ? AND peer_device = ?", localDevice, peerDevice).
		Find(&results).Error
	return results, err
}
