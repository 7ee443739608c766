package store

import (
	"context"

	"github.com/spacecore/spacecore/pkg/errors"
)

func (s *GORMStore) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	return getByField[JobRecord](s.db, ctx, "id", id, errors.NotFound("job", id))
}

func (s *GORMStore) ListJobsByStatus(ctx context.Context, status JobStatus) ([]*JobRecord, error) {
	var results []*JobRecord
	err := s.db.WithContext(ctx).Where("status = ?", status).Find(&results).Error
	return results, err
}

// ListActiveJobs returns jobs in Queued, Running, or Paused state — the set
// considered for dedup-by-hash rejection and shutdown serialization.
func (s *GORMStore) ListActiveJobs(ctx context.Context) ([]*JobRecord, error) {
	var results []*JobRecord
	err := s.db.WithContext(ctx).
		Where("status IN ?", []JobStatus{JobStatusQueued, JobStatusRunning, JobStatusPaused}).
		Find(&results).Error
	return results, err
}

func (s *GORMStore) ListJobsByDedupHash(ctx context.Context, hash uint64) ([]*JobRecord, error) {
	var results []*JobRecord
	err := s.db.WithContext(ctx).Where("dedup_hash = ?", hash).Find(&results).Error
	return results, err
}

func (s *GORMStore) CreateJob(ctx context.Context, job *JobRecord) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *GORMStore) UpdateJob(ctx context.Context, job *JobRecord) error {
	result := s.db.WithContext(ctx).Where("id = ?", job.ID).Updates(job)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("job", job.ID)
	}
	return nil
}

func (s *GORMStore) DeleteJob(ctx context.Context, id string) error {
	return deleteByField[JobRecord](s.db, ctx, "id", id, errors.NotFound("job", id))
}
