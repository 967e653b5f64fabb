package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/catalogsync/internal/domain"
	"gorm.io/gorm"
)

// UploadRepository persists upload jobs and their progress counters.
type UploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository creates a new UploadRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *UploadRepository: repository instance bound to db.
func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create inserts a new upload job record.
func (r *UploadRepository) Create(ctx context.Context, job *domain.UploadJob) error {
	return classify(r.db.WithContext(ctx).Create(job).Error)
}

// Load retrieves an upload job by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: upload job ID.
//
// Returns:
//   - *domain.UploadJob: job record if found.
//   - error: ErrUploadNotFound when no job has this ID.
func (r *UploadRepository) Load(ctx context.Context, id string) (*domain.UploadJob, error) {
	var job domain.UploadJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUploadNotFound, id)
		}
		return nil, classify(err)
	}
	return &job, nil
}

// Save writes the full job record in a single statement.
func (r *UploadRepository) Save(ctx context.Context, job *domain.UploadJob) error {
	return classify(r.db.WithContext(ctx).Save(job).Error)
}

// ListRecent returns the most recently created jobs, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//
// Returns:
//   - []domain.UploadJob: matching jobs.
//   - error: non-nil if the query fails.
func (r *UploadRepository) ListRecent(ctx context.Context, limit int) ([]domain.UploadJob, error) {
	var jobs []domain.UploadJob
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, classify(err)
	}
	return jobs, nil
}

// ListByStatus returns jobs currently in status, oldest first.
// Used at startup to find jobs left in processing by a killed run.
func (r *UploadRepository) ListByStatus(ctx context.Context, status domain.UploadStatus, limit int) ([]domain.UploadJob, error) {
	var jobs []domain.UploadJob
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, classify(err)
	}
	return jobs, nil
}
