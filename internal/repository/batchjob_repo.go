package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lromero/facturabot/internal/domain"
)

// BatchJobRepository handles batch job tracking operations.
type BatchJobRepository struct {
	db *gorm.DB
}

// NewBatchJobRepository creates a new BatchJobRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *BatchJobRepository: repository instance bound to db.
func NewBatchJobRepository(db *gorm.DB) *BatchJobRepository {
	return &BatchJobRepository{db: db}
}

// Record creates or refreshes the job row for a batch, keyed by execution ID
// and batch index. Redelivered batches update the existing row instead of
// violating the unique index.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: batch job record to persist.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *BatchJobRepository) Record(ctx context.Context, job *domain.BatchJob) error {
	now := time.Now()
	job.StartedAt = &now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "execution_id"}, {Name: "batch_index"}},
		UpdateAll: true,
	}).Create(job).Error
}

// UpdateStatus transitions a batch job and, when an execution log is
// available, copies its summary counters onto the row.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - executionID: execution the batch belongs to.
//   - batchIndex: index of the batch within the execution.
//   - status: new lifecycle status.
//   - log: execution log of the finished batch, may be nil.
// Returns:
//   - error: non-nil if the update fails.
func (r *BatchJobRepository) UpdateStatus(ctx context.Context, executionID string, batchIndex int, status domain.BatchJobStatus, log *domain.ExecutionLog) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if status == domain.BatchJobCompleted || status == domain.BatchJobFailed {
		now := time.Now()
		updates["completed_at"] = &now
	}
	if log != nil {
		updates["successful"] = log.Summary.Successful
		updates["failed"] = log.Summary.Failed
	}
	return r.db.WithContext(ctx).Model(&domain.BatchJob{}).
		Where("execution_id = ? AND batch_index = ?", executionID, batchIndex).
		Updates(updates).Error
}

// ListByExecution returns the job rows of one execution ordered by batch
// index.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - executionID: execution to list.
// Returns:
//   - []domain.BatchJob: job rows in batch order.
//   - error: non-nil if the query fails.
func (r *BatchJobRepository) ListByExecution(ctx context.Context, executionID string) ([]domain.BatchJob, error) {
	var jobs []domain.BatchJob
	err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("batch_index ASC").
		Find(&jobs).Error
	return jobs, err
}

// CountByStatus returns how many jobs of an execution are in each status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - executionID: execution to summarize.
// Returns:
//   - map[domain.BatchJobStatus]int64: per-status counts.
//   - error: non-nil if the query fails.
func (r *BatchJobRepository) CountByStatus(ctx context.Context, executionID string) (map[domain.BatchJobStatus]int64, error) {
	type row struct {
		Status domain.BatchJobStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&domain.BatchJob{}).
		Select("status, count(*) as count").
		Where("execution_id = ?", executionID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.BatchJobStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
