package domain

import "time"

// BatchJobStatus tracks the lifecycle of one planned batch.
type BatchJobStatus string

const (
	BatchJobQueued        BatchJobStatus = "queued"
	BatchJobFailedToQueue BatchJobStatus = "failed_to_queue"
	BatchJobCompleted     BatchJobStatus = "completed"
	BatchJobSkipped       BatchJobStatus = "skipped" // duplicate delivery, no-op
	BatchJobFailed        BatchJobStatus = "failed"
)

// BatchJob is the durable record of one planned batch. The unique
// execution_id + batch_index pair doubles as the idempotency marker for
// at-least-once queue delivery.
type BatchJob struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ExecutionID  string         `gorm:"type:text;not null;index:idx_batch_jobs_exec_batch,unique" json:"execution_id"`
	BatchIndex   int            `gorm:"not null;index:idx_batch_jobs_exec_batch,unique" json:"batch_index"`
	TotalBatches int            `gorm:"default:0" json:"total_batches"`
	Provider     string         `gorm:"type:text;not null;index" json:"provider"`
	Size         int            `gorm:"default:0" json:"size"`
	Status       BatchJobStatus `gorm:"default:queued" json:"status"`
	Successful   int            `gorm:"default:0" json:"successful"`
	Failed       int            `gorm:"default:0" json:"failed"`
	ErrorLog     string         `json:"error_log,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TableName returns the database table name for BatchJob.
func (BatchJob) TableName() string {
	return "batch_jobs"
}
