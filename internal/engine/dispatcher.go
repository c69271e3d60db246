package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/portal"
)

// JobRecorder persists the queueing state of each batch. A nil recorder
// disables tracking.
type JobRecorder interface {
	Record(ctx context.Context, job *domain.BatchJob) error
	UpdateStatus(ctx context.Context, executionID string, batchIndex int, status domain.BatchJobStatus, log *domain.ExecutionLog) error
}

// QueueClient hands batches to the task queue by posting their payloads to
// the worker URL.
type QueueClient struct {
	http      *resty.Client
	workerURL string
}

func NewQueueClient(workerURL, authToken string, timeout time.Duration) *QueueClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if authToken != "" {
		client.SetAuthToken(authToken)
	}
	return &QueueClient{http: client, workerURL: workerURL}
}

// Enqueue submits one batch payload. Any non-2xx response is an error so the
// dispatcher can mark the batch as failed to queue.
func (q *QueueClient) Enqueue(ctx context.Context, payload domain.BatchPayload) error {
	resp, err := q.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(q.workerURL)
	if err != nil {
		return fmt.Errorf("failed to enqueue batch: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("queue rejected batch: status %d", resp.StatusCode())
	}
	return nil
}

// BatchDispatch reports the fate of one planned batch.
type BatchDispatch struct {
	Provider   string          `json:"provider"`
	BatchIndex int             `json:"batch_index"`
	Size       int             `json:"size"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Summary    *domain.Summary `json:"summary,omitempty"`
}

// DispatchResult is the outcome of fanning out (or locally running) a plan.
type DispatchResult struct {
	ExecutionID string          `json:"execution_id"`
	Mode        string          `json:"mode"`
	Batches     []BatchDispatch `json:"batches"`
}

// Dispatcher routes planned batches either to the queue for parallel worker
// execution or through the local runner when no queue is configured.
type Dispatcher struct {
	runner   *BatchRunner
	registry *portal.Registry
	queue    *QueueClient
	jobs     JobRecorder
}

func NewDispatcher(runner *BatchRunner, registry *portal.Registry, queue *QueueClient, jobs JobRecorder) *Dispatcher {
	return &Dispatcher{runner: runner, registry: registry, queue: queue, jobs: jobs}
}

// Dispatch fans the plan out. With a configured queue each batch becomes one
// enqueue attempt and a failed enqueue never aborts the remaining batches.
// With forceLocal (or no queue) batches run sequentially in-process.
func (d *Dispatcher) Dispatch(ctx context.Context, batches []domain.Batch, forceLocal bool) (*DispatchResult, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("nothing to dispatch: empty plan")
	}

	result := &DispatchResult{ExecutionID: batches[0].ExecutionID}
	if d.queue != nil && !forceLocal {
		result.Mode = "queued"
		d.enqueueAll(ctx, batches, result)
	} else {
		result.Mode = "local"
		d.runAll(ctx, batches, result)
	}
	return result, nil
}

func (d *Dispatcher) enqueueAll(ctx context.Context, batches []domain.Batch, result *DispatchResult) {
	for i := range batches {
		batch := &batches[i]
		dispatch := BatchDispatch{
			Provider:   batch.Provider,
			BatchIndex: batch.BatchIndex,
			Size:       len(batch.Items),
		}

		d.recordJob(ctx, batch, domain.BatchJobQueued)
		if err := d.queue.Enqueue(ctx, batch.Payload()); err != nil {
			logger.CtxError(ctx, "Failed to enqueue batch %d for %s: %v", batch.BatchIndex, batch.Provider, err)
			dispatch.Status = string(domain.BatchJobFailedToQueue)
			dispatch.Error = err.Error()
			d.updateJob(ctx, batch, domain.BatchJobFailedToQueue, nil)
		} else {
			logger.CtxInfo(ctx, "Enqueued batch %d/%d for %s (%d items)",
				batch.BatchIndex+1, batch.TotalBatches, batch.Provider, len(batch.Items))
			dispatch.Status = string(domain.BatchJobQueued)
		}
		result.Batches = append(result.Batches, dispatch)
	}
}

func (d *Dispatcher) runAll(ctx context.Context, batches []domain.Batch, result *DispatchResult) {
	for i := range batches {
		batch := &batches[i]
		dispatch := BatchDispatch{
			Provider:   batch.Provider,
			BatchIndex: batch.BatchIndex,
			Size:       len(batch.Items),
		}

		d.recordJob(ctx, batch, domain.BatchJobQueued)
		log, err := d.runOne(ctx, batch)
		switch {
		case errors.Is(err, domain.ErrDuplicateBatch):
			dispatch.Status = string(domain.BatchJobSkipped)
			d.updateJob(ctx, batch, domain.BatchJobSkipped, nil)
		case err != nil:
			dispatch.Status = string(domain.BatchJobFailed)
			dispatch.Error = err.Error()
			d.updateJob(ctx, batch, domain.BatchJobFailed, log)
		default:
			dispatch.Status = string(domain.BatchJobCompleted)
			dispatch.Summary = &log.Summary
			d.updateJob(ctx, batch, domain.BatchJobCompleted, log)
		}
		result.Batches = append(result.Batches, dispatch)
	}
}

// runOne gives every batch a fresh portal session so worker and local paths
// behave identically.
func (d *Dispatcher) runOne(ctx context.Context, batch *domain.Batch) (*domain.ExecutionLog, error) {
	client, err := d.registry.Create(batch.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal client for %s: %w", batch.Provider, err)
	}
	defer client.Close()

	return d.runner.Run(ctx, batch, client)
}

// Execute runs a delivered batch payload on behalf of the worker endpoint.
func (d *Dispatcher) Execute(ctx context.Context, payload domain.BatchPayload) (*domain.ExecutionLog, error) {
	batch := payload.ToBatch()
	log, err := d.runOne(ctx, batch)
	switch {
	case errors.Is(err, domain.ErrDuplicateBatch):
		d.updateJob(ctx, batch, domain.BatchJobSkipped, nil)
	case err != nil:
		d.updateJob(ctx, batch, domain.BatchJobFailed, log)
	default:
		d.updateJob(ctx, batch, domain.BatchJobCompleted, log)
	}
	return log, err
}

func (d *Dispatcher) recordJob(ctx context.Context, batch *domain.Batch, status domain.BatchJobStatus) {
	if d.jobs == nil {
		return
	}
	job := &domain.BatchJob{
		ExecutionID:  batch.ExecutionID,
		BatchIndex:   batch.BatchIndex,
		TotalBatches: batch.TotalBatches,
		Provider:     batch.Provider,
		Size:         len(batch.Items),
		Status:       status,
	}
	if err := d.jobs.Record(ctx, job); err != nil {
		logger.CtxWarn(ctx, "Failed to record batch job: %v", err)
	}
}

func (d *Dispatcher) updateJob(ctx context.Context, batch *domain.Batch, status domain.BatchJobStatus, log *domain.ExecutionLog) {
	if d.jobs == nil {
		return
	}
	if err := d.jobs.UpdateStatus(ctx, batch.ExecutionID, batch.BatchIndex, status, log); err != nil {
		logger.CtxWarn(ctx, "Failed to update batch job status: %v", err)
	}
}
