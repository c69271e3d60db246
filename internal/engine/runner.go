package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/portal"
	"github.com/lromero/facturabot/internal/storage"
)

// BatchRunner drives one batch end to end: login, portal setup, sequential
// item processing, then log persistence. A batch is consumed by exactly one
// invocation; redelivered batches are detected through the log key and
// skipped.
type BatchRunner struct {
	processor *ItemProcessor
	store     storage.ObjectStorage
	uploader  *ArtifactUploader
	now       func() time.Time
}

func NewBatchRunner(processor *ItemProcessor, store storage.ObjectStorage, uploader *ArtifactUploader) *BatchRunner {
	return &BatchRunner{processor: processor, store: store, uploader: uploader, now: time.Now}
}

// Run processes every item of the batch against the given portal client and
// persists the execution log. It returns domain.ErrDuplicateBatch without
// touching the portal when a log for this batch already exists, which keeps
// at-least-once queue delivery safe.
func (r *BatchRunner) Run(ctx context.Context, batch *domain.Batch, client portal.Client) (*domain.ExecutionLog, error) {
	ctx = logger.SetExecutionID(ctx, batch.ExecutionID)
	ctx = logger.SetProvider(ctx, batch.Provider)
	ctx = logger.SetBatchIndex(ctx, batch.BatchIndex)

	ec := NewExecContext(batch.ExecutionID, &batch.BatchIndex, batch.Provider, r.store)

	if exists, err := r.store.Exists(ctx, ec.LogKey()); err == nil && exists {
		logger.CtxWarn(ctx, "Log %s already exists, skipping redelivered batch", ec.LogKey())
		return nil, domain.ErrDuplicateBatch
	}

	logger.CtxInfo(ctx, "Processing batch of %d items for %s", len(batch.Items), batch.Provider)

	if err := client.Login(ctx); err != nil {
		logger.CtxError(ctx, "Login to %s failed: %v", batch.Provider, err)
		ec.CaptureDiagnostic(ctx, client, "login_failed")
		r.failAll(ec, batch, domain.ErrKindAuth, err)
		return r.finish(ctx, ec)
	}

	if err := client.Setup(ctx); err != nil {
		logger.CtxError(ctx, "Setup for %s failed: %v", batch.Provider, err)
		ec.CaptureDiagnostic(ctx, client, "setup_failed")
		r.failAll(ec, batch, domain.ErrKindSetup, err)
		return r.finish(ctx, ec)
	}

	for _, item := range batch.Items {
		r.processor.Process(ctx, client, item, ec)
	}

	if r.uploader != nil {
		records := r.uploader.UploadResults(ctx, ec.Results())
		ec.AttachUploads(records)
	}

	return r.finish(ctx, ec)
}

// failAll records a synthetic failure for every item in the batch. Used when
// login or setup fails before any item was attempted, so the per-item retry
// budget is untouched.
func (r *BatchRunner) failAll(ec *ExecContext, batch *domain.Batch, kind domain.ErrorKind, err error) {
	for _, item := range batch.Items {
		ec.Record(domain.ItemResult{
			Identifier:  item.Identifier,
			Success:     false,
			ErrorKind:   kind,
			ErrorDetail: err.Error(),
			RetriesUsed: 0,
			Timestamp:   r.now(),
		})
	}
}

func (r *BatchRunner) finish(ctx context.Context, ec *ExecContext) (*domain.ExecutionLog, error) {
	log := ec.Finalize()

	if err := r.persistLog(ctx, log); err != nil {
		logger.CtxError(ctx, "Failed to persist execution log %s: %v", log.ObjectKey(), err)
		return log, fmt.Errorf("persist execution log: %w", err)
	}

	logger.CtxInfo(ctx, "Batch done: %d/%d successful", log.Summary.Successful, log.Summary.Total)
	return log, nil
}

func (r *BatchRunner) persistLog(ctx context.Context, log *domain.ExecutionLog) error {
	_, err := storage.UploadJSON(ctx, r.store, log.ObjectKey(), log)
	return err
}
