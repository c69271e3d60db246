package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/portal"
	"github.com/lromero/facturabot/internal/storage"
)

// ExecContext is the execution state of exactly one batch run. It is an
// explicit value threaded through the runner and processor, so isolated
// worker processes never share accumulated state and the log can be
// finalized in one place at batch end.
type ExecContext struct {
	ExecutionID string
	BatchIndex  *int
	Provider    string

	store       storage.ObjectStorage
	windowStart time.Time
	results     []domain.ItemResult
	details     []domain.ResultDetail
	diagnostics []domain.DiagnosticArtifact
	successful  int
	failed      int
	now         func() time.Time
}

// NewExecContext starts the execution window of a batch run.
func NewExecContext(executionID string, batchIndex *int, provider string, store storage.ObjectStorage) *ExecContext {
	ec := &ExecContext{
		ExecutionID: executionID,
		BatchIndex:  batchIndex,
		Provider:    provider,
		store:       store,
		now:         time.Now,
	}
	ec.windowStart = ec.now()
	return ec
}

// Record appends an item result and updates the running totals.
func (ec *ExecContext) Record(r domain.ItemResult) {
	ec.results = append(ec.results, r)
	if r.Success {
		ec.successful++
	} else {
		ec.failed++
	}
}

// Totals returns the running success/failure counters.
func (ec *ExecContext) Totals() (successful, failed int) {
	return ec.successful, ec.failed
}

// Results returns the results recorded so far, in processing order.
func (ec *ExecContext) Results() []domain.ItemResult {
	return ec.results
}

// AttachUploads joins upload records onto the recorded results and builds
// the detailed per-item rows carried in the log.
func (ec *ExecContext) AttachUploads(records []domain.UploadRecord) {
	ec.details = CorrelateUploads(ec.results, records)

	links := make(map[string]string)
	for _, rec := range records {
		if rec.Uploaded && rec.Identifier != "" {
			links[rec.Identifier] = rec.RemoteLink
		}
	}
	for i := range ec.results {
		if url, ok := links[ec.results[i].Identifier]; ok {
			ec.results[i].ArtifactURL = url
		}
	}
}

// LogKey returns the storage key this run's log will be written under.
func (ec *ExecContext) LogKey() string {
	return domain.LogObjectKey(ec.windowStart, ec.ExecutionID, ec.BatchIndex)
}

// CaptureDiagnostic takes a portal snapshot and uploads it immediately so a
// crashed worker still leaves its evidence behind. Failures here only cost
// the diagnostic, never the batch.
func (ec *ExecContext) CaptureDiagnostic(ctx context.Context, client portal.Client, name string) {
	localPath, err := client.Snapshot(name)
	if err != nil {
		logger.CtxWarn(ctx, "Failed to capture diagnostic %s: %v", name, err)
		return
	}

	artifact := domain.DiagnosticArtifact{Name: name, Timestamp: ec.now()}
	key := fmt.Sprintf("screenshots/%s/%s/%s",
		ec.windowStart.Format("2006-01-02"), ec.Provider, filepath.Base(localPath))

	url, err := storage.UploadFile(ctx, ec.store, localPath, key, "text/html")
	if err != nil {
		logger.CtxWarn(ctx, "Failed to upload diagnostic %s: %v", name, err)
		artifact.URL = localPath
	} else {
		artifact.URL = url
	}

	ec.diagnostics = append(ec.diagnostics, artifact)
}

// Finalize closes the execution window and builds the immutable log.
func (ec *ExecContext) Finalize() *domain.ExecutionLog {
	log := &domain.ExecutionLog{
		ExecutionID: ec.ExecutionID,
		BatchIndex:  ec.BatchIndex,
		Provider:    ec.Provider,
		WindowStart: ec.windowStart,
		WindowEnd:   ec.now(),
		Results:     ec.results,
		Details:     ec.details,
		Diagnostics: ec.diagnostics,
	}
	log.Finalize()
	return log
}
