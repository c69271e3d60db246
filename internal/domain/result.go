package domain

import (
	"fmt"
	"time"
)

// ItemResult is the immutable outcome of processing one work item.
type ItemResult struct {
	Identifier  string    `json:"identifier"`
	Success     bool      `json:"success"`
	FilePath    string    `json:"file_path,omitempty"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	RetriesUsed int       `json:"retries_used"`
	Timestamp   time.Time `json:"timestamp"`
}

// Summary holds the counters of one batch run. Total always equals the
// number of results.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// DiagnosticArtifact is an uploaded failure snapshot (portal page capture)
// referenced from the execution log.
type DiagnosticArtifact struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// ExecutionLog is the audit record of exactly one batch-runner invocation.
// Each worker writes its own log under a key that cannot collide with
// sibling batches, which is what makes the logs mergeable afterwards.
type ExecutionLog struct {
	ExecutionID       string               `json:"execution_id"`
	BatchIndex        *int                 `json:"batch_index,omitempty"`
	Provider          string               `json:"provider"`
	WindowStart       time.Time            `json:"window_start"`
	WindowEnd         time.Time            `json:"window_end"`
	Summary           Summary              `json:"summary"`
	Results           []ItemResult         `json:"results"`
	Details           []ResultDetail       `json:"detailed_results,omitempty"`
	FailedIdentifiers []string             `json:"failed_identifiers"`
	Diagnostics       []DiagnosticArtifact `json:"diagnostics"`
}

// Finalize recomputes the summary and failed identifier list from the
// results. Call once when a batch run ends.
func (l *ExecutionLog) Finalize() {
	l.Summary = Summary{Total: len(l.Results)}
	l.FailedIdentifiers = nil
	for _, r := range l.Results {
		if r.Success {
			l.Summary.Successful++
		} else {
			l.Summary.Failed++
			l.FailedIdentifiers = append(l.FailedIdentifiers, r.Identifier)
		}
	}
}

// ObjectKey returns the storage key of the log, namespaced by date so
// reports can be listed per day: logs/<date>/execution_<id>[_batch_<n>].json
func (l *ExecutionLog) ObjectKey() string {
	return LogObjectKey(l.WindowStart, l.ExecutionID, l.BatchIndex)
}

// LogObjectKey builds the storage key for an execution log. batchIndex is
// nil for local (non-fanned-out) runs.
func LogObjectKey(date time.Time, executionID string, batchIndex *int) string {
	name := fmt.Sprintf("execution_%s.json", executionID)
	if batchIndex != nil {
		name = fmt.Sprintf("execution_%s_batch_%d.json", executionID, *batchIndex)
	}
	return fmt.Sprintf("logs/%s/%s", date.Format("2006-01-02"), name)
}

// ConsolidatedReport is the merged view over all execution logs of one day.
type ConsolidatedReport struct {
	Date              string         `json:"date"`
	BatchCount        int            `json:"batches_count"`
	Summary           Summary        `json:"consolidated_summary"`
	FailedIdentifiers []string       `json:"failed_identifiers"`
	Logs              []ExecutionLog `json:"logs"`
}
