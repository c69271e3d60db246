package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/storage"
)

const logPrefix = "logs/"

// Aggregator reads the per-batch execution logs of a day back from the
// artifact store and merges them into one consolidated report.
type Aggregator struct {
	store storage.ObjectStorage
}

func NewAggregator(store storage.ObjectStorage) *Aggregator {
	return &Aggregator{store: store}
}

// ListDates returns the dates that have at least one execution log, newest
// first.
func (a *Aggregator) ListDates(ctx context.Context) ([]string, error) {
	keys, err := a.store.List(ctx, logPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list execution logs: %w", err)
	}

	seen := make(map[string]bool)
	var dates []string
	for _, key := range keys {
		rest := strings.TrimPrefix(key, logPrefix)
		date, _, ok := strings.Cut(rest, "/")
		if !ok || seen[date] {
			continue
		}
		seen[date] = true
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// ReportForDate downloads every execution log of the given date and merges
// them. Unreadable log objects are skipped so one corrupt artifact cannot
// hide a whole day.
func (a *Aggregator) ReportForDate(ctx context.Context, date string) (*domain.ConsolidatedReport, error) {
	prefix := logPrefix + date + "/"
	keys, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs for %s: %w", date, err)
	}

	var logs []domain.ExecutionLog
	for _, key := range keys {
		if path.Ext(key) != ".json" {
			continue
		}
		log, err := a.readLog(ctx, key)
		if err != nil {
			logger.CtxWarn(ctx, "Skipping unreadable log %s: %v", key, err)
			continue
		}
		logs = append(logs, *log)
	}

	return Merge(date, logs), nil
}

func (a *Aggregator) readLog(ctx context.Context, key string) (*domain.ExecutionLog, error) {
	r, err := a.store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var log domain.ExecutionLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("invalid log JSON: %w", err)
	}
	return &log, nil
}

// Merge combines execution logs into a consolidated report. It is a pure
// function of its inputs: the same logs in any order produce the same
// report, so re-running a day's aggregation is always safe.
func Merge(date string, logs []domain.ExecutionLog) *domain.ConsolidatedReport {
	sorted := make([]domain.ExecutionLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ExecutionID != sorted[j].ExecutionID {
			return sorted[i].ExecutionID < sorted[j].ExecutionID
		}
		return batchSortKey(&sorted[i]) < batchSortKey(&sorted[j])
	})

	report := &domain.ConsolidatedReport{
		Date:       date,
		BatchCount: len(sorted),
		Logs:       sorted,
	}
	for _, log := range sorted {
		report.Summary.Total += log.Summary.Total
		report.Summary.Successful += log.Summary.Successful
		report.Summary.Failed += log.Summary.Failed
		report.FailedIdentifiers = append(report.FailedIdentifiers, log.FailedIdentifiers...)
	}
	return report
}

func batchSortKey(log *domain.ExecutionLog) int {
	if log.BatchIndex == nil {
		return -1
	}
	return *log.BatchIndex
}
