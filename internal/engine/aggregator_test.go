package engine

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/storage/storagetest"
)

func storedLog(t *testing.T, store *storagetest.MemStore, executionID string, batchIndex int, results ...domain.ItemResult) domain.ExecutionLog {
	t.Helper()
	idx := batchIndex
	log := domain.ExecutionLog{
		ExecutionID: executionID,
		BatchIndex:  &idx,
		Provider:    "suizo",
		WindowStart: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 8, 29, 10, 5, 0, 0, time.UTC),
		Results:     results,
	}
	log.Finalize()

	data, err := json.Marshal(log)
	if err != nil {
		t.Fatal(err)
	}
	store.Put(log.ObjectKey(), data)
	return log
}

func TestListDatesNewestFirst(t *testing.T) {
	store := newMemStore()
	store.Put("logs/2026-08-27/execution_a.json", []byte("{}"))
	store.Put("logs/2026-08-29/execution_b.json", []byte("{}"))
	store.Put("logs/2026-08-29/execution_c.json", []byte("{}"))
	store.Put("invoices/2026-08-29/100.txt", []byte("txt"))

	dates, err := NewAggregator(store).ListDates(context.Background())
	if err != nil {
		t.Fatalf("ListDates: %v", err)
	}
	if !reflect.DeepEqual(dates, []string{"2026-08-29", "2026-08-27"}) {
		t.Errorf("dates = %v", dates)
	}
}

func TestReportForDateMergesLogs(t *testing.T) {
	store := newMemStore()
	storedLog(t, store, "exec-1", 0,
		domain.ItemResult{Identifier: "100", Success: true},
		domain.ItemResult{Identifier: "200", Success: false, ErrorKind: domain.ErrKindNotFound},
	)
	storedLog(t, store, "exec-1", 1,
		domain.ItemResult{Identifier: "300", Success: true},
	)

	report, err := NewAggregator(store).ReportForDate(context.Background(), "2026-08-29")
	if err != nil {
		t.Fatalf("ReportForDate: %v", err)
	}

	if report.BatchCount != 2 {
		t.Errorf("BatchCount = %d, want 2", report.BatchCount)
	}
	want := domain.Summary{Total: 3, Successful: 2, Failed: 1}
	if report.Summary != want {
		t.Errorf("Summary = %+v, want %+v", report.Summary, want)
	}
	if !reflect.DeepEqual(report.FailedIdentifiers, []string{"200"}) {
		t.Errorf("FailedIdentifiers = %v", report.FailedIdentifiers)
	}
}

func TestReportForDateSkipsCorruptLogs(t *testing.T) {
	store := newMemStore()
	storedLog(t, store, "exec-1", 0, domain.ItemResult{Identifier: "100", Success: true})
	store.Put("logs/2026-08-29/execution_broken.json", []byte("not json"))

	report, err := NewAggregator(store).ReportForDate(context.Background(), "2026-08-29")
	if err != nil {
		t.Fatalf("ReportForDate: %v", err)
	}
	if report.BatchCount != 1 {
		t.Errorf("BatchCount = %d, want 1 (corrupt log skipped)", report.BatchCount)
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	a := domain.ExecutionLog{ExecutionID: "exec-1", Results: []domain.ItemResult{{Identifier: "1", Success: true}}}
	b := domain.ExecutionLog{ExecutionID: "exec-2", Results: []domain.ItemResult{{Identifier: "2"}}}
	a.Finalize()
	b.Finalize()

	first := Merge("2026-08-29", []domain.ExecutionLog{a, b})
	second := Merge("2026-08-29", []domain.ExecutionLog{b, a})
	if !reflect.DeepEqual(first, second) {
		t.Error("merge result depends on input order")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	logs := []domain.ExecutionLog{
		{ExecutionID: "exec-1", Results: []domain.ItemResult{{Identifier: "1", Success: true}}},
	}
	logs[0].Finalize()

	first := Merge("2026-08-29", logs)
	second := Merge("2026-08-29", logs)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated merge of the same logs differs")
	}
	if len(logs[0].Results) != 1 {
		t.Error("merge mutated its input")
	}
}

func TestMergeEmptyDay(t *testing.T) {
	report := Merge("2026-08-29", nil)
	if report.BatchCount != 0 || report.Summary.Total != 0 {
		t.Errorf("empty merge = %+v", report)
	}
}
