package engine

import (
	"reflect"
	"testing"

	"github.com/lromero/facturabot/internal/domain"
)

func TestPlanGroupsByNormalizedProvider(t *testing.T) {
	items := []domain.WorkItem{
		{Provider: "Suizo Argentina", Identifier: "1"},
		{Provider: "MONROE", Identifier: "2"},
		{Provider: "suizo", Identifier: "3"},
	}

	batches := Plan(items, 10, "exec-1")
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}

	byProvider := make(map[string][]string)
	for _, b := range batches {
		byProvider[b.Provider] = append(byProvider[b.Provider], b.Identifiers()...)
	}
	if !reflect.DeepEqual(byProvider["suizo"], []string{"1", "3"}) {
		t.Errorf("suizo group = %v, want [1 3]", byProvider["suizo"])
	}
	if !reflect.DeepEqual(byProvider["monroe"], []string{"2"}) {
		t.Errorf("monroe group = %v, want [2]", byProvider["monroe"])
	}
}

func TestPlanChunksPreserveOrder(t *testing.T) {
	items := testItems("1", "2", "3", "4", "5", "6", "7")

	batches := Plan(items, 3, "exec-1")
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}

	want := [][]string{{"1", "2", "3"}, {"4", "5", "6"}, {"7"}}
	for i, b := range batches {
		if !reflect.DeepEqual(b.Identifiers(), want[i]) {
			t.Errorf("batch %d = %v, want %v", i, b.Identifiers(), want[i])
		}
		if b.BatchIndex != i {
			t.Errorf("batch %d has index %d", i, b.BatchIndex)
		}
		if b.TotalBatches != 3 {
			t.Errorf("batch %d reports %d total batches", i, b.TotalBatches)
		}
		if b.ExecutionID != "exec-1" {
			t.Errorf("batch %d carries execution %q", i, b.ExecutionID)
		}
	}
}

func TestPlanGlobalIndexesAcrossProviders(t *testing.T) {
	items := []domain.WorkItem{
		{Provider: "suizo", Identifier: "1"},
		{Provider: "monroe", Identifier: "2"},
	}

	batches := Plan(items, 1, "exec-1")
	seen := make(map[int]bool)
	for _, b := range batches {
		if seen[b.BatchIndex] {
			t.Fatalf("duplicate batch index %d", b.BatchIndex)
		}
		seen[b.BatchIndex] = true
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	items := []domain.WorkItem{
		{Provider: "monroe", Identifier: "9"},
		{Provider: "suizo", Identifier: "1"},
		{Provider: "suizo", Identifier: "2"},
	}

	first := Plan(items, 2, "exec-1")
	second := Plan(items, 2, "exec-1")
	if !reflect.DeepEqual(first, second) {
		t.Error("same input produced different plans")
	}
}

func TestPlanClampsBatchSize(t *testing.T) {
	batches := Plan(testItems("1", "2"), 0, "exec-1")
	if len(batches) != 2 {
		t.Fatalf("expected one item per batch, got %d batches", len(batches))
	}
}
