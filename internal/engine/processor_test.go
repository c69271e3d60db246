package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/lromero/facturabot/internal/domain"
)

func TestProcessFirstAttemptSuccess(t *testing.T) {
	client := newFakeClient(t, "suizo")
	ec := NewExecContext("exec-1", nil, "suizo", newMemStore())

	result := newTestProcessor(4).Process(context.Background(), client, domain.WorkItem{Identifier: "100"}, ec)

	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.RetriesUsed != 0 {
		t.Errorf("RetriesUsed = %d, want 0", result.RetriesUsed)
	}
	if result.FilePath == "" {
		t.Error("expected a file path")
	}
}

func TestProcessRetriesTransientErrors(t *testing.T) {
	client := newFakeClient(t, "suizo")
	client.scripts["100"] = []error{
		domain.NewPortalError(domain.ErrKindTransient, errors.New("portal hiccup")),
		domain.NewPortalError(domain.ErrKindTimeout, errors.New("slow portal")),
	}
	ec := NewExecContext("exec-1", nil, "suizo", newMemStore())

	result := newTestProcessor(4).Process(context.Background(), client, domain.WorkItem{Identifier: "100"}, ec)

	if !result.Success {
		t.Fatalf("expected eventual success, got %+v", result)
	}
	if result.RetriesUsed != 2 {
		t.Errorf("RetriesUsed = %d, want 2", result.RetriesUsed)
	}
	if client.downloads["100"] != 3 {
		t.Errorf("download attempts = %d, want 3", client.downloads["100"])
	}
}

func TestProcessStopsOnTerminalError(t *testing.T) {
	client := newFakeClient(t, "suizo")
	client.scripts["100"] = []error{
		domain.NewPortalError(domain.ErrKindNotFound, errors.New("sin resultados")),
	}
	ec := NewExecContext("exec-1", nil, "suizo", newMemStore())

	result := newTestProcessor(4).Process(context.Background(), client, domain.WorkItem{Identifier: "100"}, ec)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.ErrorKind != domain.ErrKindNotFound {
		t.Errorf("ErrorKind = %s, want not_found", result.ErrorKind)
	}
	if result.RetriesUsed != 0 {
		t.Errorf("RetriesUsed = %d, want 0", result.RetriesUsed)
	}
	if client.downloads["100"] != 1 {
		t.Errorf("download attempts = %d, want 1", client.downloads["100"])
	}
}

func TestProcessExhaustsRetryBudget(t *testing.T) {
	transient := domain.NewPortalError(domain.ErrKindTransient, errors.New("still broken"))
	client := newFakeClient(t, "suizo")
	client.scripts["100"] = []error{transient, transient, transient}
	ec := NewExecContext("exec-1", nil, "suizo", newMemStore())

	result := newTestProcessor(3).Process(context.Background(), client, domain.WorkItem{Identifier: "100"}, ec)

	if result.Success {
		t.Fatal("expected failure")
	}
	if result.RetriesUsed != 3 {
		t.Errorf("RetriesUsed = %d, want 3", result.RetriesUsed)
	}
	if client.downloads["100"] != 3 {
		t.Errorf("download attempts = %d, want 3", client.downloads["100"])
	}
	if result.ErrorDetail == "" {
		t.Error("expected error detail from last attempt")
	}
}

func TestProcessCapturesDiagnosticOnExhaustion(t *testing.T) {
	transient := domain.NewPortalError(domain.ErrKindTransient, errors.New("still broken"))
	client := newFakeClient(t, "suizo")
	client.scripts["100"] = []error{transient, transient}
	store := newMemStore()
	ec := NewExecContext("exec-1", nil, "suizo", store)

	newTestProcessor(2).Process(context.Background(), client, domain.WorkItem{Identifier: "100"}, ec)

	log := ec.Finalize()
	if len(log.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(log.Diagnostics))
	}
	keys, _ := store.List(context.Background(), "screenshots/")
	if len(keys) != 1 {
		t.Errorf("expected 1 uploaded snapshot, got %v", keys)
	}
}

func TestProcessUnclassifiedErrorIsRetried(t *testing.T) {
	client := newFakeClient(t, "suizo")
	client.scripts["100"] = []error{errors.New("plain failure")}
	ec := NewExecContext("exec-1", nil, "suizo", newMemStore())

	result := newTestProcessor(2).Process(context.Background(), client, domain.WorkItem{Identifier: "100"}, ec)

	if !result.Success {
		t.Fatalf("expected success after retry, got %+v", result)
	}
	if result.RetriesUsed != 1 {
		t.Errorf("RetriesUsed = %d, want 1", result.RetriesUsed)
	}
}
