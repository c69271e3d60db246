package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/storage/storagetest"
)

func testBatch(ids ...string) *domain.Batch {
	return &domain.Batch{
		Provider:     "suizo",
		Items:        testItems(ids...),
		BatchIndex:   0,
		TotalBatches: 1,
		ExecutionID:  "exec-1",
	}
}

func newTestRunner(store *storagetest.MemStore) *BatchRunner {
	return NewBatchRunner(newTestProcessor(3), store, NewArtifactUploader(store))
}

func TestRunHappyPath(t *testing.T) {
	store := newMemStore()
	client := newFakeClient(t, "suizo")
	batch := testBatch("100", "200")

	log, err := newTestRunner(store).Run(context.Background(), batch, client)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if log.Summary.Total != 2 || log.Summary.Successful != 2 {
		t.Errorf("summary = %+v, want 2/2", log.Summary)
	}
	if log.Summary.Total != len(log.Results) {
		t.Errorf("summary total %d != %d results", log.Summary.Total, len(log.Results))
	}
	if client.loginCalls != 1 {
		t.Errorf("login calls = %d, want 1", client.loginCalls)
	}

	// Artifacts and the execution log must both land in the store.
	if exists, _ := store.Exists(context.Background(), log.ObjectKey()); !exists {
		t.Errorf("execution log %s not persisted", log.ObjectKey())
	}
	for _, r := range log.Results {
		if r.ArtifactURL == "" {
			t.Errorf("result %s has no artifact URL", r.Identifier)
		}
	}
	if len(log.Details) != 2 {
		t.Fatalf("expected 2 detail rows, got %d", len(log.Details))
	}
	for _, d := range log.Details {
		if !d.Downloaded || !d.Uploaded {
			t.Errorf("detail %+v, want downloaded and uploaded", d)
		}
	}
}

func TestRunPersistedLogRoundTrips(t *testing.T) {
	store := newMemStore()
	batch := testBatch("100")

	log, err := newTestRunner(store).Run(context.Background(), batch, newFakeClient(t, "suizo"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	r, err := store.Download(context.Background(), log.ObjectKey())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)

	var stored domain.ExecutionLog
	if err := json.Unmarshal(data, &stored); err != nil {
		t.Fatalf("stored log is not valid JSON: %v", err)
	}
	if stored.ExecutionID != "exec-1" || stored.Summary.Total != 1 {
		t.Errorf("stored log = %+v", stored)
	}
}

func TestRunLoginFailureFailsWholeBatch(t *testing.T) {
	store := newMemStore()
	client := newFakeClient(t, "suizo")
	client.loginErr = domain.NewPortalError(domain.ErrKindAuth, errors.New("bad credentials"))
	batch := testBatch("100", "200", "300")

	log, err := newTestRunner(store).Run(context.Background(), batch, client)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if log.Summary.Failed != 3 || log.Summary.Successful != 0 {
		t.Errorf("summary = %+v, want 0/3", log.Summary)
	}
	for _, r := range log.Results {
		if r.ErrorKind != domain.ErrKindAuth {
			t.Errorf("result %s kind = %s, want auth", r.Identifier, r.ErrorKind)
		}
		if r.RetriesUsed != 0 {
			t.Errorf("result %s used %d retries, want 0", r.Identifier, r.RetriesUsed)
		}
	}
	if len(client.downloads) != 0 {
		t.Error("no downloads may be attempted after login failure")
	}
}

func TestRunSetupFailureFailsWholeBatch(t *testing.T) {
	store := newMemStore()
	client := newFakeClient(t, "monroe")
	client.setupErr = domain.NewPortalError(domain.ErrKindSetup, errors.New("period filter rejected"))
	batch := testBatch("100", "200")

	log, err := newTestRunner(store).Run(context.Background(), batch, client)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if log.Summary.Failed != 2 {
		t.Errorf("summary = %+v, want 2 failed", log.Summary)
	}
	for _, r := range log.Results {
		if r.ErrorKind != domain.ErrKindSetup {
			t.Errorf("result %s kind = %s, want setup", r.Identifier, r.ErrorKind)
		}
	}
}

func TestRunSkipsRedeliveredBatch(t *testing.T) {
	store := newMemStore()
	client := newFakeClient(t, "suizo")
	batch := testBatch("100")

	runner := newTestRunner(store)
	if _, err := runner.Run(context.Background(), batch, client); err != nil {
		t.Fatalf("first run: %v", err)
	}

	_, err := runner.Run(context.Background(), batch, newFakeClient(t, "suizo"))
	if !errors.Is(err, domain.ErrDuplicateBatch) {
		t.Fatalf("second run err = %v, want ErrDuplicateBatch", err)
	}
	if client.downloads["100"] != 1 {
		t.Errorf("item was processed again on redelivery")
	}
}

func TestRunRecordsFailedIdentifiers(t *testing.T) {
	store := newMemStore()
	client := newFakeClient(t, "suizo")
	client.scripts["200"] = []error{
		domain.NewPortalError(domain.ErrKindNotFound, errors.New("sin resultados")),
	}
	batch := testBatch("100", "200")

	log, err := newTestRunner(store).Run(context.Background(), batch, client)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(log.FailedIdentifiers) != 1 || log.FailedIdentifiers[0] != "200" {
		t.Errorf("FailedIdentifiers = %v, want [200]", log.FailedIdentifiers)
	}
}
