package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/storage/storagetest"
)

func newMemStore() *storagetest.MemStore {
	return storagetest.NewMem()
}

// fakeClient is a scripted portal client. Download outcomes are consumed per
// identifier in order; once the script is exhausted the download succeeds.
type fakeClient struct {
	provider   string
	dir        string
	loginErr   error
	setupErr   error
	scripts    map[string][]error
	loginCalls int
	downloads  map[string]int
}

func newFakeClient(t *testing.T, provider string) *fakeClient {
	t.Helper()
	return &fakeClient{
		provider:  provider,
		dir:       t.TempDir(),
		scripts:   make(map[string][]error),
		downloads: make(map[string]int),
	}
}

func (f *fakeClient) Provider() string { return f.provider }

func (f *fakeClient) Login(ctx context.Context) error {
	f.loginCalls++
	return f.loginErr
}

func (f *fakeClient) Setup(ctx context.Context) error { return f.setupErr }

func (f *fakeClient) DownloadOne(ctx context.Context, identifier string) (string, error) {
	f.downloads[identifier]++
	if script := f.scripts[identifier]; len(script) > 0 {
		err := script[0]
		f.scripts[identifier] = script[1:]
		if err != nil {
			return "", err
		}
	}
	path := filepath.Join(f.dir, identifier+".txt")
	if err := os.WriteFile(path, []byte("txt "+identifier), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeClient) Snapshot(name string) (string, error) {
	path := filepath.Join(f.dir, "snapshot_"+name+".html")
	if err := os.WriteFile(path, []byte("<html/>"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeClient) Close() error { return nil }

func newTestProcessor(maxRetries int) *ItemProcessor {
	p := NewItemProcessor(maxRetries, time.Second)
	p.sleep = func(time.Duration) {}
	return p
}

func testItems(ids ...string) []domain.WorkItem {
	items := make([]domain.WorkItem, len(ids))
	for i, id := range ids {
		items[i] = domain.WorkItem{Provider: "suizo", Identifier: id, RowIndex: i + 1}
	}
	return items
}
