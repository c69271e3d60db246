package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/session"
	"github.com/lromero/facturabot/internal/storage/storagetest"
)

// fakeMasaWeb mimics the Monroe portal, gated on a captured session cookie.
type fakeMasaWeb struct {
	srv         *httptest.Server
	periodPosts int
}

func newFakeMasaWeb(t *testing.T) *fakeMasaWeb {
	t.Helper()
	p := &fakeMasaWeb{}

	mux := http.NewServeMux()
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie("masa_sid"); err != nil || c.Value != "captured" {
				http.Redirect(w, r, "/apps/login/index.html", http.StatusFound)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/apps/login/index.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>apps/login challenge</html>")
	})
	mux.HandleFunc("/apps/masaWeb/r6en1/index.html", authed(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>masaWeb home</html>")
	}))
	mux.HandleFunc("/apps/masaWeb/comprobantes/periodo", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("fechaDesde") == "" || r.FormValue("fechaHasta") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p.periodPosts++
		fmt.Fprint(w, "<html>periodo aplicado</html>")
	}))
	mux.HandleFunc("/apps/masaWeb/comprobantes/buscar", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("numero") == "404404" {
			fmt.Fprint(w, "<html>sin comprobantes</html>")
			return
		}
		fmt.Fprint(w, "<html>1 comprobante</html>")
	}))
	mux.HandleFunc("/apps/masaWeb/comprobantes/exportar", authed(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "txt for %s", r.URL.Query().Get("numero"))
	}))

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func seedMonroeSession(t *testing.T, cache *session.Cache) {
	t.Helper()
	state := &domain.SessionState{
		Cookies: []domain.SessionCookie{{Name: "masa_sid", Value: "captured", Path: "/"}},
	}
	if err := cache.Put(context.Background(), "monroe", state); err != nil {
		t.Fatal(err)
	}
}

func newMonroeForTest(t *testing.T, p *fakeMasaWeb, cache *session.Cache, interactive bool, wait time.Duration) *MonroeClient {
	t.Helper()
	client, err := NewMonroeClient(MonroeConfig{
		BaseURL:       p.srv.URL,
		Username:      "user1",
		Password:      "secret",
		PeriodDays:    30,
		Timeout:       5 * time.Second,
		Interactive:   interactive,
		ChallengeWait: wait,
	}, Deps{Sessions: cache, DownloadPath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestMonroeHeadlessWithoutSessionFailsFast(t *testing.T) {
	p := newFakeMasaWeb(t)
	client := newMonroeForTest(t, p, session.NewCache(storagetest.NewMem()), false, time.Minute)

	err := client.Login(context.Background())
	if err == nil {
		t.Fatal("expected auth failure without a captured session")
	}
	if domain.ClassifyError(err) != domain.ErrKindAuth {
		t.Errorf("kind = %s, want auth", domain.ClassifyError(err))
	}
}

func TestMonroeUsesCapturedSession(t *testing.T) {
	p := newFakeMasaWeb(t)
	cache := session.NewCache(storagetest.NewMem())
	seedMonroeSession(t, cache)

	client := newMonroeForTest(t, p, cache, false, time.Minute)
	ctx := context.Background()

	if err := client.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := client.Setup(ctx); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.periodPosts != 1 {
		t.Errorf("period posts = %d, want 1", p.periodPosts)
	}

	// Second Setup on the same session is a no-op.
	if err := client.Setup(ctx); err != nil {
		t.Fatalf("second Setup: %v", err)
	}
	if p.periodPosts != 1 {
		t.Errorf("period posts after repeat = %d, want still 1", p.periodPosts)
	}

	path, err := client.DownloadOne(ctx, "30012345")
	if err != nil {
		t.Fatalf("DownloadOne: %v", err)
	}
	if path == "" {
		t.Error("expected a download path")
	}
}

func TestMonroeInteractiveWaitsForCapturedSession(t *testing.T) {
	p := newFakeMasaWeb(t)
	cache := session.NewCache(storagetest.NewMem())

	client := newMonroeForTest(t, p, cache, true, 2*time.Second)
	client.challengePollIv = 10 * time.Millisecond

	// The operator captures the session shortly after login starts.
	go func() {
		time.Sleep(50 * time.Millisecond)
		state := &domain.SessionState{
			Cookies: []domain.SessionCookie{{Name: "masa_sid", Value: "captured", Path: "/"}},
		}
		_ = cache.Put(context.Background(), "monroe", state)
	}()

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestMonroeInteractiveTimesOut(t *testing.T) {
	p := newFakeMasaWeb(t)
	client := newMonroeForTest(t, p, session.NewCache(storagetest.NewMem()), true, 50*time.Millisecond)
	client.challengePollIv = 10 * time.Millisecond

	err := client.Login(context.Background())
	if domain.ClassifyError(err) != domain.ErrKindAuth {
		t.Errorf("kind = %v, want auth after unresolved challenge", domain.ClassifyError(err))
	}
}

func TestMonroeDownloadNotInPeriod(t *testing.T) {
	p := newFakeMasaWeb(t)
	cache := session.NewCache(storagetest.NewMem())
	seedMonroeSession(t, cache)

	client := newMonroeForTest(t, p, cache, false, time.Minute)
	ctx := context.Background()
	if err := client.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := client.Setup(ctx); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	_, err := client.DownloadOne(ctx, "404404")
	if domain.ClassifyError(err) != domain.ErrKindNotFound {
		t.Errorf("kind = %s, want not_found", domain.ClassifyError(err))
	}
}
