package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/session"
	"github.com/lromero/facturabot/internal/storage/storagetest"
)

// fakePortal mimics the Suizo portal: cookie-gated pages and a form login.
type fakePortal struct {
	srv        *httptest.Server
	loginPosts int
	notFound   map[string]bool
}

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	p := &fakePortal{notFound: make(map[string]bool)}

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			fmt.Fprint(w, `<form><input placeholder="Usuario"/></form>`)
			return
		}
		p.loginPosts++
		if r.FormValue("usuario") != "user1" || r.FormValue("clave") != "secret" {
			fmt.Fprint(w, `<form><input placeholder="Usuario"/></form>`)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "session-ok", Path: "/"})
		fmt.Fprint(w, "<html>bienvenido</html>")
	})
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie("sid"); err != nil || c.Value != "session-ok" {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/home", authed(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>home</html>")
	}))
	mux.HandleFunc("/comprobantes/consulta", authed(func(w http.ResponseWriter, r *http.Request) {
		if p.notFound[r.FormValue("numero")] {
			fmt.Fprint(w, "<html>Sin resultados</html>")
			return
		}
		fmt.Fprint(w, "<html>1 resultado</html>")
	}))
	mux.HandleFunc("/comprobantes/descarga", authed(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "txt for %s", r.URL.Query().Get("numero"))
	}))

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func newSuizoForTest(t *testing.T, p *fakePortal, cache *session.Cache) *SuizoClient {
	t.Helper()
	client, err := NewSuizoClient(SuizoConfig{
		BaseURL:  p.srv.URL,
		Username: "user1",
		Password: "secret",
		Timeout:  5 * time.Second,
	}, Deps{Sessions: cache, DownloadPath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestSuizoFullLoginAndDownload(t *testing.T) {
	p := newFakePortal(t)
	store := storagetest.NewMem()
	client := newSuizoForTest(t, p, session.NewCache(store))
	ctx := context.Background()

	if err := client.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if p.loginPosts != 1 {
		t.Errorf("login posts = %d, want 1", p.loginPosts)
	}

	// A successful full login persists the session for later runs.
	if !store.Has(domain.SessionObjectKey("suizo")) {
		t.Error("session was not cached after full login")
	}

	path, err := client.DownloadOne(ctx, "20057036")
	if err != nil {
		t.Fatalf("DownloadOne: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(data) != "txt for 20057036" {
		t.Errorf("downloaded content = %q", data)
	}
}

func TestSuizoReusesCachedSession(t *testing.T) {
	p := newFakePortal(t)
	cache := session.NewCache(storagetest.NewMem())
	ctx := context.Background()

	// First client performs the expensive full login.
	first := newSuizoForTest(t, p, cache)
	if err := first.Login(ctx); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	// Second client must ride the cached session.
	second := newSuizoForTest(t, p, cache)
	if err := second.Login(ctx); err != nil {
		t.Fatalf("second login: %v", err)
	}
	if p.loginPosts != 1 {
		t.Errorf("login posts = %d, want exactly 1 full login across clients", p.loginPosts)
	}

	if _, err := second.DownloadOne(ctx, "100"); err != nil {
		t.Errorf("download on cached session: %v", err)
	}
}

func TestSuizoLoginRejected(t *testing.T) {
	p := newFakePortal(t)
	client, err := NewSuizoClient(SuizoConfig{
		BaseURL:  p.srv.URL,
		Username: "user1",
		Password: "wrong",
		Timeout:  5 * time.Second,
	}, Deps{Sessions: session.NewCache(storagetest.NewMem()), DownloadPath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	err = client.Login(context.Background())
	if err == nil {
		t.Fatal("expected login failure")
	}
	if domain.ClassifyError(err) != domain.ErrKindAuth {
		t.Errorf("kind = %s, want auth", domain.ClassifyError(err))
	}
}

func TestSuizoDownloadNotFound(t *testing.T) {
	p := newFakePortal(t)
	p.notFound["99999"] = true
	client := newSuizoForTest(t, p, session.NewCache(storagetest.NewMem()))
	ctx := context.Background()

	if err := client.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err := client.DownloadOne(ctx, "99999")
	if domain.ClassifyError(err) != domain.ErrKindNotFound {
		t.Errorf("kind = %s, want not_found", domain.ClassifyError(err))
	}
}

func TestSuizoStaleCachedSessionFallsBack(t *testing.T) {
	p := newFakePortal(t)
	store := storagetest.NewMem()
	cache := session.NewCache(store)
	ctx := context.Background()

	// Seed a session the portal will reject.
	stale := &domain.SessionState{
		Cookies: []domain.SessionCookie{{Name: "sid", Value: "stale", Path: "/"}},
	}
	if err := cache.Put(ctx, "suizo", stale); err != nil {
		t.Fatal(err)
	}

	client := newSuizoForTest(t, p, cache)
	if err := client.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if p.loginPosts != 1 {
		t.Errorf("login posts = %d, want full login after stale session", p.loginPosts)
	}
}

func TestSuizoRequiresCredentials(t *testing.T) {
	_, err := NewSuizoClient(SuizoConfig{BaseURL: "https://portal.test"}, Deps{})
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
