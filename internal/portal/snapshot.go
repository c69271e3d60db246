package portal

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lromero/facturabot/internal/domain"
)

// writeSnapshot saves a portal response capture for later diagnostics. The
// file lands in the scratch directory and is uploaded by the batch runner.
func writeSnapshot(dir, provider, name string, body []byte) (string, error) {
	if len(body) == 0 {
		body = []byte("<no response captured>")
	}
	ts := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("snapshot_%s_%s_%s.html", provider, name, ts)
	path := filepath.Join(dir, filename)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return path, nil
}

// cookiesFromState converts cached session cookies to http.Cookie values.
func cookiesFromState(state *domain.SessionState) []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(state.Cookies))
	for _, c := range state.Cookies {
		cookie := &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		cookies = append(cookies, cookie)
	}
	return cookies
}

// cookiesToState converts response cookies to the cached session format.
func cookiesToState(cookies []*http.Cookie) []domain.SessionCookie {
	out := make([]domain.SessionCookie, 0, len(cookies))
	for _, c := range cookies {
		sc := domain.SessionCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		}
		if !c.Expires.IsZero() {
			sc.Expires = float64(c.Expires.Unix())
		}
		out = append(out, sc)
	}
	return out
}
