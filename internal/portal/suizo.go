package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/session"
)

const suizoProviderKey = "suizo"

// SuizoConfig holds the portal endpoint and credentials for Suizo Argentina.
type SuizoConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// SuizoClient automates the Suizo Argentina portal: form login, comprobante
// search by number, TXT download.
type SuizoClient struct {
	cfg          SuizoConfig
	http         *resty.Client
	sessions     *session.Cache
	downloadPath string
	loggedIn     bool
	lastBody     []byte
}

// NewSuizoClient creates a Suizo portal client.
func NewSuizoClient(cfg SuizoConfig, deps Deps) (*SuizoClient, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("suizo credentials not configured")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetCookieJar(jar)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	return &SuizoClient{
		cfg:          cfg,
		http:         client,
		sessions:     deps.Sessions,
		downloadPath: deps.DownloadPath,
	}, nil
}

func (c *SuizoClient) Provider() string { return suizoProviderKey }

// Login authenticates against the portal, reusing a cached session first.
// The cached path costs one verification request; the full path is a form
// POST with the configured credentials.
func (c *SuizoClient) Login(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}

	if c.tryCachedSession(ctx) {
		c.loggedIn = true
		return nil
	}

	logger.CtxInfo(ctx, "No usable cached session for %s, performing full login", suizoProviderKey)

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"usuario": c.cfg.Username,
			"clave":   c.cfg.Password,
		}).
		Post("/login")
	if err != nil {
		return c.classifyTransport(err)
	}
	c.lastBody = resp.Body()

	if !c.sessionAccepted(resp) {
		return domain.NewPortalError(domain.ErrKindAuth,
			fmt.Errorf("portal rejected credentials (status %d)", resp.StatusCode()))
	}

	c.loggedIn = true
	c.persistSession(ctx, resp.Cookies())
	return nil
}

// Setup is a no-op for Suizo; search filters are applied per invoice.
func (c *SuizoClient) Setup(ctx context.Context) error {
	return nil
}

// DownloadOne searches a comprobante by number and downloads its TXT file.
func (c *SuizoClient) DownloadOne(ctx context.Context, identifier string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"cuenta":      "grupo",
			"comprobante": "factura",
			"filtro":      "numero",
			"numero":      identifier,
		}).
		Post("/comprobantes/consulta")
	if err != nil {
		return "", c.classifyTransport(err)
	}
	c.lastBody = resp.Body()

	if c.loginRedirected(resp) {
		// Session died mid-batch; drop the cache so the next run relogs.
		c.loggedIn = false
		_ = c.sessions.Invalidate(ctx, suizoProviderKey)
		return "", domain.NewPortalError(domain.ErrKindAuth, errors.New("session rejected during search"))
	}
	if resp.StatusCode() == http.StatusNotFound || strings.Contains(string(resp.Body()), "Sin resultados") {
		return "", domain.NewPortalError(domain.ErrKindNotFound,
			fmt.Errorf("comprobante %s not found", identifier))
	}
	if resp.IsError() {
		return "", domain.NewPortalError(domain.ErrKindTransient,
			fmt.Errorf("search failed with status %d", resp.StatusCode()))
	}

	localPath := filepath.Join(c.downloadPath, identifier+".txt")
	dl, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("numero", identifier).
		SetOutput(localPath).
		Get("/comprobantes/descarga")
	if err != nil {
		return "", c.classifyTransport(err)
	}
	if dl.IsError() {
		_ = os.Remove(localPath)
		if dl.StatusCode() == http.StatusNotFound {
			return "", domain.NewPortalError(domain.ErrKindNotFound,
				fmt.Errorf("no file for comprobante %s", identifier))
		}
		return "", domain.NewPortalError(domain.ErrKindTransient,
			fmt.Errorf("download failed with status %d", dl.StatusCode()))
	}

	return localPath, nil
}

// Snapshot writes the last portal response body to the scratch directory.
func (c *SuizoClient) Snapshot(name string) (string, error) {
	return writeSnapshot(c.downloadPath, suizoProviderKey, name, c.lastBody)
}

func (c *SuizoClient) Close() error {
	c.loggedIn = false
	return nil
}

// tryCachedSession applies stored cookies and verifies them with a cheap
// request. Any failure is a miss, never an error.
func (c *SuizoClient) tryCachedSession(ctx context.Context) bool {
	state, err := c.sessions.Get(ctx, suizoProviderKey)
	if err != nil {
		return false
	}

	c.http.SetCookies(cookiesFromState(state))

	resp, err := c.http.R().SetContext(ctx).Get("/home")
	if err != nil {
		c.http.Cookies = nil
		return false
	}
	c.lastBody = resp.Body()

	if c.loginRedirected(resp) {
		logger.CtxInfo(ctx, "Cached session for %s rejected by portal", suizoProviderKey)
		c.http.Cookies = nil
		return false
	}
	logger.CtxInfo(ctx, "Reusing cached session for %s", suizoProviderKey)
	return true
}

// sessionAccepted checks that a login response landed past the login page.
func (c *SuizoClient) sessionAccepted(resp *resty.Response) bool {
	if resp.IsError() {
		return false
	}
	return !c.loginRedirected(resp)
}

// loginRedirected detects the portal bouncing us back to the login form,
// the only reliable signal that a session is invalid.
func (c *SuizoClient) loginRedirected(resp *resty.Response) bool {
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		if strings.Contains(resp.RawResponse.Request.URL.Path, "/login") {
			return true
		}
	}
	return strings.Contains(string(resp.Body()), `placeholder="Usuario"`)
}

func (c *SuizoClient) persistSession(ctx context.Context, cookies []*http.Cookie) {
	state := &domain.SessionState{Cookies: cookiesToState(cookies)}
	if err := c.sessions.Put(ctx, suizoProviderKey, state); err != nil {
		logger.CtxWarn(ctx, "Failed to persist %s session: %v", suizoProviderKey, err)
	}
}

func (c *SuizoClient) classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return domain.NewPortalError(domain.ErrKindTimeout, err)
	}
	return domain.NewPortalError(domain.ErrKindTransient, err)
}
