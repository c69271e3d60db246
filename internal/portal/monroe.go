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

const monroeProviderKey = "monroe"

// MonroeConfig holds the portal endpoint and credentials for Monroe
// Americana (masaWeb).
type MonroeConfig struct {
	BaseURL    string
	Username   string
	Password   string
	PeriodDays int
	Timeout    time.Duration
	// Interactive allows waiting for a manually resolved login challenge:
	// the portal's full login includes a challenge no automation may solve,
	// so an operator captures a session out of band and this client polls
	// the cache for it. Headless deployments keep this off and fail fast.
	Interactive   bool
	ChallengeWait time.Duration
}

// MonroeClient automates the Monroe Americana portal. Unlike Suizo, the
// invoice listing only shows comprobantes inside a configured date period,
// so Setup applies the period filter before any download.
type MonroeClient struct {
	cfg             MonroeConfig
	http            *resty.Client
	sessions        *session.Cache
	downloadPath    string
	loggedIn        bool
	periodReady     bool
	lastBody        []byte
	challengePollIv time.Duration
}

// NewMonroeClient creates a Monroe portal client.
func NewMonroeClient(cfg MonroeConfig, deps Deps) (*MonroeClient, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("monroe credentials not configured")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PeriodDays <= 0 || cfg.PeriodDays > 60 {
		// The portal caps period queries at 60 days.
		cfg.PeriodDays = 60
	}
	if cfg.ChallengeWait == 0 {
		cfg.ChallengeWait = 5 * time.Minute
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

	return &MonroeClient{
		cfg:             cfg,
		http:            client,
		sessions:        deps.Sessions,
		downloadPath:    deps.DownloadPath,
		challengePollIv: 10 * time.Second,
	}, nil
}

func (c *MonroeClient) Provider() string { return monroeProviderKey }

// Login prefers the cached session because the full login path ends in a
// manual challenge. Without a usable session, headless mode fails with an
// auth error; interactive mode waits for an operator to capture one.
func (c *MonroeClient) Login(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}

	if c.tryCachedSession(ctx) {
		c.loggedIn = true
		return nil
	}

	if !c.cfg.Interactive {
		return domain.NewPortalError(domain.ErrKindAuth,
			errors.New("no usable session and login challenge cannot be solved headless"))
	}

	logger.CtxWarn(ctx, "Waiting up to %s for a manually captured %s session",
		c.cfg.ChallengeWait, monroeProviderKey)

	deadline := time.Now().Add(c.cfg.ChallengeWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return domain.NewPortalError(domain.ErrKindTimeout, ctx.Err())
		case <-time.After(c.challengePollIv):
		}
		if c.tryCachedSession(ctx) {
			c.loggedIn = true
			return nil
		}
	}

	return domain.NewPortalError(domain.ErrKindAuth,
		errors.New("login challenge was not resolved in time"))
}

// Setup applies the date-period filter. The portal only serves comprobantes
// inside the configured window, so every batch needs this once after login.
func (c *MonroeClient) Setup(ctx context.Context) error {
	if c.periodReady {
		return nil
	}

	end := time.Now()
	start := end.AddDate(0, 0, -c.cfg.PeriodDays)

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"fechaDesde": start.Format("02/01/2006"),
			"fechaHasta": end.Format("02/01/2006"),
		}).
		Post("/apps/masaWeb/comprobantes/periodo")
	if err != nil {
		return c.classifyTransport(err)
	}
	c.lastBody = resp.Body()

	if c.loginRedirected(resp) {
		c.loggedIn = false
		_ = c.sessions.Invalidate(ctx, monroeProviderKey)
		return domain.NewPortalError(domain.ErrKindAuth, errors.New("session rejected while applying period"))
	}
	if resp.IsError() {
		return domain.NewPortalError(domain.ErrKindSetup,
			fmt.Errorf("period filter failed with status %d", resp.StatusCode()))
	}

	c.periodReady = true
	logger.CtxInfo(ctx, "Period filter applied: %s to %s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	return nil
}

// DownloadOne searches the configured period for one comprobante and
// downloads its TXT file.
func (c *MonroeClient) DownloadOne(ctx context.Context, identifier string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("numero", identifier).
		Get("/apps/masaWeb/comprobantes/buscar")
	if err != nil {
		return "", c.classifyTransport(err)
	}
	c.lastBody = resp.Body()

	if c.loginRedirected(resp) {
		c.loggedIn = false
		_ = c.sessions.Invalidate(ctx, monroeProviderKey)
		return "", domain.NewPortalError(domain.ErrKindAuth, errors.New("session rejected during search"))
	}
	if resp.StatusCode() == http.StatusNotFound || strings.Contains(string(resp.Body()), "sin comprobantes") {
		return "", domain.NewPortalError(domain.ErrKindNotFound,
			fmt.Errorf("comprobante %s not in period", identifier))
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
		Get("/apps/masaWeb/comprobantes/exportar")
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
func (c *MonroeClient) Snapshot(name string) (string, error) {
	return writeSnapshot(c.downloadPath, monroeProviderKey, name, c.lastBody)
}

func (c *MonroeClient) Close() error {
	c.loggedIn = false
	c.periodReady = false
	return nil
}

func (c *MonroeClient) tryCachedSession(ctx context.Context) bool {
	state, err := c.sessions.Get(ctx, monroeProviderKey)
	if err != nil {
		return false
	}

	c.http.SetCookies(cookiesFromState(state))

	resp, err := c.http.R().SetContext(ctx).Get("/apps/masaWeb/r6en1/index.html")
	if err != nil {
		c.http.Cookies = nil
		return false
	}
	c.lastBody = resp.Body()

	if c.loginRedirected(resp) {
		logger.CtxInfo(ctx, "Cached session for %s rejected by portal", monroeProviderKey)
		c.http.Cookies = nil
		return false
	}
	logger.CtxInfo(ctx, "Reusing cached session for %s", monroeProviderKey)
	return true
}

// loginRedirected checks for the portal bouncing back to its login app.
// Landing anywhere under masaWeb means the session is accepted.
func (c *MonroeClient) loginRedirected(resp *resty.Response) bool {
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		path := resp.RawResponse.Request.URL.Path
		if strings.Contains(path, "/apps/login/") {
			return true
		}
		if strings.Contains(path, "masaWeb") {
			return false
		}
	}
	return strings.Contains(string(resp.Body()), "apps/login")
}

func (c *MonroeClient) classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return domain.NewPortalError(domain.ErrKindTimeout, err)
	}
	return domain.NewPortalError(domain.ErrKindTransient, err)
}
