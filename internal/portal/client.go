package portal

import (
	"context"

	"github.com/lromero/facturabot/internal/session"
)

// Client is the opaque capability automating one provider portal. One client
// instance owns one portal session; callers must not share it across
// goroutines because the portal keeps per-session search state.
type Client interface {
	// Provider returns the normalized provider key this client serves.
	Provider() string

	// Login establishes an authenticated session, reusing cached state when
	// possible. Returns a non-nil error (classified ErrKindAuth) when the
	// portal rejects every path in.
	Login(ctx context.Context) error

	// Setup performs optional provider-specific preparation such as applying
	// a date-range filter. Providers with nothing to prepare return nil.
	Setup(ctx context.Context) error

	// DownloadOne fetches the artifact of a single invoice and returns the
	// local file path. Errors carry a domain.ErrorKind classification.
	DownloadOne(ctx context.Context, identifier string) (string, error)

	// Snapshot captures the current portal response for diagnostics and
	// returns the local file path of the capture.
	Snapshot(name string) (string, error)

	// Close releases the portal session.
	Close() error
}

// Deps carries the shared collaborators every portal client needs.
type Deps struct {
	Sessions     *session.Cache
	DownloadPath string
}
