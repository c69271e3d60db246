package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/storage"
)

// Cache persists reusable portal authentication state through the artifact
// store so later runs (and parallel workers) can skip the full login
// challenge. Writes are last-writer-wins; there is no locking because any
// successfully captured session is as good as another.
type Cache struct {
	store storage.ObjectStorage
	now   func() time.Time
}

// NewCache creates a session cache backed by the given object storage.
func NewCache(store storage.ObjectStorage) *Cache {
	return &Cache{store: store, now: time.Now}
}

// Get returns the cached session for a provider. A missing, unreadable, or
// expired entry yields domain.ErrSessionMiss — never a hard failure, since
// the caller can always fall back to a full login.
func (c *Cache) Get(ctx context.Context, provider string) (*domain.SessionState, error) {
	key := domain.SessionObjectKey(provider)

	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		logger.CtxWarn(ctx, "Session lookup failed for %s, treating as miss: %v", provider, err)
		return nil, domain.ErrSessionMiss
	}
	if !exists {
		return nil, domain.ErrSessionMiss
	}

	reader, err := c.store.Download(ctx, key)
	if err != nil {
		logger.CtxWarn(ctx, "Session download failed for %s, treating as miss: %v", provider, err)
		return nil, domain.ErrSessionMiss
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, domain.ErrSessionMiss
	}

	var state domain.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		logger.CtxWarn(ctx, "Corrupt session state for %s, treating as miss: %v", provider, err)
		return nil, domain.ErrSessionMiss
	}

	if state.Expired(c.now()) {
		logger.CtxInfo(ctx, "Cached session for %s expired at %s", provider, state.ExpiresAt.Format(time.RFC3339))
		return nil, domain.ErrSessionMiss
	}

	return &state, nil
}

// Put replaces the cached session for a provider wholesale. Expiry is
// derived from the captured cookies, falling back to the conservative
// default window.
func (c *Cache) Put(ctx context.Context, provider string, state *domain.SessionState) error {
	state.Provider = provider
	state.SavedAt = c.now()
	state.DeriveExpiry(state.SavedAt)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	key := domain.SessionObjectKey(provider)
	if _, err := storage.UploadString(ctx, c.store, string(data), key, "application/json"); err != nil {
		return fmt.Errorf("failed to persist session state: %w", err)
	}

	logger.CtxInfo(ctx, "Session for %s saved, expires %s", provider, state.ExpiresAt.Format(time.RFC3339))
	return nil
}

// Invalidate drops the cached session of a provider. Used when the portal
// rejected a session that still looked valid locally.
func (c *Cache) Invalidate(ctx context.Context, provider string) error {
	key := domain.SessionObjectKey(provider)
	exists, err := c.store.Exists(ctx, key)
	if err != nil || !exists {
		return nil
	}
	return c.store.Delete(ctx, key)
}
