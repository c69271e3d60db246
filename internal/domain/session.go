package domain

import "time"

// DefaultSessionTTL is the conservative expiry window applied when a captured
// session carries no cookie expiry of its own.
const DefaultSessionTTL = 7 * 24 * time.Hour

// SessionCookie is one credential cookie captured from a portal session.
type SessionCookie struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Domain  string  `json:"domain,omitempty"`
	Path    string  `json:"path,omitempty"`
	Expires float64 `json:"expires,omitempty"` // unix seconds, 0 when session-scoped
}

// SessionState is the reusable authentication state of one provider. It is
// replaced wholesale on every successful full login. Expiry here is advisory:
// the portal is the only authority on whether a session still works.
type SessionState struct {
	Provider  string            `json:"provider"`
	Cookies   []SessionCookie   `json:"cookies"`
	Storage   map[string]string `json:"storage,omitempty"` // portal local/session storage blob
	SavedAt   time.Time         `json:"saved_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// DeriveExpiry sets ExpiresAt to the maximum cookie expiry, or now+TTL when
// no cookie carries one.
func (s *SessionState) DeriveExpiry(now time.Time) {
	var max time.Time
	for _, c := range s.Cookies {
		if c.Expires <= 0 {
			continue
		}
		t := time.Unix(int64(c.Expires), 0)
		if t.After(max) {
			max = t
		}
	}
	if max.IsZero() {
		max = now.Add(DefaultSessionTTL)
	}
	s.ExpiresAt = max
}

// Expired reports whether the advisory expiry has passed.
func (s *SessionState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SessionObjectKey is the storage key holding the cached session of a
// provider. Concurrent workers overwrite it with last-writer-wins semantics.
func SessionObjectKey(provider string) string {
	return "sessions/" + provider + "_state.json"
}
