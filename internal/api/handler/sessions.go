package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/portal"
	"github.com/lromero/facturabot/internal/session"
)

// SessionHandler manages cached portal sessions. Its main use is feeding an
// operator-captured session to a headless deployment after a manual login
// challenge.
type SessionHandler struct {
	sessions *session.Cache
	registry *portal.Registry
}

// NewSessionHandler creates a new session handler.
// Parameters:
//   - sessions: session cache backed by the artifact store.
//   - registry: portal registry used to validate provider names.
// Returns:
//   - *SessionHandler: initialized handler.
func NewSessionHandler(sessions *session.Cache, registry *portal.Registry) *SessionHandler {
	return &SessionHandler{sessions: sessions, registry: registry}
}

// Put handles POST /api/sessions/:provider and stores a captured session.
func (h *SessionHandler) Put(c *gin.Context) {
	provider := portal.NormalizeProvider(c.Param("provider"))

	var state domain.SessionState
	if err := c.ShouldBindJSON(&state); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid session state: " + err.Error(),
		})
		return
	}
	if len(state.Cookies) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Session state requires at least one cookie",
		})
		return
	}

	if err := h.sessions.Put(c.Request.Context(), provider, &state); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to store session: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider":   provider,
		"expires_at": state.ExpiresAt.Format(time.RFC3339),
	})
}

// Delete handles DELETE /api/sessions/:provider and drops a cached session.
func (h *SessionHandler) Delete(c *gin.Context) {
	provider := portal.NormalizeProvider(c.Param("provider"))

	if err := h.sessions.Invalidate(c.Request.Context(), provider); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to invalidate session: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"provider": provider,
		"status":   "invalidated",
	})
}
