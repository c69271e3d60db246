package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/engine"
)

// WorkerHandler handles queued batch deliveries.
type WorkerHandler struct {
	dispatcher *engine.Dispatcher
}

// NewWorkerHandler creates a new worker handler.
// Parameters:
//   - dispatcher: batch dispatcher used to execute delivered payloads.
// Returns:
//   - *WorkerHandler: initialized handler.
func NewWorkerHandler(dispatcher *engine.Dispatcher) *WorkerHandler {
	return &WorkerHandler{dispatcher: dispatcher}
}

// Execute handles POST /api/worker. Delivery is at-least-once: a batch whose
// log already exists is acknowledged as skipped so the queue stops
// redelivering it, while processing failures return 5xx to trigger a retry.
func (h *WorkerHandler) Execute(c *gin.Context) {
	var payload domain.BatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid batch payload: " + err.Error(),
		})
		return
	}
	if payload.ExecutionID == "" || payload.Provider == "" || len(payload.Identifiers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Batch payload requires execution_id, provider and identifiers",
		})
		return
	}

	log, err := h.dispatcher.Execute(c.Request.Context(), payload)
	if errors.Is(err, domain.ErrDuplicateBatch) {
		c.JSON(http.StatusOK, gin.H{
			"status":       string(domain.BatchJobSkipped),
			"execution_id": payload.ExecutionID,
			"batch_index":  payload.BatchIndex,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":        "Batch processing failed: " + err.Error(),
			"execution_id": payload.ExecutionID,
			"batch_index":  payload.BatchIndex,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           string(domain.BatchJobCompleted),
		"execution_id":     payload.ExecutionID,
		"batch_index":      payload.BatchIndex,
		"summary":          log.Summary,
		"detailed_results": log.Details,
	})
}
