package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lromero/facturabot/internal/repository"
)

// ExecutionsHandler exposes the batch job tracking rows of an execution.
type ExecutionsHandler struct {
	jobs *repository.BatchJobRepository
}

// NewExecutionsHandler creates a new executions handler.
// Parameters:
//   - jobs: batch job repository.
// Returns:
//   - *ExecutionsHandler: initialized handler.
func NewExecutionsHandler(jobs *repository.BatchJobRepository) *ExecutionsHandler {
	return &ExecutionsHandler{jobs: jobs}
}

// Get handles GET /api/executions/:id and returns the per-batch state of one
// execution.
func (h *ExecutionsHandler) Get(c *gin.Context) {
	executionID := c.Param("id")
	ctx := c.Request.Context()

	batches, err := h.jobs.ListByExecution(ctx, executionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load execution: " + err.Error(),
		})
		return
	}
	if len(batches) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Unknown execution " + executionID,
		})
		return
	}

	counts, err := h.jobs.CountByStatus(ctx, executionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to summarize execution: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"execution_id": executionID,
		"batches":      batches,
		"by_status":    counts,
	})
}
