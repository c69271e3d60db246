package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lromero/facturabot/internal/engine"
)

// ReportsHandler exposes the consolidated execution reports.
type ReportsHandler struct {
	aggregator *engine.Aggregator
}

// NewReportsHandler creates a new reports handler.
// Parameters:
//   - aggregator: log aggregator backed by the artifact store.
// Returns:
//   - *ReportsHandler: initialized handler.
func NewReportsHandler(aggregator *engine.Aggregator) *ReportsHandler {
	return &ReportsHandler{aggregator: aggregator}
}

// List handles GET /api/reports and returns the dates with execution logs,
// newest first.
func (h *ReportsHandler) List(c *gin.Context) {
	dates, err := h.aggregator.ListDates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list reports: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dates": dates,
		"count": len(dates),
	})
}

// Get handles GET /api/reports/:date and returns the merged report of one
// day.
func (h *ReportsHandler) Get(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Date must be YYYY-MM-DD",
		})
		return
	}

	report, err := h.aggregator.ReportForDate(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to build report: " + err.Error(),
		})
		return
	}
	if report.BatchCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No execution logs for " + date,
		})
		return
	}

	c.JSON(http.StatusOK, report)
}
