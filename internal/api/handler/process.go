package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lromero/facturabot/internal/config"
	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/engine"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/portal"
	"github.com/lromero/facturabot/internal/source"
)

// ProcessHandler handles worksheet upload, analysis and dispatch endpoints.
type ProcessHandler struct {
	reader     source.Reader
	dispatcher *engine.Dispatcher
	engineCfg  config.EngineConfig
}

// NewProcessHandler creates a new process handler.
// Parameters:
//   - reader: worksheet parser.
//   - dispatcher: batch dispatcher.
//   - engineCfg: engine settings (batch size etc.).
// Returns:
//   - *ProcessHandler: initialized handler.
func NewProcessHandler(reader source.Reader, dispatcher *engine.Dispatcher, engineCfg config.EngineConfig) *ProcessHandler {
	return &ProcessHandler{
		reader:     reader,
		dispatcher: dispatcher,
		engineCfg:  engineCfg,
	}
}

// Process handles POST /api/process. The uploaded worksheet is parsed,
// planned into batches and either fanned out to the queue or run locally.
// Query parameters: provider (restrict to one provider), dry_run (analyze
// only), force_local (skip the queue).
func (h *ProcessHandler) Process(c *gin.Context) {
	ctx := c.Request.Context()

	items, ok := h.parseUpload(c)
	if !ok {
		return
	}

	if provider := c.Query("provider"); provider != "" {
		items = filterByProvider(items, provider)
		if len(items) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "No processable rows for provider " + provider,
			})
			return
		}
	}

	if c.Query("dry_run") == "true" {
		c.JSON(http.StatusOK, analysisResponse(items, h.engineCfg.BatchSize))
		return
	}

	executionID := uuid.New().String()
	ctx = logger.SetExecutionID(ctx, executionID)
	logger.CtxInfo(ctx, "Processing upload: %d items", len(items))

	// Only the top-level intake clears the scratch dir. Workers share it and
	// may still be writing.
	if removed := clearScratchDir(h.engineCfg.DownloadPath); removed > 0 {
		logger.CtxInfo(ctx, "Cleared %d stale files from %s", removed, h.engineCfg.DownloadPath)
	}

	batches := engine.Plan(items, h.engineCfg.BatchSize, executionID)
	result, err := h.dispatcher.Dispatch(ctx, batches, c.Query("force_local") == "true")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to dispatch batches: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Validate handles POST /api/validate. It parses the worksheet and reports
// what would be processed, without touching any portal.
func (h *ProcessHandler) Validate(c *gin.Context) {
	items, ok := h.parseUpload(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, analysisResponse(items, h.engineCfg.BatchSize))
}

// parseUpload reads the multipart "file" field into work items, writing the
// error response itself when parsing fails.
func (h *ProcessHandler) parseUpload(c *gin.Context) ([]domain.WorkItem, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing file upload",
		})
		return nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to open upload: " + err.Error(),
		})
		return nil, false
	}
	defer f.Close()

	items, err := h.reader.ReadFrom(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to parse worksheet: " + err.Error(),
		})
		return nil, false
	}
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Worksheet has no processable rows",
		})
		return nil, false
	}
	return items, true
}

// clearScratchDir removes leftover downloads (txt, png, json) from previous
// runs. Anything else in the directory is left alone.
func clearScratchDir(dir string) int {
	if dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".txt", ".png", ".json":
			if os.Remove(filepath.Join(dir, entry.Name())) == nil {
				removed++
			}
		}
	}
	return removed
}

func filterByProvider(items []domain.WorkItem, provider string) []domain.WorkItem {
	want := portal.NormalizeProvider(provider)
	var filtered []domain.WorkItem
	for _, item := range items {
		if portal.NormalizeProvider(item.Provider) == want {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func analysisResponse(items []domain.WorkItem, batchSize int) gin.H {
	groups := engine.GroupByProvider(items)

	providers := make([]string, 0, len(groups))
	for p := range groups {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	breakdown := make([]gin.H, 0, len(providers))
	totalBatches := 0
	for _, p := range providers {
		group := groups[p]
		batches := (len(group) + batchSize - 1) / batchSize
		totalBatches += batches
		ids := make([]string, len(group))
		for i, item := range group {
			ids[i] = item.Identifier
		}
		breakdown = append(breakdown, gin.H{
			"provider":    p,
			"count":       len(group),
			"batches":     batches,
			"identifiers": ids,
		})
	}

	return gin.H{
		"total_items":   len(items),
		"total_batches": totalBatches,
		"batch_size":    batchSize,
		"providers":     breakdown,
	}
}
