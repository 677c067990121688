package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storewise/recsync/internal/api/dto"
)

var errUnknownStatus = errors.New("unknown status value")

// SyncStatus handles GET /api/v1/sync/status
// Reports whether the bootstrap has been seeded and its per-kind progress
func (h *SyncHandler) SyncStatus(c *gin.Context) {
	seeded, err := h.queue.HasInitJobs(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to check bootstrap state", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to check bootstrap state",
		})
		return
	}

	stats, err := h.queue.InitStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load bootstrap stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load bootstrap stats",
		})
		return
	}

	progress := make(map[string]dto.KindProgress, len(stats))
	for model, stat := range stats {
		progress[string(model)] = dto.KindProgress{
			Total:     stat.Total,
			Completed: stat.Completed,
			Failed:    stat.Failed,
		}
	}

	c.JSON(http.StatusOK, dto.SyncStatusResponse{
		Seeded:   seeded,
		Progress: progress,
	})
}

// RunTick handles POST /api/v1/sync/run
// Executes one worker tick synchronously, useful for operators draining
// the queue by hand
func (h *SyncHandler) RunTick(c *gin.Context) {
	if err := h.worker.RunTick(c.Request.Context()); err != nil {
		h.logger.Error("Manual tick failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Tick failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// RunResync handles POST /api/v1/resync/run
// Runs a push-diff reconciliation pass immediately
func (h *SyncHandler) RunResync(c *gin.Context) {
	if err := h.resync.RunPush(c.Request.Context()); err != nil {
		h.logger.Error("Manual resync failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Resync failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// RunBootstrap handles POST /api/v1/resync/bootstrap
// Seeds the bootstrap; force=true reseeds every local id regardless of
// remote state
func (h *SyncHandler) RunBootstrap(c *gin.Context) {
	force := c.Query("force") == "true"

	if err := h.resync.Bootstrap(c.Request.Context(), force); err != nil {
		h.logger.Error("Manual bootstrap failed",
			slog.Bool("force", force),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Bootstrap failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"force":  force,
	})
}
