package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storewise/recsync/internal/api/dto"
	"github.com/storewise/recsync/internal/queue"
)

// ListJobs handles GET /api/v1/jobs
// Lists sync queue jobs with optional filtering and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	if req.Model != "" && !queue.Model(req.Model).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid model filter",
		})
		return
	}
	if req.Action != "" && !queue.Action(req.Action).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid action filter",
		})
		return
	}

	status, err := parseStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid status filter",
		})
		return
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := queue.ListFilter{
		Model:    queue.Model(req.Model),
		Action:   queue.Action(req.Action),
		Status:   status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.queue.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i, job := range jobs {
		jobResponse[i] = dto.JobDTO{
			ID:        job.ID,
			Model:     string(job.Model),
			Action:    string(job.Action),
			ModelID:   job.ModelID,
			Payload:   job.Payload,
			Status:    job.Status.String(),
			CreatedAt: job.CreatedAt.Format(time.RFC3339),
		}
		if job.ExecutedAt != nil {
			jobResponse[i].ExecutedAt = job.ExecutedAt.Format(time.RFC3339)
		}
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&queue.Cursor{
			CreatedAt: lastJob.CreatedAt,
			ID:        lastJob.ID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

func parseStatus(s string) (*queue.Status, error) {
	if s == "" {
		return nil, nil
	}

	for _, status := range []queue.Status{queue.StatusNone, queue.StatusPending, queue.StatusSuccess, queue.StatusFailure} {
		if s == status.String() {
			st := status
			return &st, nil
		}
	}
	return nil, errUnknownStatus
}
