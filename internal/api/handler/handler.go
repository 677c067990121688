package handler

import (
	"log/slog"

	"github.com/storewise/recsync/internal/queue"
	"github.com/storewise/recsync/internal/resync"
	"github.com/storewise/recsync/internal/worker"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger *slog.Logger
	Queue  queue.Store
	Worker *worker.Worker
	Resync *resync.Engine
}

// JobHandler serves the operator view of the sync queue
type JobHandler struct {
	logger *slog.Logger
	queue  queue.Store
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		queue:  deps.Queue,
	}
}

// SyncHandler serves bootstrap status and manual sync triggers
type SyncHandler struct {
	logger *slog.Logger
	queue  queue.Store
	worker *worker.Worker
	resync *resync.Engine
}

// NewSyncHandler creates a new SyncHandler instance
func NewSyncHandler(deps *Dependencies) *SyncHandler {
	return &SyncHandler{
		logger: deps.Logger,
		queue:  deps.Queue,
		worker: deps.Worker,
		resync: deps.Resync,
	}
}
