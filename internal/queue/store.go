package queue

import (
	"context"
	"time"
)

// InitStat summarizes bootstrap progress for one entity kind, derived
// from init jobs' payload id counts and statuses.
type InitStat struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ListFilter narrows a job listing. Zero values mean "no filter".
type ListFilter struct {
	Model    Model
	Action   Action
	Status   *Status
	PageSize int
	Cursor   *Cursor
}

// Cursor is an opaque (created_at, id) position for keyset pagination.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

// Store is the durable job queue. The queue table is the only shared
// mutable resource in the system; ClaimNext is the only operation that
// must be atomic across callers.
type Store interface {
	// Enqueue inserts a StatusNone job and returns its id. No uniqueness
	// is enforced here; callers must consult FindAlive first to merge
	// instead of duplicating.
	Enqueue(ctx context.Context, model Model, action Action, modelID *int64, payload any) (int64, error)

	// FindAlive returns the most recent unexecuted job for the
	// (model, action, modelID) triple, or nil when none exists.
	FindAlive(ctx context.Context, model Model, action Action, modelID int64) (*Job, error)

	// MergePayload overwrites the payload of an alive job in place.
	// Returns ErrJobNotAlive if the job has already been claimed.
	MergePayload(ctx context.Context, jobID int64, payload any) error

	// ClaimNext atomically selects the oldest alive job, stamps its
	// executed_at, moves it to StatusPending and returns it. Concurrent
	// callers never receive the same job. Returns ErrNoJob when the
	// queue is drained.
	ClaimNext(ctx context.Context) (*Job, error)

	// MarkResult records the terminal status of a claimed job.
	MarkResult(ctx context.Context, jobID int64, success bool) error

	// HasInitJobs reports whether any bootstrap job was ever enqueued;
	// used to guard the first-activation bootstrap.
	HasInitJobs(ctx context.Context) (bool, error)

	// InitStats aggregates bootstrap progress per entity kind.
	InitStats(ctx context.Context) (map[Model]InitStat, error)

	// ReclaimStale resets jobs stuck in StatusPending longer than
	// olderThan back to alive so a later tick can retry them. Returns
	// the number of jobs reclaimed.
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error)

	// List returns jobs newest first for the operator surface. One more
	// row than PageSize is returned when further pages exist.
	List(ctx context.Context, filter ListFilter) ([]Job, error)
}
