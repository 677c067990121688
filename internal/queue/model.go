package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Model identifies the kind of entity a job concerns.
type Model string

const (
	ModelProducts   Model = "products"
	ModelVariants   Model = "variants"
	ModelUsers      Model = "users"
	ModelGuestUsers Model = "guest_users"
	ModelOrders     Model = "orders"
	ModelCategories Model = "categories"
)

// Valid reports whether m is one of the known entity kinds.
func (m Model) Valid() bool {
	switch m {
	case ModelProducts, ModelVariants, ModelUsers, ModelGuestUsers, ModelOrders, ModelCategories:
		return true
	}
	return false
}

// Action identifies what a job does to its entity.
type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionDeleteAll Action = "delete_all"
	ActionCancel    Action = "cancel"
	// ActionInit is a bulk bootstrap chunk carrying a batch of entity ids.
	ActionInit Action = "init"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionDeleteAll, ActionCancel, ActionInit:
		return true
	}
	return false
}

// Status is the lifecycle state of a job.
type Status int

const (
	// StatusNone means created and not yet picked up by a worker.
	StatusNone Status = 0
	// StatusPending means claimed by a worker, result not yet recorded.
	StatusPending Status = 1
	StatusSuccess Status = 2
	StatusFailure Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Job is one durable unit of outbound synchronization work. A job is
// "alive" until a worker claims it (ExecutedAt set); after that its
// status only ever moves to a terminal SUCCESS or FAILURE.
type Job struct {
	ID         int64           `db:"id"`
	Model      Model           `db:"model"`
	Action     Action          `db:"action"`
	ModelID    *int64          `db:"model_id"`
	Payload    json.RawMessage `db:"job"`
	Status     Status          `db:"status"`
	ExecutedAt *time.Time      `db:"executed_at"`
	CreatedAt  time.Time       `db:"created_at"`
}

// Alive reports whether the job has not been claimed yet.
func (j *Job) Alive() bool {
	return j.ExecutedAt == nil
}
