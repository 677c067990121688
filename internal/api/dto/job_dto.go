package dto

import "encoding/json"

type ListJobsRequest struct {
	Model    string `form:"model"`
	Action   string `form:"action"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	ID         int64           `json:"id"`
	Model      string          `json:"model"`
	Action     string          `json:"action"`
	ModelID    *int64          `json:"model_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Status     string          `json:"status"`
	ExecutedAt string          `json:"executed_at,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

// KindProgress reports bootstrap progress for one entity kind.
type KindProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

type SyncStatusResponse struct {
	Seeded   bool                    `json:"seeded"`
	Progress map[string]KindProgress `json:"progress"`
}
