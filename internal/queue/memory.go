package queue

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store with the same claim semantics as
// PostgresStore. It backs the package tests and local development
// without a database.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	jobs   []*Job
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Enqueue(_ context.Context, model Model, action Action, modelID *int64, payload any) (int64, error) {
	raw, err := MarshalPayload(payload)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var idCopy *int64
	if modelID != nil {
		v := *modelID
		idCopy = &v
	}

	job := &Job{
		ID:        s.nextID,
		Model:     model,
		Action:    action,
		ModelID:   idCopy,
		Payload:   raw,
		Status:    StatusNone,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.jobs = append(s.jobs, job)

	return job.ID, nil
}

func (s *MemoryStore) FindAlive(_ context.Context, model Model, action Action, modelID int64) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.jobs) - 1; i >= 0; i-- {
		job := s.jobs[i]
		if job.Model == model && job.Action == action && job.ModelID != nil && *job.ModelID == modelID && job.Alive() {
			copied := *job
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) MergePayload(_ context.Context, jobID int64, payload any) error {
	raw, err := MarshalPayload(payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.find(jobID)
	if job == nil {
		return ErrJobNotFound
	}
	if !job.Alive() {
		return ErrJobNotAlive
	}

	job.Payload = raw
	return nil
}

func (s *MemoryStore) ClaimNext(_ context.Context) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Alive() {
			now := time.Now()
			job.ExecutedAt = &now
			job.Status = StatusPending
			copied := *job
			return &copied, nil
		}
	}
	return nil, ErrNoJob
}

func (s *MemoryStore) MarkResult(_ context.Context, jobID int64, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.find(jobID)
	if job == nil || job.Status != StatusPending {
		return ErrJobNotFound
	}

	if success {
		job.Status = StatusSuccess
	} else {
		job.Status = StatusFailure
	}
	return nil
}

func (s *MemoryStore) HasInitJobs(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Action == ActionInit {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) InitStats(_ context.Context) (map[Model]InitStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var initJobs []Job
	for _, job := range s.jobs {
		if job.Action == ActionInit {
			initJobs = append(initJobs, *job)
		}
	}
	return aggregateInitStats(initJobs), nil
}

func (s *MemoryStore) ReclaimStale(_ context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var count int64
	for _, job := range s.jobs {
		if job.Status == StatusPending && job.ExecutedAt != nil && job.ExecutedAt.Before(cutoff) {
			job.ExecutedAt = nil
			job.Status = StatusNone
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Job
	for _, job := range s.jobs {
		if filter.Model != "" && job.Model != filter.Model {
			continue
		}
		if filter.Action != "" && job.Action != filter.Action {
			continue
		}
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		if filter.Cursor != nil {
			if !job.CreatedAt.Before(filter.Cursor.CreatedAt) && job.ID >= filter.Cursor.ID {
				continue
			}
		}
		out = append(out, *job)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if len(out) > pageSize+1 {
		out = out[:pageSize+1]
	}

	return out, nil
}

// Snapshot returns a copy of every job, oldest first. Test helper.
func (s *MemoryStore) Snapshot() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

// DecodeInto unmarshals a job payload into target. Test helper.
func DecodeInto(job *Job, target any) error {
	return json.Unmarshal(job.Payload, target)
}

func (s *MemoryStore) find(jobID int64) *Job {
	for _, job := range s.jobs {
		if job.ID == jobID {
			return job
		}
	}
	return nil
}
