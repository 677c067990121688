package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore is the durable Store implementation backed by the
// sync_queue table (see migrations/0001_sync_queue.sql).
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) Enqueue(ctx context.Context, model Model, action Action, modelID *int64, payload any) (int64, error) {
	raw, err := MarshalPayload(payload)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO sync_queue (model, action, model_id, job, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id
	`

	var id int64
	if err := s.db.GetContext(ctx, &id, query, model, action, modelID, raw, StatusNone); err != nil {
		return 0, fmt.Errorf("enqueue %s %s: %w", model, action, err)
	}

	s.logger.Debug("job enqueued",
		slog.Int64("job_id", id),
		slog.String("model", string(model)),
		slog.String("action", string(action)),
	)

	return id, nil
}

func (s *PostgresStore) FindAlive(ctx context.Context, model Model, action Action, modelID int64) (*Job, error) {
	query := `
		SELECT id, model, action, model_id, job, status, executed_at, created_at
		FROM sync_queue
		WHERE model = $1 AND action = $2 AND model_id = $3 AND executed_at IS NULL
		ORDER BY id DESC
		LIMIT 1
	`

	var job Job
	err := s.db.GetContext(ctx, &job, query, model, action, modelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find alive job: %w", err)
	}

	return &job, nil
}

func (s *PostgresStore) MergePayload(ctx context.Context, jobID int64, payload any) error {
	raw, err := MarshalPayload(payload)
	if err != nil {
		return err
	}

	query := `
		UPDATE sync_queue
		SET job = $1
		WHERE id = $2 AND executed_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, raw, jobID)
	if err != nil {
		return fmt.Errorf("merge payload: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("merge payload rows affected: %w", err)
	}
	if affected == 0 {
		return ErrJobNotAlive
	}

	return nil
}

// ClaimNext selects the oldest alive row under FOR UPDATE SKIP LOCKED so
// overlapping ticks from late or retried invocations never hand the same
// job to two workers.
func (s *PostgresStore) ClaimNext(ctx context.Context) (*Job, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback()

	selectQuery := `
		SELECT id, model, action, model_id, job, status, executed_at, created_at
		FROM sync_queue
		WHERE executed_at IS NULL
		ORDER BY id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var job Job
	if err := tx.GetContext(ctx, &job, selectQuery); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("select next job: %w", err)
	}

	updateQuery := `
		UPDATE sync_queue
		SET executed_at = NOW(), status = $1
		WHERE id = $2
		RETURNING executed_at
	`

	var executedAt time.Time
	if err := tx.GetContext(ctx, &executedAt, updateQuery, StatusPending, job.ID); err != nil {
		return nil, fmt.Errorf("stamp claimed job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}

	job.Status = StatusPending
	job.ExecutedAt = &executedAt

	s.logger.Debug("job claimed",
		slog.Int64("job_id", job.ID),
		slog.String("model", string(job.Model)),
		slog.String("action", string(job.Action)),
	)

	return &job, nil
}

func (s *PostgresStore) MarkResult(ctx context.Context, jobID int64, success bool) error {
	status := StatusFailure
	if success {
		status = StatusSuccess
	}

	query := `
		UPDATE sync_queue
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	res, err := s.db.ExecContext(ctx, query, status, jobID, StatusPending)
	if err != nil {
		return fmt.Errorf("mark job result: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark result rows affected: %w", err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}

	return nil
}

func (s *PostgresStore) HasInitJobs(ctx context.Context) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM sync_queue WHERE action = $1)`
	if err := s.db.GetContext(ctx, &exists, query, ActionInit); err != nil {
		return false, fmt.Errorf("check init jobs: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) InitStats(ctx context.Context) (map[Model]InitStat, error) {
	query := `
		SELECT id, model, action, model_id, job, status, executed_at, created_at
		FROM sync_queue
		WHERE action = $1
	`

	var jobs []Job
	if err := s.db.SelectContext(ctx, &jobs, query, ActionInit); err != nil {
		return nil, fmt.Errorf("load init jobs: %w", err)
	}

	return aggregateInitStats(jobs), nil
}

func (s *PostgresStore) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE sync_queue
		SET executed_at = NULL, status = $1
		WHERE status = $2 AND executed_at < NOW() - $3::interval
	`

	interval := fmt.Sprintf("%d seconds", int64(olderThan.Seconds()))
	res, err := s.db.ExecContext(ctx, query, StatusNone, StatusPending, interval)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim rows affected: %w", err)
	}

	if affected > 0 {
		s.logger.Warn("reclaimed stale pending jobs",
			slog.Int64("count", affected),
			slog.Duration("older_than", olderThan),
		)
	}

	return affected, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	query := `
		SELECT id, model, action, model_id, job, status, executed_at, created_at
		FROM sync_queue
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.Model != "" {
		query += fmt.Sprintf(" AND model = $%d", argIdx)
		args = append(args, filter.Model)
		argIdx++
	}

	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filter.Action)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, pageSize+1)

	var jobs []Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	return jobs, nil
}

// aggregateInitStats folds init jobs into per-kind progress counters.
// Variant bootstrap chunks count toward products, matching how the
// operator thinks about catalog progress.
func aggregateInitStats(jobs []Job) map[Model]InitStat {
	stats := make(map[Model]InitStat)

	for i := range jobs {
		job := &jobs[i]

		// A payload that fails to decode still counts as one unit of
		// work so the operator sees the failure reflected somewhere.
		payload := InitPayload{}
		if len(job.Payload) > 0 {
			_ = json.Unmarshal(job.Payload, &payload)
		}

		count := len(payload.IDs)
		if count == 0 {
			count = 1
		}

		model := job.Model
		if model == ModelVariants {
			model = ModelProducts
		}

		stat := stats[model]
		stat.Total += count
		switch job.Status {
		case StatusSuccess:
			stat.Completed += count
		case StatusFailure:
			stat.Failed += count
		}
		stats[model] = stat
	}

	return stats
}
