// Package worker drains the sync queue one job per tick and executes
// jobs against the remote recommendation API.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/storewise/recsync/internal/catalog"
	"github.com/storewise/recsync/internal/items"
	"github.com/storewise/recsync/internal/queue"
	"github.com/storewise/recsync/internal/remote"
)

// Config holds worker settings.
type Config struct {
	// ReclaimAfter resets jobs stuck in PENDING longer than this back
	// to alive. Zero disables reclaiming.
	ReclaimAfter time.Duration
	// ChunkSize bounds the id count per cascaded variant init job.
	ChunkSize int
}

// Worker executes claimed jobs. Single-entity jobs run purely off the
// persisted payload; init jobs build fresh items from the ids they
// carry.
type Worker struct {
	store   queue.Store
	catalog catalog.Store
	builder *items.Builder
	client  remote.API
	logger  *slog.Logger
	cfg     Config
}

func New(store queue.Store, cat catalog.Store, builder *items.Builder, client remote.API, logger *slog.Logger, cfg Config) *Worker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 200
	}
	return &Worker{
		store:   store,
		catalog: cat,
		builder: builder,
		client:  client,
		logger:  logger,
		cfg:     cfg,
	}
}

// RunTick claims the oldest alive job, executes it and records the
// terminal result. A failed remote call marks the job FAILURE; it is
// never requeued by the worker, recovery is the reconciliation engine's
// business.
func (w *Worker) RunTick(ctx context.Context) error {
	if w.cfg.ReclaimAfter > 0 {
		if _, err := w.store.ReclaimStale(ctx, w.cfg.ReclaimAfter); err != nil {
			w.logger.Error("reclaim pass failed", slog.Any("error", err))
		}
	}

	job, err := w.store.ClaimNext(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrNoJob) {
			return nil
		}
		return fmt.Errorf("claim next job: %w", err)
	}

	w.logger.Info("executing job",
		slog.Int64("job_id", job.ID),
		slog.String("model", string(job.Model)),
		slog.String("action", string(job.Action)),
	)

	execErr := w.execute(ctx, job)
	if execErr != nil {
		w.logger.Error("job failed",
			slog.Int64("job_id", job.ID),
			slog.String("model", string(job.Model)),
			slog.String("action", string(job.Action)),
			slog.Any("error", execErr),
		)
	}

	if err := w.store.MarkResult(ctx, job.ID, execErr == nil); err != nil {
		return fmt.Errorf("mark job %d result: %w", job.ID, err)
	}

	return nil
}

func (w *Worker) execute(ctx context.Context, job *queue.Job) error {
	switch job.Action {
	case queue.ActionInit:
		return w.executeInit(ctx, job)
	case queue.ActionDeleteAll:
		return w.client.DeleteAll(ctx, remoteKind(job.Model))
	}

	payload, err := queue.DecodePayload(job)
	if err != nil {
		return err
	}

	kind := remoteKind(job.Model)

	switch p := payload.(type) {
	case *queue.ProductCreatePayload:
		return w.client.Create(ctx, kind, p.Item)
	case *queue.ProductUpdatePayload:
		return w.client.Update(ctx, kind, []string{formatID(p.ProductID), p.VariantID.String()}, p.Item)
	case *queue.ProductDeletePayload:
		identity := []string{formatID(p.ProductID)}
		if p.VariantID.IsVariant() {
			identity = append(identity, p.VariantID.String())
		}
		return w.client.Delete(ctx, kind, identity)

	case *queue.UserCreatePayload:
		return w.client.Create(ctx, kind, p.Item)
	case *queue.UserUpdatePayload:
		return w.client.Update(ctx, kind, []string{formatID(p.UserID)}, p.Item)
	case *queue.UserDeletePayload:
		return w.client.Delete(ctx, kind, []string{formatID(p.UserID)})

	case *queue.OrderCreatePayload:
		return w.client.Create(ctx, kind, p.Item)
	case *queue.OrderCancelPayload:
		return w.client.Cancel(ctx, kind, formatID(p.OrderID))
	case *queue.OrderDeletePayload:
		return w.client.Delete(ctx, kind, []string{formatID(p.OrderID)})

	case *queue.CategoryCreatePayload:
		return w.client.Create(ctx, kind, p.Item)
	case *queue.CategoryUpdatePayload:
		return w.client.Update(ctx, kind, []string{formatID(p.CategoryID)}, p.Item)
	case *queue.CategoryDeletePayload:
		return w.client.Delete(ctx, kind, []string{formatID(p.CategoryID)})
	}

	return fmt.Errorf("no executor for model=%s action=%s", job.Model, job.Action)
}

// executeInit pushes one bootstrap chunk with a batched create. Items
// are built fresh from the ids; entities that vanished since the chunk
// was enqueued are skipped.
func (w *Worker) executeInit(ctx context.Context, job *queue.Job) error {
	var payload queue.InitPayload
	decoded, err := queue.DecodePayload(job)
	if err != nil {
		return err
	}
	payload = *decoded.(*queue.InitPayload)

	switch job.Model {
	case queue.ModelProducts:
		return w.initProducts(ctx, payload.IDs)
	case queue.ModelVariants:
		return w.initVariants(ctx, payload.IDs)
	case queue.ModelUsers:
		return w.initUsers(ctx, payload.IDs)
	case queue.ModelOrders:
		return w.initOrders(ctx, payload.IDs)
	case queue.ModelCategories:
		return w.initCategories(ctx, payload.IDs)
	}

	return fmt.Errorf("no init executor for model %s", job.Model)
}

func (w *Worker) initProducts(ctx context.Context, ids []int64) error {
	var batch []any
	var variantIDs []int64

	for _, id := range ids {
		product, err := w.catalog.Product(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			continue
		}

		item, err := w.builder.ProductItemFor(ctx, product, true)
		if err != nil {
			return err
		}
		batch = append(batch, item)
		variantIDs = append(variantIDs, product.ChildIDs...)
	}

	if len(batch) > 0 {
		if err := w.client.BatchCreate(ctx, "products", batch); err != nil {
			return err
		}
	}

	// Cascade the bootstrap: variants discovered in this chunk get
	// their own init jobs once the parent products exist remotely.
	for _, chunk := range chunkIDs(variantIDs, w.cfg.ChunkSize) {
		if _, err := w.store.Enqueue(ctx, queue.ModelVariants, queue.ActionInit, nil, &queue.InitPayload{IDs: chunk}); err != nil {
			return fmt.Errorf("enqueue variant init chunk: %w", err)
		}
	}

	return nil
}

func (w *Worker) initVariants(ctx context.Context, ids []int64) error {
	var batch []any
	for _, id := range ids {
		item, err := w.builder.ProductItem(ctx, id, true)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		batch = append(batch, item)
	}

	if len(batch) == 0 {
		return nil
	}
	return w.client.BatchCreate(ctx, "products", batch)
}

func (w *Worker) initUsers(ctx context.Context, ids []int64) error {
	var batch []any
	for _, id := range ids {
		item, err := w.builder.UserItem(ctx, id, true)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		batch = append(batch, item)
	}

	if len(batch) == 0 {
		return nil
	}
	return w.client.BatchCreate(ctx, "users", batch)
}

func (w *Worker) initOrders(ctx context.Context, ids []int64) error {
	var batch []any
	for _, id := range ids {
		order, err := w.catalog.Order(ctx, id)
		if err != nil {
			return err
		}
		if order == nil || order.Status == catalog.OrderStatusCancelled {
			continue
		}

		item, err := w.builder.OrderItem(order)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		batch = append(batch, item)
	}

	if len(batch) == 0 {
		return nil
	}
	return w.client.BatchCreate(ctx, "orders", batch)
}

func (w *Worker) initCategories(ctx context.Context, ids []int64) error {
	var batch []any
	for _, id := range ids {
		item, err := w.builder.CategoryItem(ctx, id, true)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		batch = append(batch, item)
	}

	if len(batch) == 0 {
		return nil
	}
	return w.client.BatchCreate(ctx, "categories", batch)
}

// remoteKind maps a queue model to the remote API's resource name.
// Variants live under products; guest users are plain users remotely.
func remoteKind(model queue.Model) string {
	switch model {
	case queue.ModelVariants:
		return "products"
	case queue.ModelGuestUsers:
		return "users"
	default:
		return string(model)
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func chunkIDs(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}

	var chunks [][]int64
	for size < len(ids) {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	return append(chunks, ids)
}
