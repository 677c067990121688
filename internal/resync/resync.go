// Package resync keeps the remote copy convergent with the storefront.
// It runs two passes: a one-time bootstrap that seeds the remote side in
// chunks, and a periodic push-diff pass driven by the remote service's
// own manifest of what it believes changed.
package resync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/storewise/recsync/internal/catalog"
	"github.com/storewise/recsync/internal/items"
	"github.com/storewise/recsync/internal/queue"
	"github.com/storewise/recsync/internal/remote"
)

// Config holds reconciliation settings.
type Config struct {
	// ChunkSize bounds the id count per bootstrap init job.
	ChunkSize int
}

// Engine reconciles local storefront state with the remote copy. All
// repair work is expressed as queue jobs; the engine itself only calls
// the remote API for read endpoints and delete-all.
type Engine struct {
	store   queue.Store
	catalog catalog.Store
	builder *items.Builder
	client  remote.API
	logger  *slog.Logger
	cfg     Config
}

func New(store queue.Store, cat catalog.Store, builder *items.Builder, client remote.API, logger *slog.Logger, cfg Config) *Engine {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 200
	}
	return &Engine{
		store:   store,
		catalog: cat,
		builder: builder,
		client:  client,
		logger:  logger,
		cfg:     cfg,
	}
}

// Bootstrap seeds the remote copy. Unless forced it runs at most once
// per installation: any previously enqueued init job means the seed
// already happened and the pass is a no-op. Forced bootstraps skip the
// remote overview diff and chunk every local id.
//
// The first overview call doubles as the credential probe; a rejected
// key pair aborts the whole pass before any job is enqueued.
func (e *Engine) Bootstrap(ctx context.Context, force bool) error {
	if !force {
		seeded, err := e.store.HasInitJobs(ctx)
		if err != nil {
			return fmt.Errorf("check bootstrap state: %w", err)
		}
		if seeded {
			e.logger.Debug("bootstrap already seeded, skipping")
			return nil
		}
	}

	kinds := []struct {
		model    queue.Model
		kind     string
		localIDs func(context.Context) ([]int64, error)
	}{
		{queue.ModelProducts, "products", e.catalog.PublishedProductIDs},
		{queue.ModelCategories, "categories", e.catalog.CategoryIDs},
		{queue.ModelUsers, "users", e.catalog.UserIDs},
		{queue.ModelOrders, "orders", e.catalog.OrderIDs},
	}

	for _, k := range kinds {
		localIDs, err := k.localIDs(ctx)
		if err != nil {
			return fmt.Errorf("list local %s ids: %w", k.kind, err)
		}

		missing := localIDs
		if !force {
			remoteIDs, err := e.client.Overview(ctx, k.kind)
			if err != nil {
				if errors.Is(err, remote.ErrUnauthorized) {
					return fmt.Errorf("bootstrap aborted: %w", err)
				}
				return fmt.Errorf("fetch %s overview: %w", k.kind, err)
			}
			missing = diffIDs(localIDs, remoteIDs)
		}

		chunks := chunkIDs(missing, e.cfg.ChunkSize)
		for _, chunk := range chunks {
			if _, err := e.store.Enqueue(ctx, k.model, queue.ActionInit, nil, &queue.InitPayload{IDs: chunk}); err != nil {
				return fmt.Errorf("enqueue %s init chunk: %w", k.kind, err)
			}
		}

		e.logger.Info("bootstrap seeded",
			slog.String("model", string(k.model)),
			slog.Int("local", len(localIDs)),
			slog.Int("missing", len(missing)),
			slog.Int("chunks", len(chunks)),
		)
	}

	return nil
}

// RunPush asks the remote service what it believes changed and enqueues
// repair jobs. Each kind is handled independently; one kind's failure
// does not stop the others.
func (e *Engine) RunPush(ctx context.Context) error {
	manifest, err := e.client.Sync(ctx)
	if err != nil {
		return fmt.Errorf("fetch sync manifest: %w", err)
	}
	if manifest == nil {
		return nil
	}

	var errs []error
	if manifest.Products != nil {
		if err := e.pushProducts(ctx, manifest.Products); err != nil {
			e.logger.Error("product push-diff failed", slog.Any("error", err))
			errs = append(errs, fmt.Errorf("products: %w", err))
		}
	}
	if manifest.Users != nil {
		if err := e.pushUsers(ctx, manifest.Users); err != nil {
			e.logger.Error("user push-diff failed", slog.Any("error", err))
			errs = append(errs, fmt.Errorf("users: %w", err))
		}
	}
	if manifest.Orders != nil {
		if err := e.pushOrders(ctx, manifest.Orders); err != nil {
			e.logger.Error("order push-diff failed", slog.Any("error", err))
			errs = append(errs, fmt.Errorf("orders: %w", err))
		}
	}

	return errors.Join(errs...)
}

// pushProducts repairs product drift. A "full" signal wipes the remote
// kind and reseeds from scratch; an id list removes each record and
// recreates it from current local state when the product is still
// published. Variable products are recreated variant by variant.
func (e *Engine) pushProducts(ctx context.Context, diff *remote.KindDiff) error {
	if diff.Full {
		return e.reseedKind(ctx, queue.ModelProducts, "products", e.catalog.PublishedProductIDs)
	}

	for _, id := range diff.IDs {
		if err := e.enqueueProductDelete(ctx, id); err != nil {
			return err
		}

		product, err := e.catalog.Product(ctx, id)
		if err != nil {
			return err
		}
		if product == nil || !product.Published() {
			continue
		}

		if product.HasVariants() {
			for _, childID := range product.ChildIDs {
				item, err := e.builder.ProductItem(ctx, childID, true)
				if err != nil {
					return err
				}
				if item == nil {
					continue
				}
				if err := e.enqueueProductCreate(ctx, queue.ModelVariants, childID, item); err != nil {
					return err
				}
			}
			continue
		}

		item, err := e.builder.ProductItemFor(ctx, product, true)
		if err != nil {
			return err
		}
		if err := e.enqueueProductCreate(ctx, queue.ModelProducts, id, item); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) pushUsers(ctx context.Context, diff *remote.KindDiff) error {
	if diff.Full {
		return e.reseedKind(ctx, queue.ModelUsers, "users", e.catalog.UserIDs)
	}

	for _, id := range diff.IDs {
		payload := &queue.UserDeletePayload{UserID: id}
		if _, err := e.store.Enqueue(ctx, queue.ModelUsers, queue.ActionDelete, ptr(id), payload); err != nil {
			return fmt.Errorf("enqueue user delete: %w", err)
		}

		item, err := e.builder.UserItem(ctx, id, true)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}
		create := &queue.UserCreatePayload{Item: item}
		if _, err := e.store.Enqueue(ctx, queue.ModelUsers, queue.ActionCreate, ptr(id), create); err != nil {
			return fmt.Errorf("enqueue user create: %w", err)
		}
	}

	return nil
}

func (e *Engine) pushOrders(ctx context.Context, diff *remote.KindDiff) error {
	if diff.Full {
		return e.reseedKind(ctx, queue.ModelOrders, "orders", e.catalog.OrderIDs)
	}

	for _, id := range diff.IDs {
		payload := &queue.OrderDeletePayload{OrderID: id}
		if _, err := e.store.Enqueue(ctx, queue.ModelOrders, queue.ActionDelete, ptr(id), payload); err != nil {
			return fmt.Errorf("enqueue order delete: %w", err)
		}

		order, err := e.catalog.Order(ctx, id)
		if err != nil {
			return err
		}
		if order == nil || order.Status == catalog.OrderStatusCancelled {
			continue
		}

		item, err := e.builder.OrderItem(order)
		if err != nil {
			return err
		}
		if item == nil {
			continue
		}

		// Remote user records must exist before the order references
		// them, so guest identities are pushed first.
		if order.Guest() && order.BillingEmail != "" {
			guest := &queue.UserCreatePayload{Item: e.builder.GuestUserItem(order)}
			if _, err := e.store.Enqueue(ctx, queue.ModelGuestUsers, queue.ActionCreate, ptr(id), guest); err != nil {
				return fmt.Errorf("enqueue guest user create: %w", err)
			}
		}

		create := &queue.OrderCreatePayload{Item: item}
		if _, err := e.store.Enqueue(ctx, queue.ModelOrders, queue.ActionCreate, ptr(id), create); err != nil {
			return fmt.Errorf("enqueue order create: %w", err)
		}
	}

	return nil
}

// reseedKind wipes the remote kind and enqueues a forced bootstrap of
// every local id. The delete-all runs through the queue too so the wipe
// is ordered before the reseed chunks.
func (e *Engine) reseedKind(ctx context.Context, model queue.Model, kind string, localIDs func(context.Context) ([]int64, error)) error {
	if _, err := e.store.Enqueue(ctx, model, queue.ActionDeleteAll, nil, &queue.DeleteAllPayload{}); err != nil {
		return fmt.Errorf("enqueue %s delete-all: %w", kind, err)
	}

	ids, err := localIDs(ctx)
	if err != nil {
		return fmt.Errorf("list local %s ids: %w", kind, err)
	}

	chunks := chunkIDs(ids, e.cfg.ChunkSize)
	for _, chunk := range chunks {
		if _, err := e.store.Enqueue(ctx, model, queue.ActionInit, nil, &queue.InitPayload{IDs: chunk}); err != nil {
			return fmt.Errorf("enqueue %s reseed chunk: %w", kind, err)
		}
	}

	e.logger.Info("remote kind reseeded",
		slog.String("model", string(model)),
		slog.Int("ids", len(ids)),
		slog.Int("chunks", len(chunks)),
	)

	return nil
}

func (e *Engine) enqueueProductDelete(ctx context.Context, id int64) error {
	payload := &queue.ProductDeletePayload{ProductID: id, VariantID: items.NoVariants}
	if _, err := e.store.Enqueue(ctx, queue.ModelProducts, queue.ActionDelete, ptr(id), payload); err != nil {
		return fmt.Errorf("enqueue product delete: %w", err)
	}
	return nil
}

func (e *Engine) enqueueProductCreate(ctx context.Context, model queue.Model, id int64, item *items.ProductItem) error {
	payload := &queue.ProductCreatePayload{Item: item}
	if _, err := e.store.Enqueue(ctx, model, queue.ActionCreate, ptr(id), payload); err != nil {
		return fmt.Errorf("enqueue product create: %w", err)
	}
	return nil
}

// diffIDs returns the members of local missing from remote, preserving
// local order.
func diffIDs(local, remoteIDs []int64) []int64 {
	known := make(map[int64]bool, len(remoteIDs))
	for _, id := range remoteIDs {
		known[id] = true
	}

	var missing []int64
	for _, id := range local {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	return missing
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

func ptr(id int64) *int64 {
	return &id
}
