// Package capture translates host lifecycle notifications into job
// store writes. Its central rule is merge-first: a new change for an
// entity folds into that entity's alive job instead of creating a
// duplicate, so the queue never carries two live jobs for the same
// (model, action, entity) triple.
package capture

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storewise/recsync/internal/catalog"
	"github.com/storewise/recsync/internal/items"
	"github.com/storewise/recsync/internal/queue"
)

// Capture decides which job an incoming change event becomes.
type Capture struct {
	store   queue.Store
	catalog catalog.Store
	builder *items.Builder
	logger  *slog.Logger
}

func New(store queue.Store, cat catalog.Store, builder *items.Builder, logger *slog.Logger) *Capture {
	return &Capture{store: store, catalog: cat, builder: builder, logger: logger}
}

// ProductStatusChanged handles a product or variant moving between the
// published state and any other state. Into published enqueues a
// create; out of published enqueues a delete.
func (c *Capture) ProductStatusChanged(ctx context.Context, id int64, oldStatus, newStatus string) error {
	intoPublished := newStatus == catalog.StatusPublished && oldStatus != catalog.StatusPublished
	outOfPublished := oldStatus == catalog.StatusPublished && newStatus != catalog.StatusPublished
	if !intoPublished && !outOfPublished {
		return nil
	}

	product, err := c.catalog.Product(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return nil
	}

	if intoPublished {
		item, err := c.builder.ProductItemFor(ctx, product, true)
		if err != nil {
			return err
		}
		_, err = c.store.Enqueue(ctx, queue.ModelProducts, queue.ActionCreate, &id, &queue.ProductCreatePayload{Item: item})
		return err
	}

	payload := &queue.ProductDeletePayload{ProductID: product.ID, VariantID: items.NoVariants}
	if product.IsVariant() {
		payload.ProductID = product.ParentID
		payload.VariantID = items.Variant(product.ID)
	}
	_, err = c.store.Enqueue(ctx, queue.ModelProducts, queue.ActionDelete, &id, payload)
	return err
}

// ProductUpdated handles a field update on an already published
// product, then refreshes each of its variants.
func (c *Capture) ProductUpdated(ctx context.Context, id int64) error {
	product, err := c.catalog.Product(ctx, id)
	if err != nil {
		return err
	}
	if product == nil || !product.Published() {
		return nil
	}

	if err := c.upsertProductJob(ctx, product); err != nil {
		return err
	}

	for _, variantID := range product.ChildIDs {
		if err := c.VariantUpdated(ctx, variantID); err != nil {
			c.logger.Error("variant refresh failed",
				slog.Int64("product_id", id),
				slog.Int64("variant_id", variantID),
				slog.Any("error", err),
			)
		}
	}

	return nil
}

// VariantUpdated handles a field update on a published variant.
func (c *Capture) VariantUpdated(ctx context.Context, id int64) error {
	variant, err := c.catalog.Product(ctx, id)
	if err != nil {
		return err
	}
	if variant == nil || !variant.Published() {
		return nil
	}

	return c.upsertProductJob(ctx, variant)
}

// upsertProductJob applies the merge-first policy for product updates:
// fold into an alive create if one exists (it has not executed yet, so
// a separate update would be redundant), else fold into an alive
// update, else enqueue a fresh update.
func (c *Capture) upsertProductJob(ctx context.Context, product *catalog.Product) error {
	id := product.ID

	if alive, err := c.store.FindAlive(ctx, queue.ModelProducts, queue.ActionCreate, id); err != nil {
		return err
	} else if alive != nil {
		item, err := c.builder.ProductItemFor(ctx, product, true)
		if err != nil {
			return err
		}
		return c.store.MergePayload(ctx, alive.ID, &queue.ProductCreatePayload{Item: item})
	}

	item, err := c.builder.ProductItemFor(ctx, product, false)
	if err != nil {
		return err
	}

	payload := &queue.ProductUpdatePayload{ProductID: id, VariantID: items.NoVariants, Item: item}
	if product.IsVariant() {
		payload.ProductID = product.ParentID
		payload.VariantID = items.Variant(id)
	}

	if alive, err := c.store.FindAlive(ctx, queue.ModelProducts, queue.ActionUpdate, id); err != nil {
		return err
	} else if alive != nil {
		return c.store.MergePayload(ctx, alive.ID, payload)
	}

	_, err = c.store.Enqueue(ctx, queue.ModelProducts, queue.ActionUpdate, &id, payload)
	return err
}

// VariantDeleted handles a variant being removed outright. Deleting a
// variant that was not published is a no-op; the status transition
// already removed it remotely.
func (c *Capture) VariantDeleted(ctx context.Context, id int64) error {
	variant, err := c.catalog.Product(ctx, id)
	if err != nil {
		return err
	}
	if variant == nil || !variant.IsVariant() || !variant.Published() {
		return nil
	}

	_, err = c.store.Enqueue(ctx, queue.ModelProducts, queue.ActionDelete, &id, &queue.ProductDeletePayload{
		ProductID: variant.ParentID,
		VariantID: items.Variant(id),
	})
	return err
}

// UserCreated enqueues a create for a freshly registered user.
func (c *Capture) UserCreated(ctx context.Context, id int64) error {
	item, err := c.builder.UserItem(ctx, id, true)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}

	_, err = c.store.Enqueue(ctx, queue.ModelUsers, queue.ActionCreate, &id, &queue.UserCreatePayload{Item: item})
	return err
}

// UserUpdated applies the merge-first policy for profile updates.
func (c *Capture) UserUpdated(ctx context.Context, id int64) error {
	if alive, err := c.store.FindAlive(ctx, queue.ModelUsers, queue.ActionCreate, id); err != nil {
		return err
	} else if alive != nil {
		item, err := c.builder.UserItem(ctx, id, true)
		if err != nil || item == nil {
			return err
		}
		return c.store.MergePayload(ctx, alive.ID, &queue.UserCreatePayload{Item: item})
	}

	item, err := c.builder.UserItem(ctx, id, false)
	if err != nil || item == nil {
		return err
	}
	payload := &queue.UserUpdatePayload{UserID: id, Item: item}

	if alive, err := c.store.FindAlive(ctx, queue.ModelUsers, queue.ActionUpdate, id); err != nil {
		return err
	} else if alive != nil {
		return c.store.MergePayload(ctx, alive.ID, payload)
	}

	_, err = c.store.Enqueue(ctx, queue.ModelUsers, queue.ActionUpdate, &id, payload)
	return err
}

// UserDeleted enqueues a delete for a removed user account.
func (c *Capture) UserDeleted(ctx context.Context, id int64) error {
	_, err := c.store.Enqueue(ctx, queue.ModelUsers, queue.ActionDelete, &id, &queue.UserDeletePayload{UserID: id})
	return err
}

// CategoryCreated enqueues a create for a new taxonomy term.
func (c *Capture) CategoryCreated(ctx context.Context, id int64) error {
	item, err := c.builder.CategoryItem(ctx, id, true)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}

	_, err = c.store.Enqueue(ctx, queue.ModelCategories, queue.ActionCreate, &id, &queue.CategoryCreatePayload{Item: item})
	return err
}

// CategoryUpdated applies the merge-first policy for category edits.
func (c *Capture) CategoryUpdated(ctx context.Context, id int64) error {
	if alive, err := c.store.FindAlive(ctx, queue.ModelCategories, queue.ActionCreate, id); err != nil {
		return err
	} else if alive != nil {
		item, err := c.builder.CategoryItem(ctx, id, true)
		if err != nil || item == nil {
			return err
		}
		return c.store.MergePayload(ctx, alive.ID, &queue.CategoryCreatePayload{Item: item})
	}

	item, err := c.builder.CategoryItem(ctx, id, false)
	if err != nil || item == nil {
		return err
	}
	payload := &queue.CategoryUpdatePayload{CategoryID: id, Item: item}

	if alive, err := c.store.FindAlive(ctx, queue.ModelCategories, queue.ActionUpdate, id); err != nil {
		return err
	} else if alive != nil {
		return c.store.MergePayload(ctx, alive.ID, payload)
	}

	_, err = c.store.Enqueue(ctx, queue.ModelCategories, queue.ActionUpdate, &id, payload)
	return err
}

// CategoryDeleted enqueues a delete for a removed taxonomy term.
func (c *Capture) CategoryDeleted(ctx context.Context, id int64) error {
	_, err := c.store.Enqueue(ctx, queue.ModelCategories, queue.ActionDelete, &id, &queue.CategoryDeletePayload{CategoryID: id})
	return err
}

// OrderPlaced enqueues the jobs for a placed order. Guest checkouts
// first enqueue a guest_users create so the remote side has the user
// before the order references it. An order with zero line items is
// skipped silently.
func (c *Capture) OrderPlaced(ctx context.Context, id int64) error {
	order, err := c.catalog.Order(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	item, err := c.builder.OrderItem(order)
	if err != nil {
		return err
	}
	if item == nil {
		c.logger.Debug("order has no line items, skipping", slog.Int64("order_id", id))
		return nil
	}

	if order.Guest() && order.BillingEmail != "" {
		guest := c.builder.GuestUserItem(order)
		if _, err := c.store.Enqueue(ctx, queue.ModelGuestUsers, queue.ActionCreate, &id, &queue.UserCreatePayload{Item: guest}); err != nil {
			return fmt.Errorf("enqueue guest user for order %d: %w", id, err)
		}
	}

	_, err = c.store.Enqueue(ctx, queue.ModelOrders, queue.ActionCreate, &id, &queue.OrderCreatePayload{Item: item})
	return err
}

// OrderCancelled enqueues a cancel, distinct from delete.
func (c *Capture) OrderCancelled(ctx context.Context, id int64) error {
	_, err := c.store.Enqueue(ctx, queue.ModelOrders, queue.ActionCancel, &id, &queue.OrderCancelPayload{OrderID: id})
	return err
}

// OrderDeleted enqueues a delete for a removed order.
func (c *Capture) OrderDeleted(ctx context.Context, id int64) error {
	_, err := c.store.Enqueue(ctx, queue.ModelOrders, queue.ActionDelete, &id, &queue.OrderDeletePayload{OrderID: id})
	return err
}
