package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/storewise/recsync/shared/rabbitmq"
)

// ChangeEvent is the host platform's change notification: an entity
// kind, what happened to it, and enough context to decide the job.
type ChangeEvent struct {
	Entity    string `json:"entity"`
	Event     string `json:"event"`
	ID        int64  `json:"id"`
	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status,omitempty"`
}

const (
	EntityProduct  = "product"
	EntityVariant  = "variant"
	EntityUser     = "user"
	EntityOrder    = "order"
	EntityCategory = "category"
)

const (
	EventCreated       = "created"
	EventUpdated       = "updated"
	EventDeleted       = "deleted"
	EventStatusChanged = "status_changed"
	EventPlaced        = "placed"
	EventCancelled     = "cancelled"
)

// Consumer drains host change events from RabbitMQ and feeds them into
// Capture. Order intents are buffered per delivery and flushed once the
// delivery is fully handled.
type Consumer struct {
	capture *Capture
	rabbit  *rabbitmq.Client
	logger  *slog.Logger
	tag     string
}

func NewConsumer(capture *Capture, rabbit *rabbitmq.Client, logger *slog.Logger) *Consumer {
	return &Consumer{
		capture: capture,
		rabbit:  rabbit,
		logger:  logger,
		tag:     "recsync-" + uuid.New().String(),
	}
}

// Start consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.rabbit.Consume(c.tag)
	if err != nil {
		return fmt.Errorf("start change event consumer: %w", err)
	}

	c.logger.Info("change event consumer started", slog.String("consumer_tag", c.tag))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("change event consumer stopped")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("change event delivery channel closed")
			}
			c.handle(ctx, delivery)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	var event ChangeEvent
	if err := json.Unmarshal(delivery.Body, &event); err != nil {
		c.logger.Error("malformed change event",
			slog.Any("error", err),
			slog.String("body", string(delivery.Body)),
		)
		// Malformed events can never succeed; drop them.
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("failed to nack malformed event", slog.Any("error", nackErr))
		}
		return
	}

	if err := c.dispatch(ctx, event); err != nil {
		// Per-entity capture errors are logged, the event is acked
		// anyway; the next reconciliation pass heals any resulting
		// drift. One bad entity must not wedge the stream.
		c.logger.Error("change event capture failed",
			slog.String("entity", event.Entity),
			slog.String("event", event.Event),
			slog.Int64("id", event.ID),
			slog.Any("error", err),
		)
	}

	if err := delivery.Ack(false); err != nil {
		c.logger.Error("failed to ack change event", slog.Any("error", err))
	}
}

func (c *Consumer) dispatch(ctx context.Context, event ChangeEvent) error {
	switch event.Entity {
	case EntityProduct:
		switch event.Event {
		case EventStatusChanged:
			return c.capture.ProductStatusChanged(ctx, event.ID, event.OldStatus, event.NewStatus)
		case EventUpdated:
			return c.capture.ProductUpdated(ctx, event.ID)
		}

	case EntityVariant:
		switch event.Event {
		case EventStatusChanged:
			return c.capture.ProductStatusChanged(ctx, event.ID, event.OldStatus, event.NewStatus)
		case EventUpdated:
			return c.capture.VariantUpdated(ctx, event.ID)
		case EventDeleted:
			return c.capture.VariantDeleted(ctx, event.ID)
		}

	case EntityUser:
		switch event.Event {
		case EventCreated:
			return c.capture.UserCreated(ctx, event.ID)
		case EventUpdated:
			return c.capture.UserUpdated(ctx, event.ID)
		case EventDeleted:
			return c.capture.UserDeleted(ctx, event.ID)
		}

	case EntityCategory:
		switch event.Event {
		case EventCreated:
			return c.capture.CategoryCreated(ctx, event.ID)
		case EventUpdated:
			return c.capture.CategoryUpdated(ctx, event.ID)
		case EventDeleted:
			return c.capture.CategoryDeleted(ctx, event.ID)
		}

	case EntityOrder:
		buffer := NewBuffer()
		switch event.Event {
		case EventPlaced:
			buffer.Placed(event.ID)
		case EventCancelled:
			buffer.Cancelled(event.ID)
		case EventDeleted:
			buffer.Deleted(event.ID)
		default:
			return fmt.Errorf("unknown order event %q", event.Event)
		}
		c.capture.FlushOrders(ctx, buffer)
		return nil
	}

	return fmt.Errorf("unknown change event %s/%s", event.Entity, event.Event)
}
