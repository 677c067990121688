package capture

import (
	"context"
	"log/slog"
)

// OrderIntentKind names what happened to an order during a request.
type OrderIntentKind int

const (
	OrderPlaced OrderIntentKind = iota
	OrderCancelled
	OrderDeleted
)

// OrderIntent is one pending order action collected during a request.
type OrderIntent struct {
	Kind    OrderIntentKind
	OrderID int64
}

// Buffer collects order intents while a request or event delivery is
// being handled and applies them in one flush at the end. This keeps
// the two-phase "collect, then act" contract explicit instead of
// smuggling state through fields across callbacks.
type Buffer struct {
	intents []OrderIntent
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Placed(orderID int64) {
	b.intents = append(b.intents, OrderIntent{Kind: OrderPlaced, OrderID: orderID})
}

func (b *Buffer) Cancelled(orderID int64) {
	b.intents = append(b.intents, OrderIntent{Kind: OrderCancelled, OrderID: orderID})
}

func (b *Buffer) Deleted(orderID int64) {
	b.intents = append(b.intents, OrderIntent{Kind: OrderDeleted, OrderID: orderID})
}

// Len returns how many intents are waiting.
func (b *Buffer) Len() int {
	return len(b.intents)
}

// FlushOrders applies every collected intent in order and empties the
// buffer. A failing intent is logged and skipped; it never blocks the
// rest of the flush.
func (c *Capture) FlushOrders(ctx context.Context, b *Buffer) {
	for _, intent := range b.intents {
		var err error
		switch intent.Kind {
		case OrderPlaced:
			err = c.OrderPlaced(ctx, intent.OrderID)
		case OrderCancelled:
			err = c.OrderCancelled(ctx, intent.OrderID)
		case OrderDeleted:
			err = c.OrderDeleted(ctx, intent.OrderID)
		}
		if err != nil {
			c.logger.Error("order intent failed",
				slog.Int64("order_id", intent.OrderID),
				slog.Int("kind", int(intent.Kind)),
				slog.Any("error", err),
			)
		}
	}
	b.intents = b.intents[:0]
}
