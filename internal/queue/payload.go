package queue

import (
	"encoding/json"
	"fmt"

	"github.com/storewise/recsync/internal/items"
)

// Per-(model, action) payload shapes. Payloads are built when a job is
// enqueued and are authoritative at execute time; the worker never
// re-reads local entity state for single-entity jobs.

// ProductCreatePayload carries a fully built product or variant item.
type ProductCreatePayload struct {
	Item *items.ProductItem `json:"item"`
}

// ProductUpdatePayload addresses an existing remote product record.
type ProductUpdatePayload struct {
	ProductID int64              `json:"productId"`
	VariantID items.VariantRef   `json:"variantId"`
	Item      *items.ProductItem `json:"item"`
}

// ProductDeletePayload removes a product or a single variant.
type ProductDeletePayload struct {
	ProductID int64            `json:"productId"`
	VariantID items.VariantRef `json:"variantId"`
}

type UserCreatePayload struct {
	Item *items.UserItem `json:"item"`
}

type UserUpdatePayload struct {
	UserID int64           `json:"userId"`
	Item   *items.UserItem `json:"item"`
}

type UserDeletePayload struct {
	UserID int64 `json:"userId"`
}

type OrderCreatePayload struct {
	Item *items.OrderItem `json:"item"`
}

type OrderCancelPayload struct {
	OrderID int64 `json:"orderId"`
}

type OrderDeletePayload struct {
	OrderID int64 `json:"orderId"`
}

type CategoryCreatePayload struct {
	Item *items.CategoryItem `json:"item"`
}

type CategoryUpdatePayload struct {
	CategoryID int64               `json:"categoryId"`
	Item       *items.CategoryItem `json:"item"`
}

type CategoryDeletePayload struct {
	CategoryID int64 `json:"categoryId"`
}

// InitPayload is a bulk bootstrap chunk: the ids to push in one batch.
type InitPayload struct {
	IDs []int64 `json:"ids"`
}

// DeleteAllPayload instructs the remote side to drop every record of a kind.
type DeleteAllPayload struct{}

// MarshalPayload encodes a typed payload for storage.
func MarshalPayload(p any) (json.RawMessage, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return raw, nil
}

// DecodePayload deserializes a job's payload into the typed struct for
// its (model, action) pair.
func DecodePayload(job *Job) (any, error) {
	target, err := payloadFor(job.Model, job.Action)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(job.Payload, target); err != nil {
		return nil, fmt.Errorf("decode %s %s payload: %w", job.Model, job.Action, err)
	}
	return target, nil
}

func payloadFor(model Model, action Action) (any, error) {
	switch action {
	case ActionInit:
		return &InitPayload{}, nil
	case ActionDeleteAll:
		return &DeleteAllPayload{}, nil
	}

	switch model {
	case ModelProducts, ModelVariants:
		switch action {
		case ActionCreate:
			return &ProductCreatePayload{}, nil
		case ActionUpdate:
			return &ProductUpdatePayload{}, nil
		case ActionDelete:
			return &ProductDeletePayload{}, nil
		}
	case ModelUsers, ModelGuestUsers:
		switch action {
		case ActionCreate:
			return &UserCreatePayload{}, nil
		case ActionUpdate:
			return &UserUpdatePayload{}, nil
		case ActionDelete:
			return &UserDeletePayload{}, nil
		}
	case ModelOrders:
		switch action {
		case ActionCreate:
			return &OrderCreatePayload{}, nil
		case ActionCancel:
			return &OrderCancelPayload{}, nil
		case ActionDelete:
			return &OrderDeletePayload{}, nil
		}
	case ModelCategories:
		switch action {
		case ActionCreate:
			return &CategoryCreatePayload{}, nil
		case ActionUpdate:
			return &CategoryUpdatePayload{}, nil
		case ActionDelete:
			return &CategoryDeletePayload{}, nil
		}
	}

	return nil, fmt.Errorf("no payload shape for model=%s action=%s", model, action)
}
