package items

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/storewise/recsync/internal/catalog"
)

// BuilderConfig carries the storefront-wide values items need.
type BuilderConfig struct {
	// Currency is the storefront currency code stamped on cart lines.
	Currency string
	// PlaceholderImageURL is used when a product has no photo.
	PlaceholderImageURL string
}

// Builder turns local entities into remote items. Builders only read
// the catalog; they never touch the queue or the remote service.
type Builder struct {
	store catalog.Store
	cfg   BuilderConfig
}

func NewBuilder(store catalog.Store, cfg BuilderConfig) *Builder {
	return &Builder{store: store, cfg: cfg}
}

// ProductItem builds the item for a product or variant id. Returns
// (nil, nil) when the product no longer exists.
func (b *Builder) ProductItem(ctx context.Context, id int64, includeIdentity bool) (*ProductItem, error) {
	product, err := b.store.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return b.ProductItemFor(ctx, product, includeIdentity)
}

// ProductItemFor builds the item for an already loaded product. For a
// variant, name, description, brand, photo and categories come from the
// parent product while price, stock and availability come from the
// variant itself.
func (b *Builder) ProductItemFor(ctx context.Context, product *catalog.Product, includeIdentity bool) (*ProductItem, error) {
	source := product
	if product.IsVariant() {
		parent, err := b.store.Product(ctx, product.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("variant %d: parent product %d not found", product.ID, product.ParentID)
		}
		source = parent
	}

	price, fullPrice := ResolvePrice(product.SalePrice, product.RegularPrice)

	item := &ProductItem{
		Name:        source.Name,
		Price:       price,
		FullPrice:   fullPrice,
		Link:        product.Link,
		Available:   product.Published(),
		Description: source.Description,
		Brand:       source.Brand,
		Stock:       product.Stock,
		Categories:  []string{},
	}

	item.PhotoURL = source.ImageURL
	if item.PhotoURL == "" {
		item.PhotoURL = b.cfg.PlaceholderImageURL
	}

	for i, categoryID := range source.CategoryIDs {
		category, err := b.store.Category(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			continue
		}
		item.Categories = append(item.Categories, category.Name)
		if i == 0 {
			item.MainCategory = category.Name
		}
	}

	if includeIdentity {
		if product.IsVariant() {
			item.ProductID = product.ParentID
			ref := Variant(product.ID)
			item.VariantID = &ref
		} else {
			item.ProductID = product.ID
			ref := NoVariants
			item.VariantID = &ref
		}
	}

	return item, nil
}

// OrderItem builds the item for an order. Returns (nil, nil) for an
// order with zero line items; that is a skip signal, not an error.
func (b *Builder) OrderItem(order *catalog.Order) (*OrderItem, error) {
	if order == nil || len(order.Lines) == 0 {
		return nil, nil
	}

	item := &OrderItem{
		OrderID:     order.ID,
		UserID:      resolveOrderUser(order),
		OrderStatus: orderStatus(order),
		Timestamp:   order.CreatedAt.UTC().Format(time.RFC3339),
	}

	for _, line := range order.Lines {
		ref := NoVariants
		if line.VariantID != 0 {
			ref = Variant(line.VariantID)
		}
		item.Cart = append(item.Cart, CartLine{
			ProductID: line.ProductID,
			VariantID: ref,
			Quantity:  line.Quantity,
			UnitPrice: UnitPrice(line.LineTotal, line.Quantity),
			Currency:  b.cfg.Currency,
		})
	}

	return item, nil
}

// UserItem builds the item for a registered user id. Returns (nil, nil)
// when the user row no longer exists.
func (b *Builder) UserItem(ctx context.Context, id int64, includeIdentity bool) (*UserItem, error) {
	user, err := b.store.User(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	item := &UserItem{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Timestamp: user.RegisteredAt.UTC().Format(time.RFC3339),
	}
	if includeIdentity {
		item.UserID = strconv.FormatInt(user.ID, 10)
	}

	return item, nil
}

// GuestUserItem derives a user item from an order's billing details so
// the remote side has a user record before the order references it.
func (b *Builder) GuestUserItem(order *catalog.Order) *UserItem {
	return &UserItem{
		UserID:    order.BillingEmail,
		Email:     order.BillingEmail,
		FirstName: order.BillingFirstName,
		LastName:  order.BillingLastName,
		Timestamp: order.CreatedAt.UTC().Format(time.RFC3339),
		Guest:     true,
	}
}

// CategoryItem builds the item for a category id. Returns (nil, nil)
// when the category no longer exists.
func (b *Builder) CategoryItem(ctx context.Context, id int64, includeIdentity bool) (*CategoryItem, error) {
	category, err := b.store.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, nil
	}

	item := &CategoryItem{
		Name: category.Name,
		Link: category.Link,
	}
	if includeIdentity {
		item.CategoryID = category.ID
	}

	return item, nil
}

// CategoryPath walks the ancestry of a category and returns the names
// from the root down to the category itself.
func (b *Builder) CategoryPath(ctx context.Context, id int64) ([]string, error) {
	var path []string
	seen := make(map[int64]bool)

	for id != 0 && !seen[id] {
		seen[id] = true
		category, err := b.store.Category(ctx, id)
		if err != nil {
			return nil, err
		}
		if category == nil {
			break
		}
		path = append([]string{category.Name}, path...)
		id = category.ParentID
	}

	return path, nil
}

// resolveOrderUser picks the identity the remote system should attach
// the order to: registered customer id, else billing email, else the
// no-user sentinel.
func resolveOrderUser(order *catalog.Order) string {
	if order.CustomerID > 0 {
		return strconv.FormatInt(order.CustomerID, 10)
	}
	if order.BillingEmail != "" {
		return order.BillingEmail
	}
	return NoUser
}

func orderStatus(order *catalog.Order) string {
	if order.Status == catalog.OrderStatusCancelled {
		return catalog.OrderStatusCancelled
	}
	return catalog.OrderStatusCompleted
}
