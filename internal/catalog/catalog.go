// Package catalog is the read model over the storefront's own database.
// The sync engine never writes here; it only reads current entity state
// at enqueue time and entity id inventories during reconciliation.
package catalog

import (
	"context"
	"time"
)

// StatusPublished is the storefront's "active" product state. Products
// in any other state are invisible to the remote service.
const StatusPublished = "publish"

// Product is a catalog product or a single variant of one. A variant
// carries the id of its parent in ParentID; top-level products have
// ParentID zero.
type Product struct {
	ID           int64
	ParentID     int64
	Name         string
	Description  string
	Status       string
	RegularPrice string
	SalePrice    string
	Link         string
	ImageURL     string
	Stock        *int
	Brand        string
	CategoryIDs  []int64
	ChildIDs     []int64
}

// Published reports whether the product is in the active state.
func (p *Product) Published() bool {
	return p.Status == StatusPublished
}

// IsVariant reports whether the product is a variant of another product.
func (p *Product) IsVariant() bool {
	return p.ParentID != 0
}

// HasVariants reports whether the product owns variant children.
func (p *Product) HasVariants() bool {
	return len(p.ChildIDs) > 0
}

// User is a registered storefront customer.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	RegisteredAt time.Time
}

// OrderLine is one cart line of a placed order.
type OrderLine struct {
	ProductID int64
	VariantID int64
	Quantity  int
	LineTotal string
}

// Order is a placed storefront order. CustomerID is zero for guest
// checkouts.
type Order struct {
	ID               int64
	CustomerID       int64
	BillingEmail     string
	BillingFirstName string
	BillingLastName  string
	Status           string
	CreatedAt        time.Time
	Lines            []OrderLine
}

const (
	OrderStatusCancelled = "cancelled"
	OrderStatusCompleted = "completed"
)

// Guest reports whether the order was placed without a registered
// customer account.
func (o *Order) Guest() bool {
	return o.CustomerID == 0
}

// Category is a product taxonomy term.
type Category struct {
	ID       int64
	ParentID int64
	Name     string
	Link     string
}

// Store reads current storefront state. Lookups return (nil, nil) when
// the entity does not exist; a vanished entity is a skip signal for the
// callers, not an error.
type Store interface {
	Product(ctx context.Context, id int64) (*Product, error)
	User(ctx context.Context, id int64) (*User, error)
	Order(ctx context.Context, id int64) (*Order, error)
	Category(ctx context.Context, id int64) (*Category, error)

	// Inventories for reconciliation and bootstrap.
	PublishedProductIDs(ctx context.Context) ([]int64, error)
	PublishedVariantIDs(ctx context.Context) ([]int64, error)
	UserIDs(ctx context.Context) ([]int64, error)
	OrderIDs(ctx context.Context) ([]int64, error)
	CategoryIDs(ctx context.Context) ([]int64, error)
}
