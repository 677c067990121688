// Package items builds the normalized payload shapes the remote
// recommendation service accepts. Items are built from current local
// state at the moment a job is enqueued, never at execute time.
package items

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// NoUser is the user identity sent for orders that cannot be tied to a
// registered customer or a billing email.
const NoUser = "no-user"

// VariantRef identifies a variant on the wire: a numeric id, or the
// literal "no-variants" sentinel for products without variants.
type VariantRef struct {
	id int64
}

// NoVariants is the sentinel ref for a product with no variants.
var NoVariants = VariantRef{}

// Variant returns a ref for a concrete variant id.
func Variant(id int64) VariantRef {
	return VariantRef{id: id}
}

// ID returns the variant id, zero for the no-variants sentinel.
func (v VariantRef) ID() int64 {
	return v.id
}

// IsVariant reports whether the ref names a concrete variant.
func (v VariantRef) IsVariant() bool {
	return v.id != 0
}

func (v VariantRef) String() string {
	if v.id == 0 {
		return "no-variants"
	}
	return strconv.FormatInt(v.id, 10)
}

func (v VariantRef) MarshalJSON() ([]byte, error) {
	if v.id == 0 {
		return json.Marshal("no-variants")
	}
	return json.Marshal(v.id)
}

func (v *VariantRef) UnmarshalJSON(data []byte) error {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		v.id = id
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("variant ref: %w", err)
	}
	if s == "no-variants" || s == "" {
		v.id = 0
		return nil
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("variant ref %q: %w", s, err)
	}
	v.id = id
	return nil
}

// ProductItem is the remote payload for a product or a variant.
type ProductItem struct {
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	FullPrice    float64  `json:"full_price"`
	Link         string   `json:"link"`
	Available    bool     `json:"available"`
	Description  string   `json:"description"`
	Brand        string   `json:"brand,omitempty"`
	PhotoURL     string   `json:"photo_url"`
	Stock        *int     `json:"stock,omitempty"`
	Categories   []string `json:"categories"`
	MainCategory string   `json:"main_category"`

	// Identity fields, populated only when the caller asks for them.
	ProductID int64       `json:"product_id,omitempty"`
	VariantID *VariantRef `json:"variant_id,omitempty"`
}

// CartLine is one line of an order's cart on the wire.
type CartLine struct {
	ProductID int64      `json:"product_id"`
	VariantID VariantRef `json:"variant_id"`
	Quantity  int        `json:"quantity"`
	UnitPrice float64    `json:"unit_price"`
	Currency  string     `json:"currency"`
}

// OrderItem is the remote payload for a placed order.
type OrderItem struct {
	OrderID     int64      `json:"order_id"`
	UserID      string     `json:"user_id"`
	OrderStatus string     `json:"order_status"`
	Cart        []CartLine `json:"cart"`
	Timestamp   string     `json:"timestamp"`
}

// UserItem is the remote payload for a registered or guest user.
type UserItem struct {
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Timestamp string `json:"timestamp"`
	Guest     bool   `json:"guest,omitempty"`
}

// CategoryItem is the remote payload for a product category.
type CategoryItem struct {
	Name       string `json:"name"`
	Link       string `json:"link"`
	CategoryID int64  `json:"category_id,omitempty"`
}

// ResolvePrice coerces the storefront's textual prices into numbers.
// The sale price wins when present and non-zero, the regular price is
// always the full price.
func ResolvePrice(salePrice, regularPrice string) (price, fullPrice float64) {
	full := parsePrice(regularPrice)
	sale := parsePrice(salePrice)

	if sale.IsPositive() {
		return sale.InexactFloat64(), full.InexactFloat64()
	}
	return full.InexactFloat64(), full.InexactFloat64()
}

// UnitPrice computes a cart line's per-unit price from its line total.
func UnitPrice(lineTotal string, quantity int) float64 {
	if quantity <= 0 {
		return 0
	}
	total := parsePrice(lineTotal)
	return total.Div(decimal.NewFromInt(int64(quantity))).InexactFloat64()
}

func parsePrice(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
