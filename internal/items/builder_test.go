package items

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/recsync/internal/catalog"
)

func testBuilder() (*Builder, *catalog.MemoryStore) {
	store := catalog.NewMemoryStore()
	builder := NewBuilder(store, BuilderConfig{
		Currency:            "EUR",
		PlaceholderImageURL: "https://cdn.example.com/placeholder.png",
	})
	return builder, store
}

func TestProductItemSimpleProduct(t *testing.T) {
	ctx := context.Background()
	builder, store := testBuilder()

	stock := 12
	store.PutCategory(&catalog.Category{ID: 1, Name: "Lighting"})
	store.PutCategory(&catalog.Category{ID: 2, Name: "Home"})
	store.PutProduct(&catalog.Product{
		ID:           100,
		Name:         "Desk Lamp",
		Description:  "A lamp",
		Status:       catalog.StatusPublished,
		RegularPrice: "19.99",
		SalePrice:    "9.99",
		Link:         "https://shop.example.com/lamp",
		ImageURL:     "https://cdn.example.com/lamp.png",
		Stock:        &stock,
		Brand:        "Lumen",
		CategoryIDs:  []int64{1, 2},
	})

	item, err := builder.ProductItem(ctx, 100, true)
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, "Desk Lamp", item.Name)
	assert.Equal(t, 9.99, item.Price)
	assert.Equal(t, 19.99, item.FullPrice)
	assert.True(t, item.Available)
	assert.Equal(t, "Lumen", item.Brand)
	assert.Equal(t, []string{"Lighting", "Home"}, item.Categories)
	assert.Equal(t, "Lighting", item.MainCategory)
	assert.Equal(t, int64(100), item.ProductID)
	require.NotNil(t, item.VariantID)
	assert.False(t, item.VariantID.IsVariant())
}

func TestProductItemVariantInheritsParentFields(t *testing.T) {
	ctx := context.Background()
	builder, store := testBuilder()

	store.PutCategory(&catalog.Category{ID: 1, Name: "Chairs"})
	store.PutProduct(&catalog.Product{
		ID:           200,
		Name:         "Office Chair",
		Description:  "Adjustable",
		Status:       catalog.StatusPublished,
		RegularPrice: "150.00",
		ImageURL:     "https://cdn.example.com/chair.png",
		Brand:        "Sitwell",
		CategoryIDs:  []int64{1},
		ChildIDs:     []int64{201},
	})
	store.PutProduct(&catalog.Product{
		ID:           201,
		ParentID:     200,
		Name:         "Office Chair - Red",
		Status:       catalog.StatusPublished,
		RegularPrice: "160.00",
		Link:         "https://shop.example.com/chair?variant=201",
	})

	item, err := builder.ProductItem(ctx, 201, true)
	require.NoError(t, err)
	require.NotNil(t, item)

	// Descriptive fields come from the parent, commercial ones from the
	// variant.
	assert.Equal(t, "Office Chair", item.Name)
	assert.Equal(t, "Adjustable", item.Description)
	assert.Equal(t, "Sitwell", item.Brand)
	assert.Equal(t, "https://cdn.example.com/chair.png", item.PhotoURL)
	assert.Equal(t, []string{"Chairs"}, item.Categories)
	assert.Equal(t, 160.0, item.Price)
	assert.Equal(t, "https://shop.example.com/chair?variant=201", item.Link)

	assert.Equal(t, int64(200), item.ProductID)
	require.NotNil(t, item.VariantID)
	assert.Equal(t, int64(201), item.VariantID.ID())
}

func TestProductItemVariantMissingParent(t *testing.T) {
	ctx := context.Background()
	builder, store := testBuilder()

	store.PutProduct(&catalog.Product{
		ID:       201,
		ParentID: 999,
		Status:   catalog.StatusPublished,
	})

	_, err := builder.ProductItem(ctx, 201, true)
	assert.Error(t, err)
}

func TestProductItemMissingProduct(t *testing.T) {
	ctx := context.Background()
	builder, _ := testBuilder()

	item, err := builder.ProductItem(ctx, 404, true)
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestProductItemPlaceholderImage(t *testing.T) {
	ctx := context.Background()
	builder, store := testBuilder()

	store.PutProduct(&catalog.Product{
		ID:     300,
		Status: catalog.StatusPublished,
	})

	item, err := builder.ProductItem(ctx, 300, false)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "https://cdn.example.com/placeholder.png", item.PhotoURL)
	assert.Zero(t, item.ProductID)
	assert.Nil(t, item.VariantID)
}

func TestOrderItem(t *testing.T) {
	builder, _ := testBuilder()

	placed := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	order := &catalog.Order{
		ID:         500,
		CustomerID: 77,
		Status:     "processing",
		CreatedAt:  placed,
		Lines: []catalog.OrderLine{
			{ProductID: 100, Quantity: 2, LineTotal: "40.00"},
			{ProductID: 200, VariantID: 201, Quantity: 1, LineTotal: "160.00"},
		},
	}

	item, err := builder.OrderItem(order)
	require.NoError(t, err)
	require.NotNil(t, item)

	assert.Equal(t, int64(500), item.OrderID)
	assert.Equal(t, "77", item.UserID)
	assert.Equal(t, catalog.OrderStatusCompleted, item.OrderStatus)
	assert.Equal(t, "2025-03-01T10:30:00Z", item.Timestamp)

	require.Len(t, item.Cart, 2)
	assert.Equal(t, 20.0, item.Cart[0].UnitPrice)
	assert.Equal(t, "EUR", item.Cart[0].Currency)
	assert.False(t, item.Cart[0].VariantID.IsVariant())
	assert.Equal(t, int64(201), item.Cart[1].VariantID.ID())
}

func TestOrderItemZeroLines(t *testing.T) {
	builder, _ := testBuilder()

	item, err := builder.OrderItem(&catalog.Order{ID: 501})
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestOrderItemUserFallbacks(t *testing.T) {
	builder, _ := testBuilder()

	lines := []catalog.OrderLine{{ProductID: 1, Quantity: 1, LineTotal: "5.00"}}

	item, err := builder.OrderItem(&catalog.Order{ID: 1, BillingEmail: "g@example.com", Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, "g@example.com", item.UserID)

	item, err = builder.OrderItem(&catalog.Order{ID: 2, Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, NoUser, item.UserID)

	item, err = builder.OrderItem(&catalog.Order{ID: 3, Status: catalog.OrderStatusCancelled, Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, catalog.OrderStatusCancelled, item.OrderStatus)
}

func TestUserItem(t *testing.T) {
	ctx := context.Background()
	builder, store := testBuilder()

	registered := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	store.PutUser(&catalog.User{
		ID:           77,
		Email:        "jo@example.com",
		FirstName:    "Jo",
		LastName:     "Park",
		RegisteredAt: registered,
	})

	item, err := builder.UserItem(ctx, 77, true)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "77", item.UserID)
	assert.Equal(t, "jo@example.com", item.Email)
	assert.Equal(t, "2024-06-15T08:00:00Z", item.Timestamp)
	assert.False(t, item.Guest)

	item, err = builder.UserItem(ctx, 77, false)
	require.NoError(t, err)
	assert.Empty(t, item.UserID)

	item, err = builder.UserItem(ctx, 404, true)
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestGuestUserItem(t *testing.T) {
	builder, _ := testBuilder()

	placed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	item := builder.GuestUserItem(&catalog.Order{
		ID:               9,
		BillingEmail:     "guest@example.com",
		BillingFirstName: "Gia",
		BillingLastName:  "Tran",
		CreatedAt:        placed,
	})

	assert.Equal(t, "guest@example.com", item.UserID)
	assert.Equal(t, "guest@example.com", item.Email)
	assert.Equal(t, "Gia", item.FirstName)
	assert.True(t, item.Guest)
	assert.Equal(t, "2025-01-02T03:04:05Z", item.Timestamp)
}

func TestCategoryPath(t *testing.T) {
	ctx := context.Background()
	builder, store := testBuilder()

	store.PutCategory(&catalog.Category{ID: 1, Name: "Home"})
	store.PutCategory(&catalog.Category{ID: 2, ParentID: 1, Name: "Furniture"})
	store.PutCategory(&catalog.Category{ID: 3, ParentID: 2, Name: "Chairs"})

	path, err := builder.CategoryPath(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Home", "Furniture", "Chairs"}, path)

	// Cycles terminate instead of looping.
	store.PutCategory(&catalog.Category{ID: 10, ParentID: 11, Name: "A"})
	store.PutCategory(&catalog.Category{ID: 11, ParentID: 10, Name: "B"})

	path, err = builder.CategoryPath(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, path)
}
