package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore reads the storefront schema directly. Column names
// follow the shop database, not the remote API.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type productRow struct {
	ID           int64          `db:"id"`
	ParentID     sql.NullInt64  `db:"parent_id"`
	Name         string         `db:"name"`
	Description  sql.NullString `db:"description"`
	Status       string         `db:"status"`
	RegularPrice sql.NullString `db:"regular_price"`
	SalePrice    sql.NullString `db:"sale_price"`
	Link         sql.NullString `db:"permalink"`
	ImageURL     sql.NullString `db:"image_url"`
	Stock        sql.NullInt64  `db:"stock"`
	Brand        sql.NullString `db:"brand"`
}

func (s *PostgresStore) Product(ctx context.Context, id int64) (*Product, error) {
	query := `
		SELECT id, parent_id, name, description, status, regular_price,
		       sale_price, permalink, image_url, stock, brand
		FROM products
		WHERE id = $1
	`

	var row productRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}

	product := &Product{
		ID:           row.ID,
		ParentID:     row.ParentID.Int64,
		Name:         row.Name,
		Description:  row.Description.String,
		Status:       row.Status,
		RegularPrice: row.RegularPrice.String,
		SalePrice:    row.SalePrice.String,
		Link:         row.Link.String,
		ImageURL:     row.ImageURL.String,
		Brand:        row.Brand.String,
	}
	if row.Stock.Valid {
		stock := int(row.Stock.Int64)
		product.Stock = &stock
	}

	if err := s.db.SelectContext(ctx, &product.CategoryIDs, `
		SELECT category_id FROM product_categories
		WHERE product_id = $1
		ORDER BY position ASC
	`, id); err != nil {
		return nil, fmt.Errorf("load product %d categories: %w", id, err)
	}

	if err := s.db.SelectContext(ctx, &product.ChildIDs, `
		SELECT id FROM products
		WHERE parent_id = $1
		ORDER BY id ASC
	`, id); err != nil {
		return nil, fmt.Errorf("load product %d variants: %w", id, err)
	}

	return product, nil
}

func (s *PostgresStore) User(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, email, COALESCE(first_name, '') AS first_name,
		       COALESCE(last_name, '') AS last_name, registered_at
		FROM users
		WHERE id = $1
	`

	var user struct {
		ID           int64     `db:"id"`
		Email        string    `db:"email"`
		FirstName    string    `db:"first_name"`
		LastName     string    `db:"last_name"`
		RegisteredAt sql.NullTime `db:"registered_at"`
	}
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}

	return &User{
		ID:           user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		RegisteredAt: user.RegisteredAt.Time,
	}, nil
}

func (s *PostgresStore) Order(ctx context.Context, id int64) (*Order, error) {
	query := `
		SELECT id, COALESCE(customer_id, 0) AS customer_id,
		       COALESCE(billing_email, '') AS billing_email,
		       COALESCE(billing_first_name, '') AS billing_first_name,
		       COALESCE(billing_last_name, '') AS billing_last_name,
		       status, created_at
		FROM orders
		WHERE id = $1
	`

	var row struct {
		ID               int64        `db:"id"`
		CustomerID       int64        `db:"customer_id"`
		BillingEmail     string       `db:"billing_email"`
		BillingFirstName string       `db:"billing_first_name"`
		BillingLastName  string       `db:"billing_last_name"`
		Status           string       `db:"status"`
		CreatedAt        sql.NullTime `db:"created_at"`
	}
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}

	order := &Order{
		ID:               row.ID,
		CustomerID:       row.CustomerID,
		BillingEmail:     row.BillingEmail,
		BillingFirstName: row.BillingFirstName,
		BillingLastName:  row.BillingLastName,
		Status:           row.Status,
		CreatedAt:        row.CreatedAt.Time,
	}

	type lineRow struct {
		ProductID int64          `db:"product_id"`
		VariantID sql.NullInt64  `db:"variant_id"`
		Quantity  int            `db:"quantity"`
		LineTotal sql.NullString `db:"line_total"`
	}
	var lines []lineRow
	if err := s.db.SelectContext(ctx, &lines, `
		SELECT product_id, variant_id, quantity, line_total
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id ASC
	`, id); err != nil {
		return nil, fmt.Errorf("load order %d lines: %w", id, err)
	}

	for _, l := range lines {
		order.Lines = append(order.Lines, OrderLine{
			ProductID: l.ProductID,
			VariantID: l.VariantID.Int64,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal.String,
		})
	}

	return order, nil
}

func (s *PostgresStore) Category(ctx context.Context, id int64) (*Category, error) {
	query := `
		SELECT id, COALESCE(parent_id, 0) AS parent_id, name,
		       COALESCE(permalink, '') AS permalink
		FROM categories
		WHERE id = $1
	`

	var row struct {
		ID       int64  `db:"id"`
		ParentID int64  `db:"parent_id"`
		Name     string `db:"name"`
		Link     string `db:"permalink"`
	}
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load category %d: %w", id, err)
	}

	return &Category{ID: row.ID, ParentID: row.ParentID, Name: row.Name, Link: row.Link}, nil
}

func (s *PostgresStore) PublishedProductIDs(ctx context.Context) ([]int64, error) {
	return s.ids(ctx, `SELECT id FROM products WHERE parent_id IS NULL AND status = $1 ORDER BY id`, StatusPublished)
}

func (s *PostgresStore) PublishedVariantIDs(ctx context.Context) ([]int64, error) {
	return s.ids(ctx, `SELECT id FROM products WHERE parent_id IS NOT NULL AND status = $1 ORDER BY id`, StatusPublished)
}

func (s *PostgresStore) UserIDs(ctx context.Context) ([]int64, error) {
	return s.ids(ctx, `SELECT id FROM users ORDER BY id`)
}

func (s *PostgresStore) OrderIDs(ctx context.Context) ([]int64, error) {
	return s.ids(ctx, `SELECT id FROM orders ORDER BY id`)
}

func (s *PostgresStore) CategoryIDs(ctx context.Context) ([]int64, error) {
	return s.ids(ctx, `SELECT id FROM categories ORDER BY id`)
}

func (s *PostgresStore) ids(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list entity ids: %w", err)
	}
	return ids, nil
}
