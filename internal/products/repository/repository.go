// Package repository provides persistence for product listings.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace_backend/platform/apperr"
)

// Product is a marketplace listing.
type Product struct {
	ID          uuid.UUID
	SellerID    uuid.UUID
	Title       string
	Description *string
	PriceCents  int64
	Currency    string
	FeedType    string
	IsAvailable bool
	SoldAt      *time.Time
	PhotoKeys   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateParams carries a new listing.
type CreateParams struct {
	SellerID    uuid.UUID
	Title       string
	Description *string
	PriceCents  int64
	Currency    string
	FeedType    string
}

// UpdateParams carries a partial listing update. Nil fields are untouched.
type UpdateParams struct {
	Title       *string
	Description *string
	PriceCents  *int64
	IsAvailable *bool
}

// ListParams filters and paginates the public listing feed.
type ListParams struct {
	FeedType      *string
	SellerID      *uuid.UUID
	OnlyAvailable bool
	Limit         int
	Offset        int
}

// Repository is the access point to product rows.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Product, error)
	GetByID(ctx context.Context, productID uuid.UUID) (Product, error)
	Update(ctx context.Context, productID uuid.UUID, params UpdateParams) (Product, error)
	List(ctx context.Context, params ListParams) ([]Product, int, error)
	AddPhotoKey(ctx context.Context, productID uuid.UUID, fileKey string) error
}

const productColumns = `id, seller_id, title, description, price_cents, currency,
	feed_type, is_available, sold_at, photo_keys, created_at, updated_at`

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new products repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

func (r *Repo) Create(ctx context.Context, params CreateParams) (Product, error) {
	query := `
		INSERT INTO products (seller_id, title, description, price_cents, currency, feed_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + productColumns

	product, err := scanProduct(r.pool.QueryRow(ctx, query,
		params.SellerID, params.Title, params.Description,
		params.PriceCents, params.Currency, params.FeedType,
	))
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}

	return product, nil
}

func (r *Repo) GetByID(ctx context.Context, productID uuid.UUID) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.pool.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound("product not found")
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func (r *Repo) Update(ctx context.Context, productID uuid.UUID, params UpdateParams) (Product, error) {
	query := `
		UPDATE products SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			price_cents = COALESCE($4, price_cents),
			is_available = COALESCE($5, is_available),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns

	product, err := scanProduct(r.pool.QueryRow(ctx, query,
		productID, params.Title, params.Description, params.PriceCents, params.IsAvailable,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, apperr.NotFound("product not found")
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func (r *Repo) List(ctx context.Context, params ListParams) ([]Product, int, error) {
	where := `($1::text IS NULL OR feed_type = $1)
			AND ($2::uuid IS NULL OR seller_id = $2)
			AND (NOT $3::bool OR is_available)`

	var total int
	countQuery := `SELECT COUNT(*) FROM products WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, params.FeedType, params.SellerID, params.OnlyAvailable).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ` + where + `
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	rows, err := r.pool.Query(ctx, query, params.FeedType, params.SellerID, params.OnlyAvailable, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var results []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		results = append(results, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return results, total, nil
}

func (r *Repo) AddPhotoKey(ctx context.Context, productID uuid.UUID, fileKey string) error {
	query := `
		UPDATE products SET
			photo_keys = array_append(photo_keys, $2),
			updated_at = now()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, productID, fileKey)
	if err != nil {
		return fmt.Errorf("add product photo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("product not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Title, &p.Description, &p.PriceCents, &p.Currency,
		&p.FeedType, &p.IsAvailable, &p.SoldAt, &p.PhotoKeys, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}
