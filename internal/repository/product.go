package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/verdantshop/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, title, description, price, image_url, COALESCE(platform_id, '')
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, title, description, price, image_url, COALESCE(platform_id, '')
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, title, description, price, image_url, COALESCE(platform_id, '')
		FROM products WHERE id = ANY($1)`

	searchProductsSQL = `SELECT id, title, description, price, image_url, COALESCE(platform_id, '')
		FROM products
		WHERE title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY id`

	upsertProductSQL = `INSERT INTO products (id, title, description, price, image_url, platform_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			image_url = EXCLUDED.image_url,
			platform_id = EXCLUDED.platform_id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all catalog products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs. Missing IDs are
// simply absent from the result; callers decide whether that is an error.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Search returns products whose title or description contains the query,
// case-insensitive.
func (r *ProductRepository) Search(ctx context.Context, query string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, searchProductsSQL, query)
	if err != nil {
		return nil, fmt.Errorf("searching products %q: %w", query, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts the product or updates it in place when the ID already
// exists. Used by catalog seeding and platform sync.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Title, p.Description, p.Price, p.ImageURL, p.PlatformID,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &price, &p.ImageURL, &p.PlatformID)
	p.Price = price
	return p, err
}
