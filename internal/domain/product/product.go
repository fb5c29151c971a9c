package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested catalog item does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Price is the
// authoritative unit price; client-submitted prices are never trusted.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	ImageURL    string

	// PlatformID references the item on the external commerce platform,
	// set when the product was imported via sync. Empty for local products.
	PlatformID string
}

// Repository defines catalog operations. Reads serve the storefront;
// Upsert is used by platform sync and seeding.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	Upsert(ctx context.Context, p *Product) error
}
