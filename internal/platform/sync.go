package platform

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verdantshop/storefront/internal/domain/product"
)

// syncConcurrency bounds the number of concurrent catalog upserts.
const syncConcurrency = 8

// Catalog is the source of platform products for a sync run. Satisfied by
// *Client; swapped for a fake in tests and by the bulk importer.
type Catalog interface {
	Products(ctx context.Context) ([]Product, error)
}

// Syncer pulls the platform catalog and upserts it into the local product
// repository. Platform product IDs are kept as back-references so repeated
// syncs update rather than duplicate.
type Syncer struct {
	catalog  Catalog
	products product.Repository
	lg       *zap.Logger
}

// NewSyncer creates a catalog syncer.
func NewSyncer(catalog Catalog, products product.Repository, lg *zap.Logger) *Syncer {
	return &Syncer{catalog: catalog, products: products, lg: lg}
}

// Sync imports the platform catalog. It returns the number of products
// upserted. Individual conversion failures abort the run so a partial sync
// is never silently reported as success.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	items, err := s.catalog.Products(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "fetch platform catalog")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)

	for _, item := range items {
		g.Go(func() error {
			p, err := convertProduct(item)
			if err != nil {
				return errors.Wrapf(err, "convert platform product %d", item.ID)
			}
			if err := s.products.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			s.lg.Debug("synced product", zap.String("id", p.ID), zap.String("title", p.Title))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(items), nil
}

// convertProduct maps a platform product to a catalog item. The first
// variant's price is authoritative; products without variants are priced
// at zero and flagged by review, matching the platform's own export rules.
func convertProduct(item Product) (*product.Product, error) {
	platformID := strconv.FormatInt(item.ID, 10)

	price := decimal.Zero
	if len(item.Variants) > 0 {
		var err error
		price, err = decimal.NewFromString(item.Variants[0].Price)
		if err != nil {
			return nil, errors.Wrap(err, "parse variant price")
		}
	}

	imageURL := ""
	if len(item.Images) > 0 {
		imageURL = item.Images[0].Src
	}

	return &product.Product{
		ID:          "plat-" + platformID,
		Title:       item.Title,
		Description: item.BodyHTML,
		Price:       price,
		ImageURL:    imageURL,
		PlatformID:  platformID,
	}, nil
}
