package platform

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verdantshop/storefront/internal/domain/product"
)

type fakeCatalog struct {
	products []Product
	err      error
}

func (f *fakeCatalog) Products(_ context.Context) ([]Product, error) {
	return f.products, f.err
}

type recordingRepo struct {
	mu       sync.Mutex
	upserted map[string]*product.Product
	err      error
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{upserted: make(map[string]*product.Product)}
}

func (r *recordingRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }
func (r *recordingRepo) GetByID(_ context.Context, _ string) (*product.Product, error) {
	return nil, product.ErrNotFound
}
func (r *recordingRepo) GetByIDs(_ context.Context, _ []string) ([]product.Product, error) {
	return nil, nil
}
func (r *recordingRepo) Search(_ context.Context, _ string) ([]product.Product, error) {
	return nil, nil
}

func (r *recordingRepo) Upsert(_ context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.upserted[p.ID] = p
	return nil
}

func TestSync(t *testing.T) {
	catalog := &fakeCatalog{products: []Product{
		{
			ID:       101,
			Title:    "Hand Grinder",
			BodyHTML: "<p>Grinds.</p>",
			Variants: []ProductVariant{{ID: 1, Price: "72.50"}},
			Images:   []ProductImage{{Src: "https://cdn.example.com/grinder.jpg"}},
		},
		{
			ID:       102,
			Title:    "Filter Papers",
			Variants: []ProductVariant{{ID: 2, Price: "6.00"}},
		},
	}}
	repo := newRecordingRepo()

	count, err := NewSyncer(catalog, repo, zap.NewNop()).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	p := repo.upserted["plat-101"]
	require.NotNil(t, p)
	assert.Equal(t, "Hand Grinder", p.Title)
	assert.Equal(t, "72.50", p.Price.StringFixed(2))
	assert.Equal(t, "101", p.PlatformID)
	assert.Equal(t, "https://cdn.example.com/grinder.jpg", p.ImageURL)
}

func TestSync_BadPriceAborts(t *testing.T) {
	catalog := &fakeCatalog{products: []Product{
		{ID: 1, Title: "Broken", Variants: []ProductVariant{{Price: "not-a-price"}}},
	}}

	_, err := NewSyncer(catalog, newRecordingRepo(), zap.NewNop()).Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "convert platform product 1")
}
