package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/integration"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/cache"
)

// fakeInventoryGateway scripts FetchInventory outcomes
type fakeInventoryGateway struct {
	products []store.CatalogProduct
	err      error
	calls    int
}

func (f *fakeInventoryGateway) FetchInventory(ctx context.Context) ([]store.CatalogProduct, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

// fixedSource returns a fixed record set
type fixedSource struct {
	records []store.ProductRecord
	err     error
}

func (f *fixedSource) LoadAll(ctx context.Context) ([]store.ProductRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func newCatalogServiceForTest(gateway *fakeInventoryGateway, source store.ProductSource, ttl time.Duration) *CatalogService {
	resolver := integration.NewMappingResolver(source, zap.NewNop())
	snapshots := cache.NewSnapshotCache[[]store.CatalogProduct](ttl, zap.NewNop())
	return NewCatalogService(gateway, snapshots, resolver, zap.NewNop())
}

func TestGetCatalogEnrichesFromPriceBook(t *testing.T) {
	gateway := &fakeInventoryGateway{products: []store.CatalogProduct{
		{Code: "A100", Name: "erp widget", Quantity: decimal.NewFromInt(5)},
		{Code: "Z999", Name: "unmapped", Quantity: decimal.NewFromInt(1)},
	}}
	source := &fixedSource{records: []store.ProductRecord{
		{Code: "A-100", Name: "Widget Deluxe", Price: decimal.RequireFromString("19.90"), Unit: "EA"},
	}}
	svc := newCatalogServiceForTest(gateway, source, time.Minute)

	view, err := svc.GetCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Products, 2)

	assert.Equal(t, "Widget Deluxe", view.Products[0].Name)
	assert.Equal(t, "19.9", view.Products[0].Price.String())
	assert.True(t, view.Products[0].Resolved)

	assert.Equal(t, "unmapped", view.Products[1].Name)
	assert.False(t, view.Products[1].Resolved)

	assert.False(t, view.Stale)
}

func TestGetCatalogServesCachedSnapshot(t *testing.T) {
	gateway := &fakeInventoryGateway{products: []store.CatalogProduct{{Code: "A100"}}}
	svc := newCatalogServiceForTest(gateway, &fixedSource{}, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := svc.GetCatalog(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, gateway.calls)
}

func TestGetCatalogWithoutPriceBookIsDegraded(t *testing.T) {
	gateway := &fakeInventoryGateway{products: []store.CatalogProduct{
		{Code: "A100", Name: "erp widget"},
	}}
	svc := newCatalogServiceForTest(gateway, &fixedSource{err: errors.New("file locked")}, time.Minute)

	// A broken price book degrades enrichment, never the catalog itself
	view, err := svc.GetCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Products, 1)
	assert.Equal(t, "erp widget", view.Products[0].Name)
	assert.False(t, view.Products[0].Resolved)
}

func TestGetCatalogStaleFallbackWhenRemoteDies(t *testing.T) {
	gateway := &fakeInventoryGateway{products: []store.CatalogProduct{{Code: "A100"}}}
	svc := newCatalogServiceForTest(gateway, &fixedSource{}, 10*time.Millisecond)

	_, err := svc.GetCatalog(context.Background())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	gateway.err = errors.New("remote down")

	view, err := svc.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Stale)
	require.Len(t, view.Products, 1)
	assert.Equal(t, "A100", view.Products[0].Code)
}

func TestRefreshInventoryForcesFetch(t *testing.T) {
	gateway := &fakeInventoryGateway{products: []store.CatalogProduct{{Code: "A100"}}}
	svc := newCatalogServiceForTest(gateway, &fixedSource{}, time.Hour)

	_, err := svc.GetCatalog(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.RefreshInventory(context.Background()))

	assert.Equal(t, 2, gateway.calls, "refresh must bypass the TTL")
}

func TestRefreshInventoryPropagatesError(t *testing.T) {
	gateway := &fakeInventoryGateway{err: errors.New("remote down")}
	svc := newCatalogServiceForTest(gateway, &fixedSource{}, time.Hour)

	assert.Error(t, svc.RefreshInventory(context.Background()))
}

func TestRefreshInventoryReportsFailureDespiteCachedSnapshot(t *testing.T) {
	gateway := &fakeInventoryGateway{products: []store.CatalogProduct{{Code: "A100"}}}
	svc := newCatalogServiceForTest(gateway, &fixedSource{}, time.Hour)

	_, err := svc.GetCatalog(context.Background())
	require.NoError(t, err)

	gateway.err = errors.New("remote down")

	// A forced refresh must not be masked by the stale fallback
	require.Error(t, svc.RefreshInventory(context.Background()))

	// The old snapshot still serves reads
	view, err := svc.GetCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Products, 1)
	assert.Equal(t, "A100", view.Products[0].Code)
}

func TestGetCatalogKeepsCachedSnapshotPristine(t *testing.T) {
	gateway := &fakeInventoryGateway{products: []store.CatalogProduct{
		{Code: "A100", Name: "erp widget"},
	}}
	source := &fixedSource{records: []store.ProductRecord{
		{Code: "A100", Name: "Widget Deluxe"},
	}}
	svc := newCatalogServiceForTest(gateway, source, time.Minute)

	first, err := svc.GetCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Widget Deluxe", first.Products[0].Name)

	// Mutating the served view must not leak into the cache
	first.Products[0].Name = "mutated"

	second, err := svc.GetCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Widget Deluxe", second.Products[0].Name)
}
