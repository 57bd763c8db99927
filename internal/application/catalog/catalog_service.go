package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/integration"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/cache"
)

// inventoryCacheKey keys the single inventory snapshot in the cache
const inventoryCacheKey = "inventory"

// InventoryGateway is the slice of the request gateway the catalog
// service needs
type InventoryGateway interface {
	FetchInventory(ctx context.Context) ([]store.CatalogProduct, error)
}

// CatalogView is the storefront catalog as served to customers
type CatalogView struct {
	Products  []store.CatalogProduct `json:"products"`
	Stale     bool                   `json:"stale"`
	FetchedAt time.Time              `json:"fetched_at"`
}

// CatalogService serves the storefront catalog: the remote inventory
// snapshot, cached with stale fallback, enriched with price book data.
// A dead remote degrades the catalog to a stale snapshot instead of an
// empty page.
type CatalogService struct {
	gateway  InventoryGateway
	cache    *cache.SnapshotCache[[]store.CatalogProduct]
	resolver *integration.MappingResolver
	logger   *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(gateway InventoryGateway, snapshots *cache.SnapshotCache[[]store.CatalogProduct], resolver *integration.MappingResolver, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		gateway:  gateway,
		cache:    snapshots,
		resolver: resolver,
		logger:   logger,
	}
}

// GetCatalog returns the current catalog. The inventory snapshot comes
// from cache when fresh; price book enrichment is best-effort - when
// the price book cannot be loaded the snapshot is served unenriched.
func (s *CatalogService) GetCatalog(ctx context.Context) (*CatalogView, error) {
	result, err := s.cache.GetOrRefresh(ctx, inventoryCacheKey, s.gateway.FetchInventory)
	if err != nil {
		return nil, err
	}

	if err := s.resolver.EnsureLoaded(ctx); err != nil {
		s.logger.Warn("Serving catalog without price book enrichment", zap.Error(err))
	}

	// Enrich a copy so cached snapshot entries stay pristine
	products := make([]store.CatalogProduct, len(result.Value))
	copy(products, result.Value)
	products = s.resolver.ApplyNames(products)

	return &CatalogView{
		Products:  products,
		Stale:     result.Stale,
		FetchedAt: result.FetchedAt,
	}, nil
}

// RefreshInventory fetches a fresh inventory snapshot immediately.
// Used by the reconciliation scheduler and the admin refresh endpoint.
// A failed fetch is reported as an error rather than masked by the
// stale fallback; the previous snapshot keeps serving reads.
func (s *CatalogService) RefreshInventory(ctx context.Context) error {
	_, err := s.cache.Refresh(ctx, inventoryCacheKey, s.gateway.FetchInventory)
	return err
}
