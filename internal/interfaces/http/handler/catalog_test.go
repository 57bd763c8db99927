package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/application/integration"
	erpdomain "github.com/storefront/backend/internal/domain/erp"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/cache"
)

// stubInventory scripts FetchInventory outcomes
type stubInventory struct {
	products []store.CatalogProduct
	err      error
}

func (s *stubInventory) FetchInventory(ctx context.Context) ([]store.CatalogProduct, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

func newCatalogTestServer(t *testing.T, inventory *stubInventory, codes ...string) *gin.Engine {
	t.Helper()
	resolver := integration.NewMappingResolver(&listSource{codes: codes}, zap.NewNop())
	snapshots := cache.NewSnapshotCache[[]store.CatalogProduct](time.Minute, zap.NewNop())
	service := catalogapp.NewCatalogService(inventory, snapshots, resolver, zap.NewNop())

	engine := gin.New()
	NewCatalogHandler(service).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestGetCatalogEndpoint(t *testing.T) {
	inventory := &stubInventory{products: []store.CatalogProduct{
		{Code: "A100", Name: "erp widget", Quantity: decimal.NewFromInt(5)},
	}}
	engine := newCatalogTestServer(t, inventory, "A100")

	w, resp := doJSON(t, engine, http.MethodGet, "/api/v1/catalog", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["stale"])
	products := data["products"].([]any)
	require.Len(t, products, 1)

	first := products[0].(map[string]any)
	assert.Equal(t, "A100", first["code"])
	assert.Equal(t, "Product A100", first["name"])
	assert.Equal(t, true, first["resolved"])
}

func TestGetCatalogEndpointUnavailable(t *testing.T) {
	inventory := &stubInventory{err: &erpdomain.RemoteError{
		Category: erpdomain.CategoryNetwork,
		Message:  "request failed",
		Err:      errors.New("dial tcp: connection refused"),
	}}
	engine := newCatalogTestServer(t, inventory)

	// No snapshot has ever been cached, so the failure surfaces
	w, resp := doJSON(t, engine, http.MethodGet, "/api/v1/catalog", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NotNil(t, resp.Error)
	assert.NotContains(t, resp.Error.Message, "dial tcp", "protocol detail must not leak")
}
