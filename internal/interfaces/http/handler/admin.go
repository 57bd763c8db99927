package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/application/integration"
	"github.com/storefront/backend/internal/infrastructure/erp"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
)

// AdminHandler exposes integration diagnostics and maintenance
// operations for operators
type AdminHandler struct {
	BaseHandler
	gateway    *erp.Gateway
	resolver   *integration.MappingResolver
	catalog    *catalog.CatalogService
	reconciler *scheduler.ReconcileScheduler
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(gateway *erp.Gateway, resolver *integration.MappingResolver, catalogService *catalog.CatalogService, reconciler *scheduler.ReconcileScheduler) *AdminHandler {
	return &AdminHandler{
		gateway:    gateway,
		resolver:   resolver,
		catalog:    catalogService,
		reconciler: reconciler,
	}
}

// RegisterRoutes registers admin routes
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin/integration")
	{
		admin.GET("/status", h.GetIntegrationStatus)
		admin.GET("/mapping", h.GetMappingDiagnostics)
		admin.POST("/mapping/refresh", h.RefreshMapping)
		admin.POST("/inventory/refresh", h.RefreshInventory)
		admin.GET("/reconcile/history", h.GetReconcileHistory)
	}
}

// GetIntegrationStatus returns the gateway's protective state: breaker,
// lockout, per-endpoint backoff, session validity
func (h *AdminHandler) GetIntegrationStatus(c *gin.Context) {
	h.Success(c, h.gateway.Status())
}

// GetMappingDiagnostics returns price book load state and
// unresolved-code statistics
func (h *AdminHandler) GetMappingDiagnostics(c *gin.Context) {
	h.Success(c, h.resolver.Diagnostics())
}

// RefreshMapping reloads the price book mapping on demand
func (h *AdminHandler) RefreshMapping(c *gin.Context) {
	if err := h.resolver.Refresh(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.resolver.Diagnostics())
}

// RefreshInventory forces a fresh inventory snapshot
func (h *AdminHandler) RefreshInventory(c *gin.Context) {
	if err := h.catalog.RefreshInventory(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"refreshed": true})
}

// GetReconcileHistory returns recent reconciliation cycles
func (h *AdminHandler) GetReconcileHistory(c *gin.Context) {
	h.Success(c, h.reconciler.History())
}
