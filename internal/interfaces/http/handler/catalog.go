package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/catalog"
)

// CatalogHandler serves the storefront product catalog
type CatalogHandler struct {
	BaseHandler
	service *catalog.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(service *catalog.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes registers catalog routes
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/catalog", h.GetCatalog)
}

// GetCatalog returns the current catalog. A stale snapshot is served
// with stale=true when the ERP is unreachable.
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	view, err := h.service.GetCatalog(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}
