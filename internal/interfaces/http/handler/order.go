package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/application/trade"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// OrderHandler accepts storefront orders and reports their sync state
type OrderHandler struct {
	BaseHandler
	service *trade.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *trade.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/resubmit", h.ResubmitOrder)
	}
}

// CreateOrderRequest is the order creation payload
type CreateOrderRequest struct {
	OrderNumber  string                   `json:"order_number" binding:"required,max=40"`
	CustomerName string                   `json:"customer_name" binding:"required,max=200"`
	CustomerCode string                   `json:"customer_code" binding:"max=50"`
	Items        []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateOrderItemRequest is one requested order line
type CreateOrderItemRequest struct {
	ProductCode string          `json:"product_code" binding:"required,max=50"`
	ProductName string          `json:"product_name" binding:"max=200"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// OrderResponse is the order as reported to the storefront
type OrderResponse struct {
	ID           string              `json:"id"`
	OrderNumber  string              `json:"order_number"`
	CustomerName string              `json:"customer_name"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	SyncStatus   string              `json:"sync_status"`
	RemoteDocNo  string              `json:"remote_doc_no,omitempty"`
	SyncError    string              `json:"sync_error,omitempty"`
	Items        []OrderItemResponse `json:"items"`
	CreatedAt    time.Time           `json:"created_at"`
}

// OrderItemResponse is one order line as reported to the storefront
type OrderItemResponse struct {
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateOrder accepts a new order. The order is persisted before ERP
// submission, so a 201 with sync_status=failed still means the sale was
// captured.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	items := make([]trade.CreateOrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = trade.CreateOrderItem{
			ProductCode: item.ProductCode,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}

	order, err := h.service.CreateOrder(c.Request.Context(), trade.CreateOrderRequest{
		OrderNumber:  req.OrderNumber,
		CustomerName: req.CustomerName,
		CustomerCode: req.CustomerCode,
		Items:        items,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toOrderResponse(order))
}

// GetOrder returns one order with its sync state
func (h *OrderHandler) GetOrder(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(order))
}

// ResubmitOrder retries ERP submission for a failed order
func (h *OrderHandler) ResubmitOrder(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid order id")
		return
	}

	order, err := h.service.Resubmit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOrderResponse(order))
}

// toOrderResponse maps the order aggregate to its API representation
func toOrderResponse(order *store.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ProductCode: item.ProductCode,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return OrderResponse{
		ID:           order.ID.String(),
		OrderNumber:  order.OrderNumber,
		CustomerName: order.CustomerName,
		TotalAmount:  order.TotalAmount,
		SyncStatus:   order.SyncStatus.String(),
		RemoteDocNo:  order.RemoteDocNo,
		SyncError:    order.SyncError,
		Items:        items,
		CreatedAt:    order.CreatedAt,
	}
}
