package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/integration"
	"github.com/storefront/backend/internal/domain/store"
)

// CreateOrderRequest carries a new storefront order
type CreateOrderRequest struct {
	OrderNumber  string
	CustomerName string
	CustomerCode string
	Items        []CreateOrderItem
}

// CreateOrderItem is one requested line
type CreateOrderItem struct {
	ProductCode string
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// OrderService accepts storefront orders and forwards them to the ERP.
// Acceptance and submission are decoupled: an order is persisted first,
// so a failed submission leaves a failed order for reconciliation
// rather than a lost sale.
type OrderService struct {
	orders     store.OrderRepository
	submission *integration.OrderSubmissionService
	logger     *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders store.OrderRepository, submission *integration.OrderSubmissionService, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:     orders,
		submission: submission,
		logger:     logger,
	}
}

// CreateOrder persists a new order and attempts immediate ERP
// submission. The order is returned in its post-submission state; a
// submission failure is reported on the order's sync status, not as an
// error, because the sale itself succeeded.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*store.Order, error) {
	items := make([]store.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = store.OrderItem{
			ProductCode: item.ProductCode,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}

	order, err := store.NewOrder(req.OrderNumber, req.CustomerName, req.CustomerCode, items)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	if _, err := s.submission.Submit(ctx, order); err != nil {
		s.logger.Warn("Order accepted but ERP submission failed",
			zap.String("order", order.OrderNumber),
			zap.Error(err),
		)
	}

	return order, nil
}

// GetOrder returns one order with its items and sync state
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*store.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// Resubmit retries ERP submission for a previously failed order
func (s *OrderService) Resubmit(ctx context.Context, id uuid.UUID) (*store.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.SyncStatus == store.SyncStatusSynced {
		return nil, store.ErrOrderAlreadySynced
	}

	if _, err := s.submission.Submit(ctx, order); err != nil {
		s.logger.Warn("Order resubmission failed",
			zap.String("order", order.OrderNumber),
			zap.Error(err),
		)
	}
	return order, nil
}
