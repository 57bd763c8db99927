package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Order Errors
// ---------------------------------------------------------------------------

var (
	ErrOrderNotFound      = errors.New("store: order not found")
	ErrOrderNoItems       = errors.New("store: order has no items")
	ErrOrderInvalidItem   = errors.New("store: order item is invalid")
	ErrOrderAlreadySynced = errors.New("store: order already synced")
)

// ---------------------------------------------------------------------------
// SyncStatus
// ---------------------------------------------------------------------------

// SyncStatus represents the ERP synchronization status of an order
type SyncStatus string

const (
	// SyncStatusPending indicates the order has not been submitted yet
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusSynced indicates the order was accepted by the ERP
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusFailed indicates the last submission attempt failed
	SyncStatusFailed SyncStatus = "failed"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusSynced, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Order Aggregate
// ---------------------------------------------------------------------------

// Order represents a storefront sales order awaiting ERP submission
type Order struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderNumber  string          `gorm:"type:varchar(40);not null;uniqueIndex"`
	CustomerName string          `gorm:"type:varchar(200);not null"`
	CustomerCode string          `gorm:"type:varchar(50)"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Items        []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	// ERP synchronization state, mutated only by the submission
	// pipeline and the reconciliation scheduler.
	SyncStatus  SyncStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	RemoteDocNo string     `gorm:"type:varchar(60)"`
	RemoteDate  string     `gorm:"type:varchar(8)"` // YYYYMMDD as assigned by the ERP
	SyncError   string     `gorm:"type:text"`
	SyncedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// OrderItem represents a line item of a storefront order
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductCode string          `gorm:"type:varchar(50);not null"`
	ProductName string          `gorm:"type:varchar(200)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrder creates a new pending order from validated line items
func NewOrder(orderNumber, customerName, customerCode string, items []OrderItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrOrderNoItems
	}

	id := uuid.New()
	total := decimal.Zero
	for i := range items {
		if items[i].ProductCode == "" || !items[i].Quantity.IsPositive() {
			return nil, ErrOrderInvalidItem
		}
		items[i].ID = uuid.New()
		items[i].OrderID = id
		total = total.Add(items[i].UnitPrice.Mul(items[i].Quantity))
	}

	return &Order{
		ID:           id,
		OrderNumber:  orderNumber,
		CustomerName: customerName,
		CustomerCode: customerCode,
		TotalAmount:  total,
		Items:        items,
		SyncStatus:   SyncStatusPending,
	}, nil
}

// MarkSynced records a successful ERP submission
func (o *Order) MarkSynced(docNo, docDate string) {
	now := time.Now()
	o.SyncStatus = SyncStatusSynced
	o.RemoteDocNo = docNo
	o.RemoteDate = docDate
	o.SyncError = ""
	o.SyncedAt = &now
}

// MarkSyncFailed records a failed ERP submission with its cause
func (o *Order) MarkSyncFailed(errMsg string) {
	o.SyncStatus = SyncStatusFailed
	o.SyncError = errMsg
}

// ---------------------------------------------------------------------------
// OrderRepository Port
// ---------------------------------------------------------------------------

// SyncStatusUpdate carries the fields written back after a submission attempt
type SyncStatusUpdate struct {
	Status SyncStatus
	DocNo  string
	Date   string
	Error  string
}

// OrderRepository defines the persistence port for storefront orders
type OrderRepository interface {
	// Save creates or updates an order with its items
	Save(ctx context.Context, order *Order) error

	// FindByID finds an order by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindFailed returns all orders whose last submission failed
	FindFailed(ctx context.Context) ([]Order, error)

	// UpdateSyncStatus writes the result of a submission attempt
	UpdateSyncStatus(ctx context.Context, id uuid.UUID, update SyncStatusUpdate) error
}
