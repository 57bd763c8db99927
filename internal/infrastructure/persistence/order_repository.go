package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storefront/backend/internal/domain/store"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save creates or updates an order with its items
func (r *GormOrderRepository) Save(ctx context.Context, order *store.Order) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(order).Error
}

// FindByID finds an order by its ID, items included
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Order, error) {
	var order store.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindFailed returns all orders whose last submission failed, oldest
// first so reconciliation retries them in arrival order
func (r *GormOrderRepository) FindFailed(ctx context.Context) ([]store.Order, error) {
	var orders []store.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("sync_status = ?", store.SyncStatusFailed).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateSyncStatus writes the result of a submission attempt
func (r *GormOrderRepository) UpdateSyncStatus(ctx context.Context, id uuid.UUID, update store.SyncStatusUpdate) error {
	values := map[string]any{
		"sync_status":   update.Status,
		"remote_doc_no": update.DocNo,
		"remote_date":   update.Date,
		"sync_error":    update.Error,
		"updated_at":    time.Now(),
	}
	if update.Status == store.SyncStatusSynced {
		values["synced_at"] = time.Now()
	}

	result := r.db.WithContext(ctx).
		Model(&store.Order{}).
		Where("id = ?", id).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrOrderNotFound
	}
	return nil
}

// Ensure GormOrderRepository implements OrderRepository
var _ store.OrderRepository = (*GormOrderRepository)(nil)
