package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrder(t *testing.T) {
	order, err := NewOrder("WEB-1001", "Jordan Doe", "C001", []OrderItem{
		{ProductCode: "A100", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("9.50")},
		{ProductCode: "B200", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("10")},
	})
	require.NoError(t, err)

	assert.NotEqual(t, order.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, SyncStatusPending, order.SyncStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("49")))

	for _, item := range order.Items {
		assert.Equal(t, order.ID, item.OrderID)
		assert.NotEqual(t, item.ID, order.ID)
	}
}

func TestNewOrderRejectsEmptyItems(t *testing.T) {
	_, err := NewOrder("WEB-1001", "Jordan Doe", "C001", nil)
	assert.ErrorIs(t, err, ErrOrderNoItems)
}

func TestNewOrderRejectsInvalidItems(t *testing.T) {
	tests := []struct {
		name string
		item OrderItem
	}{
		{"missing code", OrderItem{Quantity: decimal.NewFromInt(1)}},
		{"zero quantity", OrderItem{ProductCode: "A100", Quantity: decimal.Zero}},
		{"negative quantity", OrderItem{ProductCode: "A100", Quantity: decimal.NewFromInt(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder("WEB-1001", "Jordan Doe", "C001", []OrderItem{tt.item})
			assert.ErrorIs(t, err, ErrOrderInvalidItem)
		})
	}
}

func TestMarkSynced(t *testing.T) {
	order, err := NewOrder("WEB-1001", "Jordan Doe", "C001", []OrderItem{
		{ProductCode: "A100", Quantity: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	order.MarkSyncFailed("remote down")

	order.MarkSynced("SO-1", "20260901")

	assert.Equal(t, SyncStatusSynced, order.SyncStatus)
	assert.Equal(t, "SO-1", order.RemoteDocNo)
	assert.Equal(t, "20260901", order.RemoteDate)
	assert.Empty(t, order.SyncError, "recovery clears the failure cause")
	require.NotNil(t, order.SyncedAt)
}

func TestMarkSyncFailed(t *testing.T) {
	order, err := NewOrder("WEB-1001", "Jordan Doe", "C001", []OrderItem{
		{ProductCode: "A100", Quantity: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)

	order.MarkSyncFailed("remote down")

	assert.Equal(t, SyncStatusFailed, order.SyncStatus)
	assert.Equal(t, "remote down", order.SyncError)
	assert.Nil(t, order.SyncedAt)
}

func TestSyncStatusIsValid(t *testing.T) {
	assert.True(t, SyncStatusPending.IsValid())
	assert.True(t, SyncStatusSynced.IsValid())
	assert.True(t, SyncStatusFailed.IsValid())
	assert.False(t, SyncStatus("exploded").IsValid())
}
