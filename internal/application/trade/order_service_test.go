package trade

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/integration"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/erp"
)

// memOrderRepo is an in-memory store.OrderRepository
type memOrderRepo struct {
	orders map[uuid.UUID]*store.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*store.Order)}
}

func (m *memOrderRepo) Save(ctx context.Context, order *store.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	return order, nil
}

func (m *memOrderRepo) FindFailed(ctx context.Context) ([]store.Order, error) {
	var failed []store.Order
	for _, order := range m.orders {
		if order.SyncStatus == store.SyncStatusFailed {
			failed = append(failed, *order)
		}
	}
	return failed, nil
}

func (m *memOrderRepo) UpdateSyncStatus(ctx context.Context, id uuid.UUID, update store.SyncStatusUpdate) error {
	return nil
}

// stubGateway answers every save with a scripted outcome
type stubGateway struct {
	err   error
	calls int
}

func (s *stubGateway) SaveSalesOrder(ctx context.Context, payload map[string]any) (*erp.OrderSaveResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &erp.OrderSaveResult{DocNos: []string{"SO-1"}, DocDate: "20260901", SuccessCount: 1}, nil
}

func (s *stubGateway) InvalidateSession() {}

// codeSource exposes the given codes as resolvable price book records
type codeSource struct {
	codes []string
}

func (c *codeSource) LoadAll(ctx context.Context) ([]store.ProductRecord, error) {
	records := make([]store.ProductRecord, 0, len(c.codes))
	for _, code := range c.codes {
		records = append(records, store.ProductRecord{Code: code, Name: "Product " + code})
	}
	return records, nil
}

func newOrderServiceForTest(t *testing.T, gateway *stubGateway, codes ...string) (*OrderService, *memOrderRepo) {
	t.Helper()
	repo := newMemOrderRepo()
	resolver := integration.NewMappingResolver(&codeSource{codes: codes}, zap.NewNop())
	submission := integration.NewOrderSubmissionService(gateway, resolver, repo, zap.NewNop())
	return NewOrderService(repo, submission, zap.NewNop()), repo
}

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		OrderNumber:  "WEB-1001",
		CustomerName: "Jordan Doe",
		CustomerCode: "C001",
		Items: []CreateOrderItem{
			{ProductCode: "A100", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("9.50")},
		},
	}
}

func TestCreateOrderSubmitsToERP(t *testing.T) {
	gateway := &stubGateway{}
	svc, repo := newOrderServiceForTest(t, gateway, "A100")

	order, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, store.SyncStatusSynced, order.SyncStatus)
	assert.Equal(t, "SO-1", order.RemoteDocNo)
	assert.Equal(t, "19", order.TotalAmount.String())
	assert.Equal(t, 1, gateway.calls)

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, stored.OrderNumber)
}

func TestCreateOrderSurvivesSubmissionFailure(t *testing.T) {
	gateway := &stubGateway{err: assert.AnError}
	svc, _ := newOrderServiceForTest(t, gateway, "A100")

	// The sale is accepted even when the ERP is down
	order, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, store.SyncStatusFailed, order.SyncStatus)
	assert.NotEmpty(t, order.SyncError)
}

func TestCreateOrderRejectsEmptyOrder(t *testing.T) {
	svc, _ := newOrderServiceForTest(t, &stubGateway{})

	req := validRequest()
	req.Items = nil
	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, store.ErrOrderNoItems)
}

func TestCreateOrderRejectsInvalidItem(t *testing.T) {
	svc, _ := newOrderServiceForTest(t, &stubGateway{})

	req := validRequest()
	req.Items[0].Quantity = decimal.Zero
	_, err := svc.CreateOrder(context.Background(), req)
	assert.ErrorIs(t, err, store.ErrOrderInvalidItem)
}

func TestGetOrder(t *testing.T) {
	svc, _ := newOrderServiceForTest(t, &stubGateway{}, "A100")

	order, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	found, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = svc.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrOrderNotFound)
}

func TestResubmitRecoversFailedOrder(t *testing.T) {
	gateway := &stubGateway{err: assert.AnError}
	svc, _ := newOrderServiceForTest(t, gateway, "A100")

	order, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, store.SyncStatusFailed, order.SyncStatus)

	// The remote recovered
	gateway.err = nil
	resubmitted, err := svc.Resubmit(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusSynced, resubmitted.SyncStatus)
}

func TestResubmitRejectsSyncedOrder(t *testing.T) {
	svc, _ := newOrderServiceForTest(t, &stubGateway{}, "A100")

	order, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, store.SyncStatusSynced, order.SyncStatus)

	_, err = svc.Resubmit(context.Background(), order.ID)
	assert.ErrorIs(t, err, store.ErrOrderAlreadySynced)
}
