package integration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	erpdomain "github.com/storefront/backend/internal/domain/erp"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/internal/infrastructure/erp"
)

// remoteDateLayout is the ERP's 8-digit date format
const remoteDateLayout = "20060102"

// OrderGateway is the slice of the request gateway the submission
// pipeline needs
type OrderGateway interface {
	SaveSalesOrder(ctx context.Context, payload map[string]any) (*erp.OrderSaveResult, error)
	InvalidateSession()
}

// SubmissionResult is the outcome of a successful submission
type SubmissionResult struct {
	// DocNo is the remote document number, or a synthesized
	// "PENDING-<id>" placeholder when the remote assigned none
	DocNo string
	// DocDate is the remote document date (YYYYMMDD)
	DocDate string
}

// OrderSubmissionService converts storefront orders into remote sales
// order documents. Submission is all-or-nothing: an order with any
// unmapped product code is rejected before a single byte reaches the
// remote, because a partial document would need manual repair there.
type OrderSubmissionService struct {
	gateway  OrderGateway
	resolver *MappingResolver
	orders   store.OrderRepository
	logger   *zap.Logger
}

// NewOrderSubmissionService creates a new OrderSubmissionService
func NewOrderSubmissionService(gateway OrderGateway, resolver *MappingResolver, orders store.OrderRepository, logger *zap.Logger) *OrderSubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderSubmissionService{
		gateway:  gateway,
		resolver: resolver,
		orders:   orders,
		logger:   logger,
	}
}

// Submit pushes one order to the remote ERP and persists the outcome on
// the order's sync status. The returned error carries the failure
// category; the order record is updated either way.
func (s *OrderSubmissionService) Submit(ctx context.Context, order *store.Order) (*SubmissionResult, error) {
	result, err := s.submit(ctx, order, 1)
	if err != nil {
		order.MarkSyncFailed(err.Error())
		if updErr := s.orders.UpdateSyncStatus(ctx, order.ID, store.SyncStatusUpdate{
			Status: store.SyncStatusFailed,
			Error:  err.Error(),
		}); updErr != nil {
			s.logger.Error("Failed to persist sync failure",
				zap.String("order", order.OrderNumber),
				zap.Error(updErr),
			)
		}
		return nil, err
	}

	order.MarkSynced(result.DocNo, result.DocDate)
	if updErr := s.orders.UpdateSyncStatus(ctx, order.ID, store.SyncStatusUpdate{
		Status: store.SyncStatusSynced,
		DocNo:  result.DocNo,
		Date:   result.DocDate,
	}); updErr != nil {
		s.logger.Error("Failed to persist sync success",
			zap.String("order", order.OrderNumber),
			zap.Error(updErr),
		)
	}

	s.logger.Info("Order submitted to ERP",
		zap.String("order", order.OrderNumber),
		zap.String("doc_no", result.DocNo),
	)
	return result, nil
}

// Resubmit retries a previously failed order. Used by the
// reconciliation scheduler, which only cares whether the order
// recovered.
func (s *OrderSubmissionService) Resubmit(ctx context.Context, order *store.Order) error {
	_, err := s.Submit(ctx, order)
	return err
}

// submit performs one submission attempt, retrying once when the
// session expired mid-flight
func (s *OrderSubmissionService) submit(ctx context.Context, order *store.Order, authRetries int) (*SubmissionResult, error) {
	if err := s.resolver.EnsureLoaded(ctx); err != nil {
		return nil, err
	}

	payload, err := s.buildPayload(order)
	if err != nil {
		return nil, err
	}

	saved, err := s.gateway.SaveSalesOrder(ctx, payload)
	if err != nil {
		if errors.Is(err, erpdomain.ErrSessionExpired) && authRetries > 0 {
			s.logger.Warn("Session expired during order submission, retrying",
				zap.String("order", order.OrderNumber),
			)
			s.gateway.InvalidateSession()
			return s.submit(ctx, order, authRetries-1)
		}
		return nil, err
	}

	// The remote can accept the document while rejecting individual
	// lines. That leaves a broken document remotely, so it is a failure
	// for the whole order.
	if saved.FailCount > 0 || len(saved.LineErrors) > 0 {
		return nil, fmt.Errorf("%w: %s", erpdomain.ErrPartialRemoteValidation, formatLineErrors(saved.LineErrors))
	}

	docNo := strings.Join(saved.DocNos, ",")
	if docNo == "" {
		// Accepted but no document number reported. Synthesize a
		// placeholder so the order is traceable until reconciliation.
		docNo = "PENDING-" + order.ID.String()
	}
	docDate := saved.DocDate
	if docDate == "" {
		docDate = time.Now().Format(remoteDateLayout)
	}

	return &SubmissionResult{DocNo: docNo, DocDate: docDate}, nil
}

// buildPayload maps the order to the remote sales order document. Every
// line must resolve; otherwise the full set of unmapped codes is
// reported and no payload is built.
func (s *OrderSubmissionService) buildPayload(order *store.Order) (map[string]any, error) {
	date := time.Now().Format(remoteDateLayout)

	lines := make([]map[string]any, 0, len(order.Items))
	var unmapped []string
	for i, item := range order.Items {
		rec, ok := s.resolver.Resolve(item.ProductCode)
		if !ok {
			unmapped = append(unmapped, item.ProductCode)
			continue
		}
		lines = append(lines, map[string]any{
			"Line":     i + 1,
			"IO_DATE":  date,
			"CUST_DES": order.CustomerName,
			"PROD_CD":  rec.Code,
			"PROD_DES": rec.Name,
			"QTY":      item.Quantity.String(),
			"PRICE":    item.UnitPrice.String(),
			"REMARKS":  order.OrderNumber,
		})
	}
	if len(unmapped) > 0 {
		return nil, fmt.Errorf("%w: %s", erpdomain.ErrUnmappedProducts, strings.Join(unmapped, ", "))
	}

	return map[string]any{
		"IO_DATE":   date,
		"ORDER_NO":  order.OrderNumber,
		"CUST_DES":  order.CustomerName,
		"CUST_CD":   order.CustomerCode,
		"OrderList": lines,
	}, nil
}

// formatLineErrors renders per-line remote validation messages in line
// order
func formatLineErrors(lineErrors map[int]string) string {
	if len(lineErrors) == 0 {
		return "remote rejected one or more lines"
	}
	lines := make([]int, 0, len(lineErrors))
	for line := range lineErrors {
		lines = append(lines, line)
	}
	sort.Ints(lines)

	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("line %d: %s", line, lineErrors[line]))
	}
	return strings.Join(parts, "; ")
}
