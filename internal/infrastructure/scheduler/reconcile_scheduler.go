package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/store"
)

// ErrInvalidReconcileConfig indicates bad reconciliation settings
var ErrInvalidReconcileConfig = errors.New("scheduler: invalid reconcile configuration")

// ---------------------------------------------------------------------------
// Reconcile Cycle Types
// ---------------------------------------------------------------------------

// ReconcileCycleStatus represents the outcome of one reconciliation cycle
type ReconcileCycleStatus string

const (
	ReconcileCycleStatusSuccess ReconcileCycleStatus = "SUCCESS"
	ReconcileCycleStatusPartial ReconcileCycleStatus = "PARTIAL"
	ReconcileCycleStatusFailed  ReconcileCycleStatus = "FAILED"
	ReconcileCycleStatusSkipped ReconcileCycleStatus = "SKIPPED"
)

// ReconcileCycle records one reconciliation run for monitoring
type ReconcileCycle struct {
	StartedAt       time.Time
	CompletedAt     time.Time
	Status          ReconcileCycleStatus
	CacheRefreshed  bool
	OrdersRetried   int
	OrdersRecovered int
	Error           string
}

// ---------------------------------------------------------------------------
// Collaborator Ports
// ---------------------------------------------------------------------------

// InventoryRefresher refreshes the catalog inventory snapshot
type InventoryRefresher interface {
	RefreshInventory(ctx context.Context) error
}

// OrderResubmitter retries ERP submission for a failed order. A nil
// error means the order was accepted and marked synced.
type OrderResubmitter interface {
	Resubmit(ctx context.Context, order *store.Order) error
}

// ---------------------------------------------------------------------------
// ReconcileScheduler
// ---------------------------------------------------------------------------

// ReconcileSchedulerConfig holds reconciliation settings. The interval
// must stay at or above the remote's bulk rate window so back-to-back
// cycles cannot trip its rate limiter.
type ReconcileSchedulerConfig struct {
	Enabled         bool
	Interval        time.Duration
	InterOrderDelay time.Duration
}

// DefaultReconcileSchedulerConfig returns default configuration
func DefaultReconcileSchedulerConfig() ReconcileSchedulerConfig {
	return ReconcileSchedulerConfig{
		Enabled:         true,
		Interval:        10 * time.Minute,
		InterOrderDelay: 2 * time.Second,
	}
}

// Validate validates the configuration
func (c *ReconcileSchedulerConfig) Validate() error {
	if c.Interval < time.Minute {
		return ErrInvalidReconcileConfig
	}
	if c.InterOrderDelay < 0 {
		return ErrInvalidReconcileConfig
	}
	return nil
}

// ReconcileScheduler periodically refreshes the inventory snapshot and
// resubmits failed orders. It only ever talks to the remote through the
// catalog service and the submission pipeline, so every reconciliation
// call passes the same protective chain as interactive traffic.
type ReconcileScheduler struct {
	config    ReconcileSchedulerConfig
	inventory InventoryRefresher
	orders    store.OrderRepository
	submitter OrderResubmitter
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastCycle time.Time

	// Cycle history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []ReconcileCycle
	maxHistory int
}

// NewReconcileScheduler creates a new reconciliation scheduler
func NewReconcileScheduler(config ReconcileSchedulerConfig, inventory InventoryRefresher, orders store.OrderRepository, submitter OrderResubmitter, logger *zap.Logger) (*ReconcileScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReconcileScheduler{
		config:     config,
		inventory:  inventory,
		orders:     orders,
		submitter:  submitter,
		logger:     logger,
		history:    make([]ReconcileCycle, 0, 50),
		maxHistory: 50,
	}, nil
}

// Start starts the reconciliation loop
func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Reconciliation scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("inter_order_delay", s.config.InterOrderDelay),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-flight cycle
func (s *ReconcileScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Reconciliation scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the scheduler loop
func (s *ReconcileScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle executes one reconciliation cycle. Exported so the admin
// surface can trigger reconciliation on demand; a cycle arriving before
// the rate window from the previous one has elapsed is skipped.
func (s *ReconcileScheduler) RunCycle(ctx context.Context) ReconcileCycle {
	cycle := ReconcileCycle{StartedAt: time.Now()}

	s.mu.Lock()
	if !s.lastCycle.IsZero() && time.Since(s.lastCycle) < s.config.Interval {
		s.mu.Unlock()
		cycle.Status = ReconcileCycleStatusSkipped
		cycle.CompletedAt = time.Now()
		s.logger.Debug("Reconciliation cycle skipped, rate window not elapsed")
		s.recordCycle(cycle)
		return cycle
	}
	s.lastCycle = cycle.StartedAt
	s.mu.Unlock()

	if err := s.inventory.RefreshInventory(ctx); err != nil {
		s.logger.Warn("Inventory refresh failed during reconciliation", zap.Error(err))
		cycle.Error = err.Error()
	} else {
		cycle.CacheRefreshed = true
	}

	failed, err := s.orders.FindFailed(ctx)
	if err != nil {
		s.logger.Error("Failed to list failed orders", zap.Error(err))
		cycle.Status = ReconcileCycleStatusFailed
		cycle.Error = err.Error()
		cycle.CompletedAt = time.Now()
		s.recordCycle(cycle)
		return cycle
	}

	for i := range failed {
		if ctx.Err() != nil {
			break
		}
		cycle.OrdersRetried++
		if err := s.submitter.Resubmit(ctx, &failed[i]); err != nil {
			s.logger.Warn("Order resubmission failed",
				zap.String("order", failed[i].OrderNumber),
				zap.Error(err),
			)
		} else {
			cycle.OrdersRecovered++
		}

		// Space submissions out so a large backlog cannot trip the
		// remote's rate limiter.
		if i < len(failed)-1 && s.config.InterOrderDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.config.InterOrderDelay):
			}
		}
	}

	cycle.CompletedAt = time.Now()
	switch {
	case cycle.OrdersRetried == 0 && cycle.CacheRefreshed:
		cycle.Status = ReconcileCycleStatusSuccess
	case cycle.OrdersRecovered == cycle.OrdersRetried && cycle.CacheRefreshed:
		cycle.Status = ReconcileCycleStatusSuccess
	case cycle.OrdersRecovered > 0 || cycle.CacheRefreshed:
		cycle.Status = ReconcileCycleStatusPartial
	default:
		cycle.Status = ReconcileCycleStatusFailed
	}

	s.logger.Info("Reconciliation cycle finished",
		zap.String("status", string(cycle.Status)),
		zap.Int("retried", cycle.OrdersRetried),
		zap.Int("recovered", cycle.OrdersRecovered),
	)
	s.recordCycle(cycle)
	return cycle
}

// recordCycle appends a cycle to the bounded history
func (s *ReconcileScheduler) recordCycle(cycle ReconcileCycle) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append(s.history, cycle)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

// History returns recent reconciliation cycles, newest last
func (s *ReconcileScheduler) History() []ReconcileCycle {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	out := make([]ReconcileCycle, len(s.history))
	copy(out, s.history)
	return out
}
