package daemon

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/windvault/windvault/internal/db"
	"github.com/windvault/windvault/internal/models"
)

const unknownStaffName = "unknown"

// OrderLedger owns the order lifecycle: creation with a window allocation
// snapshot, pause/resume with execution-history accrual, completion with loss
// computation and per-window balance write-back, and deletion.
//
// Completion touches multiple resources without a transaction: the order row
// is updated first, then each window balance is written back best-effort. A
// failing window write neither blocks the others nor rolls the order back;
// the failures are reported wrapped in ErrPartialWriteback.
type OrderLedger struct {
	store    *db.Store
	registry *WindowRegistry
	logger   *log.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewOrderLedger builds a ledger with defaults.
func NewOrderLedger(store *db.Store, registry *WindowRegistry, logger *log.Logger) *OrderLedger {
	if logger == nil {
		logger = log.Default()
	}
	return &OrderLedger{
		store:    store,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// WithMetrics wires optional Prometheus metrics.
func (l *OrderLedger) WithMetrics(metrics *Metrics) *OrderLedger {
	if l == nil {
		return l
	}
	l.metrics = metrics
	return l
}

// Create persists a pending order with its immutable window snapshots. The
// snapshots record which windows were earmarked and their balances at
// creation; completion uses them to anchor consumption deltas.
func (l *OrderLedger) Create(ctx context.Context, tenantID, staffID string, amount float64, date time.Time, snapshots []models.WindowSnapshot) (models.Order, error) {
	if l == nil || l.store == nil {
		return models.Order{}, errors.New("order ledger not configured")
	}
	if strings.TrimSpace(staffID) == "" {
		return models.Order{}, errors.New("staff id is required")
	}
	if amount <= 0 {
		return models.Order{}, errors.New("order amount must be positive")
	}
	now := l.now().UTC()
	if date.IsZero() {
		date = now
	}
	order := models.Order{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		StaffID:         staffID,
		Amount:          amount,
		Date:            date,
		Status:          models.OrderPending,
		RemainingAmount: amount,
		Snapshots:       snapshots,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := l.store.CreateOrder(ctx, order); err != nil {
		return models.Order{}, err
	}
	if l.metrics != nil {
		l.metrics.ObserveOrderTransition("", models.OrderPending)
	}
	l.recordEvent(ctx, tenantID, "order.created", order.ID, map[string]any{"amount": amount, "windows": len(snapshots)})
	return order, nil
}

// Complete settles an order: computes total consumption and loss, appends the
// final execution segment, marks the order completed, and writes each
// window's end balance back through the registry.
//
// Hard precondition: the order must exist (ErrOrderNotFound). An order
// without window snapshots is a deliberate no-op (ErrNoWindowSnapshots).
func (l *OrderLedger) Complete(ctx context.Context, tenantID, orderID string, results []models.WindowResult) (models.Order, error) {
	if l == nil || l.store == nil {
		return models.Order{}, errors.New("order ledger not configured")
	}
	order, err := l.loadOrder(ctx, tenantID, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.Status == models.OrderCompleted {
		return order, fmt.Errorf("%w: %s", ErrOrderCompleted, orderID)
	}
	if len(order.Snapshots) == 0 {
		return order, fmt.Errorf("%w: %s", ErrNoWindowSnapshots, orderID)
	}

	now := l.now().UTC()
	totalConsumed := lo.SumBy(results, func(res models.WindowResult) int64 { return res.Consumed })
	amountCoins := order.AmountCoins()
	loss := totalConsumed - amountCoins
	if loss < 0 {
		loss = 0
	}

	// Delivered-this-segment: whatever of the order amount earlier segments
	// have not already covered. A non-positive delta means prior segments
	// delivered everything, so no entry is appended.
	delivered := order.DeliveredAmount()
	segment := order.Amount - delivered
	if segment > 0 {
		order.History = append(order.History, models.ExecutionEntry{
			StaffID:   order.StaffID,
			StaffName: l.staffName(ctx, tenantID, order.StaffID),
			Amount:    segment,
			StartTime: segmentStart(order, now),
			EndTime:   now,
		})
	}

	prev := order.Status
	order.Status = models.OrderCompleted
	order.Results = results
	order.TotalConsumed = totalConsumed
	order.Loss = loss
	order.CompletedAmount = order.Amount
	order.RemainingAmount = 0
	ok, err := l.store.UpdateOrder(ctx, order)
	if err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if l.metrics != nil {
		l.metrics.ObserveOrderTransition(prev, models.OrderCompleted)
		l.metrics.ObserveLoss(loss)
	}
	l.recordEvent(ctx, tenantID, "order.completed", orderID, map[string]any{"total_consumed": totalConsumed, "loss": loss})

	// Best-effort balance write-back, one window at a time. Failures are
	// collected and reported; the completed order row stands either way.
	var failures []error
	for _, res := range results {
		if err := l.registry.SetBalance(ctx, tenantID, res.WindowID, res.EndBalance); err != nil {
			l.logger.Printf("ledger: order=%s write back window=%s: %v", orderID, res.WindowID, err)
			failures = append(failures, fmt.Errorf("window %s: %w", res.WindowID, err))
		}
	}
	if len(failures) > 0 {
		return order, fmt.Errorf("%w: %w", ErrPartialWriteback, errors.Join(failures...))
	}
	return order, nil
}

// Pause suspends a pending order, recording cumulative progress. The segment
// amount is the delta against prior history; if the delta is non-positive
// (clock skew, out-of-order reporting) the reported completedAmount is used
// as a fallback so forward progress is still captured.
func (l *OrderLedger) Pause(ctx context.Context, tenantID, orderID string, completedAmount float64) (models.Order, error) {
	if l == nil || l.store == nil {
		return models.Order{}, errors.New("order ledger not configured")
	}
	order, err := l.loadOrder(ctx, tenantID, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.Status == models.OrderCompleted {
		return order, fmt.Errorf("%w: %s", ErrOrderCompleted, orderID)
	}
	if completedAmount < 0 {
		return order, errors.New("completed amount must not be negative")
	}

	now := l.now().UTC()
	segment := completedAmount - order.DeliveredAmount()
	if segment <= 0 {
		segment = completedAmount
	}
	order.History = append(order.History, models.ExecutionEntry{
		StaffID:   order.StaffID,
		StaffName: l.staffName(ctx, tenantID, order.StaffID),
		Amount:    segment,
		StartTime: segmentStart(order, now),
		EndTime:   now,
	})
	prev := order.Status
	order.Status = models.OrderPaused
	order.CompletedAmount = completedAmount
	ok, err := l.store.UpdateOrder(ctx, order)
	if err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if l.metrics != nil {
		l.metrics.ObserveOrderTransition(prev, models.OrderPaused)
	}
	l.recordEvent(ctx, tenantID, "order.paused", orderID, map[string]any{"completed_amount": completedAmount})
	return order, nil
}

// Resume returns a paused order to pending. A newStaffID different from the
// current assignee reassigns the order and recomputes the remaining amount
// from the recorded progress. Pass "" to keep the current staff.
func (l *OrderLedger) Resume(ctx context.Context, tenantID, orderID, newStaffID string) (models.Order, error) {
	if l == nil || l.store == nil {
		return models.Order{}, errors.New("order ledger not configured")
	}
	order, err := l.loadOrder(ctx, tenantID, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if order.Status == models.OrderCompleted {
		return order, fmt.Errorf("%w: %s", ErrOrderCompleted, orderID)
	}
	prev := order.Status
	order.Status = models.OrderPending
	newStaffID = strings.TrimSpace(newStaffID)
	if newStaffID != "" && newStaffID != order.StaffID {
		order.StaffID = newStaffID
		order.RemainingAmount = order.Amount - order.CompletedAmount
	}
	ok, err := l.store.UpdateOrder(ctx, order)
	if err != nil {
		return models.Order{}, err
	}
	if !ok {
		return models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if l.metrics != nil {
		l.metrics.ObserveOrderTransition(prev, models.OrderPending)
	}
	l.recordEvent(ctx, tenantID, "order.resumed", orderID, map[string]any{"staff_id": order.StaffID})
	return order, nil
}

// Delete removes an order unconditionally. Windows referenced by it are not
// touched; they return to the pool by being unreferenced.
func (l *OrderLedger) Delete(ctx context.Context, tenantID, orderID string) error {
	if l == nil || l.store == nil {
		return errors.New("order ledger not configured")
	}
	ok, err := l.store.DeleteOrder(ctx, tenantID, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	l.recordEvent(ctx, tenantID, "order.deleted", orderID, nil)
	return nil
}

func (l *OrderLedger) loadOrder(ctx context.Context, tenantID, orderID string) (models.Order, error) {
	order, err := l.store.GetOrder(ctx, tenantID, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return order, nil
}

// staffName resolves the display name for a history snapshot. A failed
// lookup degrades to a placeholder rather than failing the operation.
func (l *OrderLedger) staffName(ctx context.Context, tenantID, staffID string) string {
	staff, err := l.store.GetStaff(ctx, tenantID, staffID)
	if err != nil {
		return unknownStaffName
	}
	return staff.Name
}

// segmentStart anchors the first segment at the order date and later
// segments at the current time.
func segmentStart(order models.Order, now time.Time) time.Time {
	if len(order.History) > 0 {
		return now
	}
	return order.Date
}

func (l *OrderLedger) recordEvent(ctx context.Context, tenantID, kind, orderID string, payload map[string]any) {
	var jsonPayload string
	if len(payload) > 0 {
		if data, err := json.Marshal(payload); err == nil {
			jsonPayload = string(data)
		}
	}
	if err := l.store.RecordEvent(ctx, tenantID, kind, nil, &orderID, "", jsonPayload); err != nil {
		l.logger.Printf("ledger: record event %s: %v", kind, err)
	}
}
