package daemon

import (
	"context"
	"database/sql"
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

// WindowRegistry arbitrates window assignment and balance mutation.
//
// All writes go through the store; the syncer's cached snapshot observes them
// on its next cycle. Multi-row sequences (batch purchase, cascade delete) are
// not transactional: a failure partway leaves the rows written so far in
// place, and the returned error names the sub-step that failed.
type WindowRegistry struct {
	store   *db.Store
	logger  *log.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewWindowRegistry builds a registry with defaults.
func NewWindowRegistry(store *db.Store, logger *log.Logger) *WindowRegistry {
	if logger == nil {
		logger = log.Default()
	}
	return &WindowRegistry{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithMetrics wires optional Prometheus metrics.
func (r *WindowRegistry) WithMetrics(metrics *Metrics) *WindowRegistry {
	if r == nil {
		return r
	}
	r.metrics = metrics
	return r
}

// Assign sets or clears the window's holder. Passing nil staffID releases the
// window. Assigning to the staff member who already holds the window is
// idempotent. Otherwise the holder is overwritten unconditionally: last write
// wins, there is no version check against a concurrent assignment.
func (r *WindowRegistry) Assign(ctx context.Context, tenantID, windowID string, staffID *string) (models.CloudWindow, error) {
	if r == nil || r.store == nil {
		return models.CloudWindow{}, errors.New("window registry not configured")
	}
	window, err := r.store.GetWindow(ctx, tenantID, windowID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CloudWindow{}, fmt.Errorf("%w: %s", ErrWindowNotFound, windowID)
	}
	if err != nil {
		return models.CloudWindow{}, fmt.Errorf("load window %s: %w", windowID, err)
	}
	requested := ""
	if staffID != nil {
		requested = strings.TrimSpace(*staffID)
	}
	if window.Assignee() == requested {
		return window, nil
	}
	var user *string
	if requested != "" {
		user = &requested
	}
	ok, err := r.store.UpdateWindowAssignment(ctx, tenantID, windowID, user)
	if err != nil {
		return models.CloudWindow{}, err
	}
	if !ok {
		return models.CloudWindow{}, fmt.Errorf("%w: %s", ErrWindowNotFound, windowID)
	}
	action := "assign"
	if user == nil {
		action = "release"
	}
	if r.metrics != nil {
		r.metrics.ObserveAssignment(action)
	}
	r.logger.Printf("registry: %s window=%s staff=%q", action, windowID, requested)
	window.UserID = user
	return window, nil
}

// Recharge applies a signed delta to the window's gold balance. Deltas that
// would drive the balance negative are rejected with ErrInsufficientBalance;
// gold quantities are non-negative by the numeric model.
func (r *WindowRegistry) Recharge(ctx context.Context, tenantID, windowID string, delta int64) (models.CloudWindow, error) {
	if r == nil || r.store == nil {
		return models.CloudWindow{}, errors.New("window registry not configured")
	}
	window, err := r.store.GetWindow(ctx, tenantID, windowID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CloudWindow{}, fmt.Errorf("%w: %s", ErrWindowNotFound, windowID)
	}
	if err != nil {
		return models.CloudWindow{}, fmt.Errorf("load window %s: %w", windowID, err)
	}
	if window.GoldBalance+delta < 0 {
		return models.CloudWindow{}, fmt.Errorf("%w: %s balance=%d delta=%d", ErrInsufficientBalance, windowID, window.GoldBalance, delta)
	}
	ok, err := r.store.AddWindowBalance(ctx, tenantID, windowID, delta)
	if err != nil {
		return models.CloudWindow{}, err
	}
	if !ok {
		return models.CloudWindow{}, fmt.Errorf("%w: %s", ErrWindowNotFound, windowID)
	}
	if r.metrics != nil {
		r.metrics.ObserveRecharge(delta)
	}
	window.GoldBalance += delta
	return window, nil
}

// SetBalance writes an absolute gold balance. Used by order completion to
// reconcile the final per-window balance.
func (r *WindowRegistry) SetBalance(ctx context.Context, tenantID, windowID string, value int64) error {
	if r == nil || r.store == nil {
		return errors.New("window registry not configured")
	}
	ok, err := r.store.UpdateWindowBalance(ctx, tenantID, windowID, value)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrWindowNotFound, windowID)
	}
	return nil
}

// BatchPurchaseRequest describes a machine purchase with its windows.
type BatchPurchaseRequest struct {
	MachineName string
	Provider    string
	WindowCount int
	// InitialBalance seeds each created window, in coins.
	InitialBalance int64
	Cost           float64
	Note           string
}

// BatchPurchaseResult reports what was created.
type BatchPurchaseResult struct {
	Machine   models.CloudMachine
	WindowIDs []string
	Purchase  models.Purchase
}

// PurchaseBatch creates one machine, its windows, and a purchase ledger row.
// The sequence is atomic in intent only: if a window insert fails, the
// machine and earlier windows stay, and the error names the failed step.
func (r *WindowRegistry) PurchaseBatch(ctx context.Context, tenantID string, req BatchPurchaseRequest) (BatchPurchaseResult, error) {
	if r == nil || r.store == nil {
		return BatchPurchaseResult{}, errors.New("window registry not configured")
	}
	if strings.TrimSpace(req.MachineName) == "" {
		return BatchPurchaseResult{}, errors.New("machine name is required")
	}
	if req.WindowCount <= 0 {
		return BatchPurchaseResult{}, errors.New("window count must be positive")
	}
	if req.InitialBalance < 0 {
		return BatchPurchaseResult{}, errors.New("initial balance must not be negative")
	}
	now := r.now().UTC()
	machine := models.CloudMachine{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      strings.TrimSpace(req.MachineName),
		Provider:  strings.TrimSpace(req.Provider),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.CreateMachine(ctx, machine); err != nil {
		return BatchPurchaseResult{}, fmt.Errorf("batch purchase: create machine: %w", err)
	}
	result := BatchPurchaseResult{Machine: machine}
	for i := 1; i <= req.WindowCount; i++ {
		window := models.CloudWindow{
			ID:           uuid.NewString(),
			TenantID:     tenantID,
			MachineID:    machine.ID,
			WindowNumber: i,
			GoldBalance:  req.InitialBalance,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.store.CreateWindow(ctx, window); err != nil {
			return result, fmt.Errorf("batch purchase: create window %d/%d: %w", i, req.WindowCount, err)
		}
		result.WindowIDs = append(result.WindowIDs, window.ID)
	}
	purchase := models.Purchase{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		MachineID: machine.ID,
		Quantity:  req.WindowCount,
		Cost:      req.Cost,
		Note:      req.Note,
		CreatedAt: now,
	}
	if err := r.store.CreatePurchase(ctx, purchase); err != nil {
		return result, fmt.Errorf("batch purchase: record purchase: %w", err)
	}
	result.Purchase = purchase
	r.logger.Printf("registry: purchased machine=%s windows=%d", machine.ID, req.WindowCount)
	return result, nil
}

// DeleteCascade deletes a machine and every window whose machineId matches.
// Per-window delete failures are tolerated: remaining windows are still
// attempted and the collected failures are returned, with no rollback of the
// machine delete.
func (r *WindowRegistry) DeleteCascade(ctx context.Context, tenantID, machineID string) (int, error) {
	if r == nil || r.store == nil {
		return 0, errors.New("window registry not configured")
	}
	windows, err := r.store.ListWindowsByMachine(ctx, tenantID, machineID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete: list windows: %w", err)
	}
	ok, err := r.store.DeleteMachine(ctx, tenantID, machineID)
	if err != nil {
		return 0, fmt.Errorf("cascade delete: delete machine: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMachineNotFound, machineID)
	}
	var failures []error
	for _, window := range windows {
		if _, err := r.store.DeleteWindow(ctx, tenantID, window.ID); err != nil {
			r.logger.Printf("registry: cascade delete machine=%s window=%s failed: %v", machineID, window.ID, err)
			failures = append(failures, fmt.Errorf("cascade delete: window %s: %w", window.ID, err))
		}
	}
	r.logger.Printf("registry: deleted machine=%s windows=%d failed=%d", machineID, len(windows), len(failures))
	return len(windows) - len(failures), errors.Join(failures...)
}

// AssignedWindows returns the windows currently held by a staff member.
func (r *WindowRegistry) AssignedWindows(ctx context.Context, tenantID, staffID string) ([]models.CloudWindow, error) {
	if r == nil || r.store == nil {
		return nil, errors.New("window registry not configured")
	}
	windows, err := r.store.ListWindows(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(windows, func(w models.CloudWindow, _ int) bool {
		return w.Assignee() == staffID
	}), nil
}
