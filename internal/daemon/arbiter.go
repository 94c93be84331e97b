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

	"github.com/windvault/windvault/internal/db"
	"github.com/windvault/windvault/internal/models"
)

// RequestArbiter turns staff apply/release requests into window registry
// mutations once an admin approves them.
//
// Processing is not guarded against double-processing: a second Process call
// re-stamps the decision fields and may re-apply the assignment side effect.
// Callers must treat Process as at-most-once.
type RequestArbiter struct {
	store    *db.Store
	registry *WindowRegistry
	logger   *log.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewRequestArbiter builds an arbiter with defaults.
func NewRequestArbiter(store *db.Store, registry *WindowRegistry, logger *log.Logger) *RequestArbiter {
	if logger == nil {
		logger = log.Default()
	}
	return &RequestArbiter{
		store:    store,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// WithMetrics wires optional Prometheus metrics.
func (a *RequestArbiter) WithMetrics(metrics *Metrics) *RequestArbiter {
	if a == nil {
		return a
	}
	a.metrics = metrics
	return a
}

// Submit creates a pending request. Apply requests usually carry a target
// window; release requests reference the window the staff member holds. The
// staff name is captured as an immutable snapshot at submission time; when
// the caller does not provide one it is resolved from the staff store,
// degrading to a placeholder.
func (a *RequestArbiter) Submit(ctx context.Context, tenantID, staffID, staffName string, reqType models.RequestType, windowID *string) (models.WindowRequest, error) {
	if a == nil || a.store == nil {
		return models.WindowRequest{}, errors.New("request arbiter not configured")
	}
	if strings.TrimSpace(staffID) == "" {
		return models.WindowRequest{}, errors.New("staff id is required")
	}
	if reqType != models.RequestApply && reqType != models.RequestRelease {
		return models.WindowRequest{}, fmt.Errorf("request type %q is invalid", reqType)
	}
	staffName = strings.TrimSpace(staffName)
	if staffName == "" {
		staff, err := a.store.GetStaff(ctx, tenantID, staffID)
		if err != nil {
			staffName = unknownStaffName
		} else {
			staffName = staff.Name
		}
	}
	var window *string
	if windowID != nil && strings.TrimSpace(*windowID) != "" {
		value := strings.TrimSpace(*windowID)
		window = &value
	}
	request := models.WindowRequest{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		StaffID:   staffID,
		StaffName: staffName,
		Type:      reqType,
		WindowID:  window,
		Status:    models.RequestPending,
		CreatedAt: a.now().UTC(),
	}
	if err := a.store.CreateRequest(ctx, request); err != nil {
		return models.WindowRequest{}, err
	}
	a.logger.Printf("arbiter: submitted request=%s type=%s staff=%s", request.ID, reqType, staffID)
	return request, nil
}

// Process stamps the admin decision and, on approval of a targeted request,
// applies the registry side effect: apply assigns the window to the
// requesting staff, release clears the assignment. An approval without a
// window id is recorded with no resource effect; the gap is logged and
// audited rather than silently fixed. Rejection never touches the registry.
func (a *RequestArbiter) Process(ctx context.Context, tenantID, requestID string, approved bool, adminID string) (models.WindowRequest, error) {
	if a == nil || a.store == nil {
		return models.WindowRequest{}, errors.New("request arbiter not configured")
	}
	request, err := a.store.GetRequest(ctx, tenantID, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WindowRequest{}, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if err != nil {
		return models.WindowRequest{}, fmt.Errorf("load request %s: %w", requestID, err)
	}

	decision := models.RequestRejected
	if approved {
		decision = models.RequestApproved
	}
	processedAt := a.now().UTC()
	ok, err := a.store.StampRequest(ctx, tenantID, requestID, decision, adminID, processedAt)
	if err != nil {
		return models.WindowRequest{}, err
	}
	if !ok {
		return models.WindowRequest{}, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	request.Status = decision
	request.ProcessedAt = processedAt
	request.ProcessedBy = adminID
	if a.metrics != nil {
		a.metrics.ObserveRequestDecision(request.Type, decision)
	}

	if !approved {
		a.recordEvent(ctx, tenantID, "request.rejected", request)
		return request, nil
	}
	if request.WindowID == nil {
		a.logger.Printf("arbiter: request=%s approved without window, no assignment applied", requestID)
		a.recordEvent(ctx, tenantID, "request.approved_untargeted", request)
		return request, nil
	}
	var assignee *string
	if request.Type == models.RequestApply {
		assignee = &request.StaffID
	}
	if _, err := a.registry.Assign(ctx, tenantID, *request.WindowID, assignee); err != nil {
		return request, fmt.Errorf("apply decision for request %s: %w", requestID, err)
	}
	a.recordEvent(ctx, tenantID, "request.approved", request)
	return request, nil
}

func (a *RequestArbiter) recordEvent(ctx context.Context, tenantID, kind string, request models.WindowRequest) {
	if err := a.store.RecordEvent(ctx, tenantID, kind, request.WindowID, nil, fmt.Sprintf("request=%s staff=%s type=%s", request.ID, request.StaffID, request.Type), ""); err != nil {
		a.logger.Printf("arbiter: record event %s: %v", kind, err)
	}
}
