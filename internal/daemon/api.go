package daemon

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/windvault/windvault/internal/buildinfo"
	"github.com/windvault/windvault/internal/db"
	"github.com/windvault/windvault/internal/models"
)

const (
	maxJSONBytes      = 1 << 20 // Maximum size for JSON request bodies (1MB)
	defaultEventLimit = 100     // Default events returned per query
	maxEventLimit     = 1000    // Maximum events allowed per query
)

// ControlAPI handles local control plane HTTP requests over the Unix socket.
//
// It provides the v1 API for managing windows, orders, and requests. The API
// is served over a Unix socket and is used by the windvault CLI. Every request
// is scoped to the tenant of the authenticated caller.
//
// Endpoints:
//   - GET    /v1/status                  - Control plane status summary
//   - GET    /v1/orders                  - List orders
//   - POST   /v1/orders                  - Create an order
//   - GET    /v1/orders/{id}             - Get order details
//   - DELETE /v1/orders/{id}             - Delete an order (admin)
//   - POST   /v1/orders/{id}/complete    - Complete an order
//   - POST   /v1/orders/{id}/pause       - Pause an order
//   - POST   /v1/orders/{id}/resume      - Resume a paused order
//   - GET    /v1/windows                 - List windows
//   - GET    /v1/windows/{id}            - Get window details
//   - POST   /v1/windows/{id}/assign     - Assign or release a window (admin)
//   - POST   /v1/windows/{id}/recharge   - Recharge a window balance (admin)
//   - GET    /v1/machines                - List machines with window counts
//   - POST   /v1/machines                - Batch-purchase a machine (admin)
//   - DELETE /v1/machines/{id}           - Delete a machine and its windows (admin)
//   - GET    /v1/requests                - List window requests
//   - POST   /v1/requests                - Submit a window request
//   - POST   /v1/requests/{id}/process   - Approve or reject a request (admin)
//   - GET    /v1/staff                   - List staff
//   - POST   /v1/staff                   - Create a staff member (admin)
//   - DELETE /v1/staff/{id}              - Delete a staff member (admin)
//   - GET    /v1/purchases               - List purchase records
//   - GET    /v1/settings                - Get tenant settings
//   - PUT    /v1/settings                - Update tenant settings (admin)
//   - GET    /v1/events                  - List recent events
//   - POST   /v1/sync/reload             - Force a sync reload
type ControlAPI struct {
	store          *db.Store
	registry       *WindowRegistry
	ledger         *OrderLedger
	arbiter        *RequestArbiter
	syncer         *Syncer
	metrics        *Metrics
	metricsEnabled bool
	logger         *log.Logger
	now            func() time.Time
}

// NewControlAPI creates a new control API instance.
func NewControlAPI(store *db.Store, registry *WindowRegistry, ledger *OrderLedger, arbiter *RequestArbiter, syncer *Syncer, logger *log.Logger) *ControlAPI {
	if logger == nil {
		logger = log.Default()
	}
	return &ControlAPI{
		store:    store,
		registry: registry,
		ledger:   ledger,
		arbiter:  arbiter,
		syncer:   syncer,
		logger:   logger,
		now:      time.Now,
	}
}

// WithMetrics wires optional Prometheus metrics into the API.
func (api *ControlAPI) WithMetrics(metrics *Metrics) *ControlAPI {
	if api == nil {
		return api
	}
	api.metrics = metrics
	api.metricsEnabled = metrics != nil
	return api
}

// Register registers all control API handlers on the mux.
func (api *ControlAPI) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/v1/status", api.handleStatus)
	mux.HandleFunc("/v1/orders", api.handleOrders)
	mux.HandleFunc("/v1/orders/", api.handleOrderByID)
	mux.HandleFunc("/v1/windows", api.handleWindows)
	mux.HandleFunc("/v1/windows/", api.handleWindowByID)
	mux.HandleFunc("/v1/machines", api.handleMachines)
	mux.HandleFunc("/v1/machines/", api.handleMachineByID)
	mux.HandleFunc("/v1/requests", api.handleRequests)
	mux.HandleFunc("/v1/requests/", api.handleRequestByID)
	mux.HandleFunc("/v1/staff", api.handleStaff)
	mux.HandleFunc("/v1/staff/", api.handleStaffByID)
	mux.HandleFunc("/v1/purchases", api.handlePurchases)
	mux.HandleFunc("/v1/settings", api.handleSettings)
	mux.HandleFunc("/v1/events", api.handleEvents)
	mux.HandleFunc("/v1/sync/reload", api.handleSyncReload)
}

func (api *ControlAPI) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "identity is required")
		return "", false
	}
	return id.TenantID, true
}

func (api *ControlAPI) adminIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "identity is required")
		return "", false
	}
	if !id.Admin() {
		writeError(w, http.StatusForbidden, "admin role is required")
		return "", false
	}
	return id.TenantID, true
}

func (api *ControlAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	counts, err := api.store.CountOrdersByStatus(ctx, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "count orders", err)
		return
	}
	orders := map[string]int{}
	for status, n := range counts {
		orders[string(status)] = n
	}

	windows, err := api.store.ListWindows(ctx, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list windows", err)
		return
	}
	assigned := lo.CountBy(windows, func(win models.CloudWindow) bool { return win.UserID != nil })

	pending, err := api.store.ListRequests(ctx, tenantID, models.RequestPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list requests", err)
		return
	}

	resp := V1StatusResponse{
		Tenant: tenantID,
		Orders: orders,
		Windows: V1WindowCounts{
			Total:    len(windows),
			Assigned: assigned,
			Free:     len(windows) - assigned,
		},
		Requests: len(pending),
		Metrics:  api.metricsEnabled,
		Version:  buildinfo.Version,
	}
	if api.syncer != nil && api.syncer.Tenant() == tenantID {
		snapshot := api.syncer.Snapshot()
		if !snapshot.LastSync.IsZero() {
			resp.LastSync = snapshot.LastSync.Format(time.RFC3339Nano)
		}
		resp.SyncStale = snapshot.Partial
	}
	writeJSON(w, http.StatusOK, resp)
}

func (api *ControlAPI) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.handleOrderList(w, r)
	case http.MethodPost:
		api.handleOrderCreate(w, r)
	default:
		writeMethodNotAllowed(w, []string{http.MethodGet, http.MethodPost})
	}
}

func (api *ControlAPI) handleOrderList(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	orders, err := api.store.ListOrders(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(orders, func(order models.Order, _ int) V1Order {
		return toV1Order(order)
	}))
}

func (api *ControlAPI) handleOrderCreate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	var req V1OrderCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.StaffID == "" {
		writeError(w, http.StatusBadRequest, "staff_id is required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date", err)
			return
		}
		date = parsed
	}
	order, err := api.ledger.Create(r.Context(), tenantID, req.StaffID, req.Amount, date, req.Snapshots)
	if err != nil {
		api.writeDomainError(w, "create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toV1Order(order))
}

func (api *ControlAPI) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/v1/orders/")
	parts := strings.Split(strings.Trim(tail, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	orderID := parts[0]

	switch len(parts) {
	case 1:
		switch r.Method {
		case http.MethodGet:
			api.handleOrderGet(w, r, orderID)
		case http.MethodDelete:
			api.handleOrderDelete(w, r, orderID)
		default:
			writeMethodNotAllowed(w, []string{http.MethodGet, http.MethodDelete})
		}
	case 2:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, []string{http.MethodPost})
			return
		}
		switch parts[1] {
		case "complete":
			api.handleOrderComplete(w, r, orderID)
		case "pause":
			api.handleOrderPause(w, r, orderID)
		case "resume":
			api.handleOrderResume(w, r, orderID)
		default:
			writeError(w, http.StatusNotFound, "unknown order action")
		}
	default:
		writeError(w, http.StatusNotFound, "unknown order path")
	}
}

func (api *ControlAPI) handleOrderGet(w http.ResponseWriter, r *http.Request, orderID string) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	order, err := api.store.GetOrder(r.Context(), tenantID, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toV1Order(order))
}

func (api *ControlAPI) handleOrderDelete(w http.ResponseWriter, r *http.Request, orderID string) {
	tenantID, ok := api.adminIdentity(w, r)
	if !ok {
		return
	}
	if err := api.ledger.Delete(r.Context(), tenantID, orderID); err != nil {
		api.writeDomainError(w, "delete order", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (api *ControlAPI) handleOrderComplete(w http.ResponseWriter, r *http.Request, orderID string) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	var req V1OrderCompleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	order, err := api.ledger.Complete(r.Context(), tenantID, orderID, req.Results)
	if err != nil && !errors.Is(err, ErrPartialWriteback) {
		api.writeDomainError(w, "complete order", err)
		return
	}
	if errors.Is(err, ErrPartialWriteback) {
		// The order is completed; some window balances failed to write back.
		api.logger.Printf("complete order %s: %v", orderID, err)
	}
	writeJSON(w, http.StatusOK, toV1Order(order))
}

func (api *ControlAPI) handleOrderPause(w http.ResponseWriter, r *http.Request, orderID string) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	var req V1OrderPauseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	order, err := api.ledger.Pause(r.Context(), tenantID, orderID, req.CompletedAmount)
	if err != nil {
		api.writeDomainError(w, "pause order", err)
		return
	}
	writeJSON(w, http.StatusOK, toV1Order(order))
}

func (api *ControlAPI) handleOrderResume(w http.ResponseWriter, r *http.Request, orderID string) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	var req V1OrderResumeRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	order, err := api.ledger.Resume(r.Context(), tenantID, orderID, req.StaffID)
	if err != nil {
		api.writeDomainError(w, "resume order", err)
		return
	}
	writeJSON(w, http.StatusOK, toV1Order(order))
}

func (api *ControlAPI) handleWindows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	var (
		windows []models.CloudWindow
		err     error
	)
	if machineID := r.URL.Query().Get("machine_id"); machineID != "" {
		windows, err = api.store.ListWindowsByMachine(r.Context(), tenantID, machineID)
	} else {
		windows, err = api.store.ListWindows(r.Context(), tenantID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list windows", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(windows, func(win models.CloudWindow, _ int) V1Window {
		return toV1Window(win)
	}))
}

func (api *ControlAPI) handleWindowByID(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/v1/windows/")
	parts := strings.Split(strings.Trim(tail, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "window not found")
		return
	}
	windowID := parts[0]

	switch len(parts) {
	case 1:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, []string{http.MethodGet})
			return
		}
		api.handleWindowGet(w, r, windowID)
	case 2:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, []string{http.MethodPost})
			return
		}
		switch parts[1] {
		case "assign":
			api.handleWindowAssign(w, r, windowID)
		case "recharge":
			api.handleWindowRecharge(w, r, windowID)
		default:
			writeError(w, http.StatusNotFound, "unknown window action")
		}
	default:
		writeError(w, http.StatusNotFound, "unknown window path")
	}
}

func (api *ControlAPI) handleWindowGet(w http.ResponseWriter, r *http.Request, windowID string) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	win, err := api.store.GetWindow(r.Context(), tenantID, windowID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "window not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get window", err)
		return
	}
	writeJSON(w, http.StatusOK, toV1Window(win))
}

func (api *ControlAPI) handleWindowAssign(w http.ResponseWriter, r *http.Request, windowID string) {
	tenantID, ok := api.adminIdentity(w, r)
	if !ok {
		return
	}
	var req V1WindowAssignRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	var staffID *string
	if req.StaffID != "" {
		staffID = &req.StaffID
	}
	win, err := api.registry.Assign(r.Context(), tenantID, windowID, staffID)
	if err != nil {
		api.writeDomainError(w, "assign window", err)
		return
	}
	writeJSON(w, http.StatusOK, toV1Window(win))
}

func (api *ControlAPI) handleWindowRecharge(w http.ResponseWriter, r *http.Request, windowID string) {
	tenantID, ok := api.adminIdentity(w, r)
	if !ok {
		return
	}
	var req V1WindowRechargeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	win, err := api.registry.Recharge(r.Context(), tenantID, windowID, req.Delta)
	if err != nil {
		api.writeDomainError(w, "recharge window", err)
		return
	}
	writeJSON(w, http.StatusOK, toV1Window(win))
}

func (api *ControlAPI) handleMachines(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.handleMachineList(w, r)
	case http.MethodPost:
		api.handleMachinePurchase(w, r)
	default:
		writeMethodNotAllowed(w, []string{http.MethodGet, http.MethodPost})
	}
}

func (api *ControlAPI) handleMachineList(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	machines, err := api.store.ListMachines(ctx, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list machines", err)
		return
	}
	windows, err := api.store.ListWindows(ctx, tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list windows", err)
		return
	}
	byMachine := lo.CountValuesBy(windows, func(win models.CloudWindow) string { return win.MachineID })
	writeJSON(w, http.StatusOK, lo.Map(machines, func(machine models.CloudMachine, _ int) V1Machine {
		return toV1Machine(machine, byMachine[machine.ID])
	}))
}

func (api *ControlAPI) handleMachinePurchase(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := api.adminIdentity(w, r)
	if !ok {
		return
	}
	var req V1MachinePurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	result, err := api.registry.PurchaseBatch(r.Context(), tenantID, BatchPurchaseRequest{
		MachineName:    req.Name,
		Provider:       req.Provider,
		WindowCount:    req.WindowCount,
		InitialBalance: req.InitialBalance,
		Cost:           req.Cost,
		Note:           req.Note,
	})
	if err != nil {
		api.writeDomainError(w, "purchase machine", err)
		return
	}
	writeJSON(w, http.StatusCreated, V1MachinePurchaseResponse{
		Machine:   toV1Machine(result.Machine, len(result.WindowIDs)),
		WindowIDs: result.WindowIDs,
	})
}

func (api *ControlAPI) handleMachineByID(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/v1/machines/")
	machineID := strings.Trim(tail, "/")
	if machineID == "" || strings.Contains(machineID, "/") {
		writeError(w, http.StatusNotFound, "machine not found")
		return
	}
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w, []string{http.MethodDelete})
		return
	}
	tenantID, ok := api.adminIdentity(w, r)
	if !ok {
		return
	}
	removed, err := api.registry.DeleteCascade(r.Context(), tenantID, machineID)
	if err != nil {
		api.writeDomainError(w, "delete machine", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "windows_removed": removed})
}

func (api *ControlAPI) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.handleRequestList(w, r)
	case http.MethodPost:
		api.handleRequestSubmit(w, r)
	default:
		writeMethodNotAllowed(w, []string{http.MethodGet, http.MethodPost})
	}
}

func (api *ControlAPI) handleRequestList(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	status := models.RequestStatus(strings.ToUpper(r.URL.Query().Get("status")))
	requests, err := api.store.ListRequests(r.Context(), tenantID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(requests, func(req models.WindowRequest, _ int) V1Request {
		return toV1Request(req)
	}))
}

func (api *ControlAPI) handleRequestSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "identity is required")
		return
	}
	var req V1RequestSubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	var windowID *string
	if req.WindowID != "" {
		windowID = &req.WindowID
	}
	request, err := api.arbiter.Submit(r.Context(), id.TenantID, id.Subject, "", models.RequestType(strings.ToUpper(req.Type)), windowID)
	if err != nil {
		api.writeDomainError(w, "submit request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toV1Request(request))
}

func (api *ControlAPI) handleRequestByID(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/v1/requests/")
	parts := strings.Split(strings.Trim(tail, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "process" {
		writeError(w, http.StatusNotFound, "unknown request path")
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, []string{http.MethodPost})
		return
	}
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "identity is required")
		return
	}
	if !id.Admin() {
		writeError(w, http.StatusForbidden, "admin role is required")
		return
	}
	var req V1RequestProcessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	request, err := api.arbiter.Process(r.Context(), id.TenantID, parts[0], req.Approved, id.Subject)
	if err != nil {
		api.writeDomainError(w, "process request", err)
		return
	}
	writeJSON(w, http.StatusOK, toV1Request(request))
}

func (api *ControlAPI) handleStaff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.handleStaffList(w, r)
	case http.MethodPost:
		api.handleStaffCreate(w, r)
	default:
		writeMethodNotAllowed(w, []string{http.MethodGet, http.MethodPost})
	}
}

func (api *ControlAPI) handleStaffList(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	staff, err := api.store.ListStaff(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list staff", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(staff, func(member models.Staff, _ int) V1Staff {
		return V1Staff{ID: member.ID, Name: member.Name, CreatedAt: member.CreatedAt.Format(time.RFC3339Nano)}
	}))
}

func (api *ControlAPI) handleStaffCreate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := api.adminIdentity(w, r)
	if !ok {
		return
	}
	var req V1StaffCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	member := models.Staff{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: api.now().UTC(),
	}
	if err := api.store.CreateStaff(r.Context(), member); err != nil {
		writeError(w, http.StatusInternalServerError, "create staff", err)
		return
	}
	writeJSON(w, http.StatusCreated, V1Staff{ID: member.ID, Name: member.Name, CreatedAt: member.CreatedAt.Format(time.RFC3339Nano)})
}

func (api *ControlAPI) handleStaffByID(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/v1/staff/")
	staffID := strings.Trim(tail, "/")
	if staffID == "" || strings.Contains(staffID, "/") {
		writeError(w, http.StatusNotFound, "staff not found")
		return
	}
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w, []string{http.MethodDelete})
		return
	}
	tenantID, ok := api.adminIdentity(w, r)
	if !ok {
		return
	}
	deleted, err := api.store.DeleteStaff(r.Context(), tenantID, staffID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete staff", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "staff not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (api *ControlAPI) handlePurchases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	purchases, err := api.store.ListPurchases(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list purchases", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(purchases, func(purchase models.Purchase, _ int) V1Purchase {
		return V1Purchase{
			ID:        purchase.ID,
			MachineID: purchase.MachineID,
			Quantity:  purchase.Quantity,
			Cost:      purchase.Cost,
			Note:      purchase.Note,
			CreatedAt: purchase.CreatedAt.Format(time.RFC3339Nano),
		}
	}))
}

func (api *ControlAPI) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.handleSettingsGet(w, r)
	case http.MethodPut:
		api.handleSettingsPut(w, r)
	default:
		writeMethodNotAllowed(w, []string{http.MethodGet, http.MethodPut})
	}
}

func (api *ControlAPI) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	settings, err := api.store.GetSettings(r.Context(), tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusOK, V1Settings{})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, V1Settings{
		GoldRate:    settings.GoldRate,
		WindowPrice: settings.WindowPrice,
		UpdatedAt:   settings.UpdatedAt.Format(time.RFC3339Nano),
	})
}

func (api *ControlAPI) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := api.adminIdentity(w, r)
	if !ok {
		return
	}
	var req V1Settings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.GoldRate < 0 || req.WindowPrice < 0 {
		writeError(w, http.StatusBadRequest, "rates must not be negative")
		return
	}
	settings := models.Settings{
		TenantID:    tenantID,
		GoldRate:    req.GoldRate,
		WindowPrice: req.WindowPrice,
		UpdatedAt:   api.now().UTC(),
	}
	if err := api.store.UpsertSettings(r.Context(), settings); err != nil {
		writeError(w, http.StatusInternalServerError, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, V1Settings{
		GoldRate:    settings.GoldRate,
		WindowPrice: settings.WindowPrice,
		UpdatedAt:   settings.UpdatedAt.Format(time.RFC3339Nano),
	})
}

func (api *ControlAPI) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, []string{http.MethodGet})
		return
	}
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	events, err := api.store.ListEvents(r.Context(), tenantID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(events, func(event db.Event, _ int) V1Event {
		return V1Event{
			ID:       event.ID,
			TS:       event.TS.Format(time.RFC3339Nano),
			Kind:     event.Kind,
			WindowID: event.WindowID,
			OrderID:  event.OrderID,
			Msg:      event.Msg,
			JSON:     event.JSON,
		}
	}))
}

func (api *ControlAPI) handleSyncReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, []string{http.MethodPost})
		return
	}
	tenantID, ok := api.identity(w, r)
	if !ok {
		return
	}
	if api.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, "sync is not enabled")
		return
	}
	if api.syncer.Tenant() != tenantID {
		api.syncer.SetTenant(r.Context(), tenantID)
	} else {
		api.syncer.Reload(r.Context())
	}
	snapshot := api.syncer.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant":    snapshot.TenantID,
		"last_sync": snapshot.LastSync.Format(time.RFC3339Nano),
		"partial":   snapshot.Partial,
	})
}

// writeDomainError maps manager errors to HTTP statuses.
func (api *ControlAPI) writeDomainError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrWindowNotFound),
		errors.Is(err, ErrMachineNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrRequestNotFound),
		errors.Is(err, ErrStaffNotFound):
		writeError(w, http.StatusNotFound, msg, err)
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrNoWindowSnapshots),
		errors.Is(err, ErrOrderCompleted):
		writeError(w, http.StatusConflict, msg, err)
	default:
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}

func toV1Order(order models.Order) V1Order {
	return V1Order{
		ID:              order.ID,
		StaffID:         order.StaffID,
		Amount:          order.Amount,
		Date:            order.Date.Format(time.RFC3339Nano),
		Status:          string(order.Status),
		CompletedAmount: order.CompletedAmount,
		RemainingAmount: order.RemainingAmount,
		Snapshots:       order.Snapshots,
		Results:         order.Results,
		History: lo.Map(order.History, func(entry models.ExecutionEntry, _ int) V1ExecutionEntry {
			return V1ExecutionEntry{
				StaffID:   entry.StaffID,
				StaffName: entry.StaffName,
				Amount:    entry.Amount,
				StartTime: entry.StartTime.Format(time.RFC3339Nano),
				EndTime:   entry.EndTime.Format(time.RFC3339Nano),
			}
		}),
		TotalConsumed: order.TotalConsumed,
		Loss:          order.Loss,
		CreatedAt:     order.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:     order.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func toV1Window(win models.CloudWindow) V1Window {
	return V1Window{
		ID:           win.ID,
		MachineID:    win.MachineID,
		WindowNumber: win.WindowNumber,
		GoldBalance:  win.GoldBalance,
		UserID:       win.Assignee(),
		CreatedAt:    win.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:    win.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func toV1Machine(machine models.CloudMachine, windows int) V1Machine {
	return V1Machine{
		ID:        machine.ID,
		Name:      machine.Name,
		Provider:  machine.Provider,
		Windows:   windows,
		CreatedAt: machine.CreatedAt.Format(time.RFC3339Nano),
	}
}

func toV1Request(request models.WindowRequest) V1Request {
	out := V1Request{
		ID:        request.ID,
		StaffID:   request.StaffID,
		StaffName: request.StaffName,
		Type:      string(request.Type),
		Status:    string(request.Status),
		CreatedAt: request.CreatedAt.Format(time.RFC3339Nano),
	}
	if request.WindowID != nil {
		out.WindowID = *request.WindowID
	}
	if !request.ProcessedAt.IsZero() {
		out.ProcessedAt = request.ProcessedAt.Format(time.RFC3339Nano)
	}
	if request.ProcessedBy != "" {
		out.ProcessedBy = request.ProcessedBy
	}
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("unexpected trailing data")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string, err ...error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	payload := map[string]string{"error": msg}
	if len(err) > 0 {
		payload["details"] = err[0].Error()
	}
	data, _ := json.Marshal(payload)
	w.Write(data)
}

func writeMethodNotAllowed(w http.ResponseWriter, methods []string) {
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
