package daemon

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/windvault/windvault/internal/db"
	"github.com/windvault/windvault/internal/models"
)

const defaultSyncInterval = 30 * time.Second

// TenantSnapshot is the cached view of one tenant's collections, replaced
// wholesale per collection on each sync cycle.
type TenantSnapshot struct {
	TenantID  string
	Machines  []models.CloudMachine
	Windows   []models.CloudWindow
	Orders    []models.Order
	Requests  []models.WindowRequest
	Purchases []models.Purchase
	Staff     []models.Staff
	LastSync  time.Time
	// Partial marks that at least one collection fetch failed on the last
	// cycle and its previous value was kept.
	Partial bool
}

// Syncer maintains the per-tenant cached snapshot by periodic full reload.
//
// Each collection is fetched independently: a failing fetch keeps the
// previously cached value in place rather than clearing it, preferring
// stale-but-available over empty-but-fresh. The snapshot is only ever
// replaced wholesale here; readers get copies and never mutate it.
type Syncer struct {
	store    *db.Store
	logger   *log.Logger
	metrics  *Metrics
	interval time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	tenantID string
	snapshot TenantSnapshot
	cancel   context.CancelFunc
}

// NewSyncer builds a syncer with defaults.
func NewSyncer(store *db.Store, logger *log.Logger, interval time.Duration) *Syncer {
	if logger == nil {
		logger = log.Default()
	}
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	return &Syncer{
		store:    store,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// WithMetrics wires optional Prometheus metrics.
func (s *Syncer) WithMetrics(metrics *Metrics) *Syncer {
	if s == nil {
		return s
	}
	s.metrics = metrics
	return s
}

// SetTenant switches the active tenant. A non-empty tenant triggers an eager
// reload and (re)starts the interval loop; an empty tenant clears all caches
// and halts the loop.
func (s *Syncer) SetTenant(ctx context.Context, tenantID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.tenantID = tenantID
	if tenantID == "" {
		s.snapshot = TenantSnapshot{}
		s.mu.Unlock()
		return
	}
	s.snapshot = TenantSnapshot{TenantID: tenantID}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.Reload(ctx)
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.Reload(loopCtx)
			}
		}
	}()
}

// Reload fetches all collections for the active tenant in parallel and
// replaces each cached collection only on success.
func (s *Syncer) Reload(ctx context.Context) {
	if s == nil || s.store == nil {
		return
	}
	s.mu.RLock()
	tenantID := s.tenantID
	s.mu.RUnlock()
	if tenantID == "" {
		return
	}
	started := s.now()

	var (
		machines  []models.CloudMachine
		windows   []models.CloudWindow
		orders    []models.Order
		requests  []models.WindowRequest
		purchases []models.Purchase
		staff     []models.Staff
		errs      [6]error
	)
	var wg sync.WaitGroup
	wg.Add(6)
	go func() { defer wg.Done(); machines, errs[0] = s.store.ListMachines(ctx, tenantID) }()
	go func() { defer wg.Done(); windows, errs[1] = s.store.ListWindows(ctx, tenantID) }()
	go func() { defer wg.Done(); orders, errs[2] = s.store.ListOrders(ctx, tenantID) }()
	go func() { defer wg.Done(); requests, errs[3] = s.store.ListRequests(ctx, tenantID, "") }()
	go func() { defer wg.Done(); purchases, errs[4] = s.store.ListPurchases(ctx, tenantID) }()
	go func() { defer wg.Done(); staff, errs[5] = s.store.ListStaff(ctx, tenantID) }()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tenantID != tenantID {
		// Tenant changed mid-reload; drop the results.
		return
	}
	partial := false
	names := [6]string{"machines", "windows", "orders", "requests", "purchases", "staff"}
	for i, err := range errs {
		if err != nil {
			partial = true
			s.logger.Printf("sync: fetch %s: %v", names[i], err)
		}
	}
	if errs[0] == nil {
		s.snapshot.Machines = machines
	}
	if errs[1] == nil {
		s.snapshot.Windows = windows
	}
	if errs[2] == nil {
		s.snapshot.Orders = orders
	}
	if errs[3] == nil {
		s.snapshot.Requests = requests
	}
	if errs[4] == nil {
		s.snapshot.Purchases = purchases
	}
	if errs[5] == nil {
		s.snapshot.Staff = staff
	}
	s.snapshot.TenantID = tenantID
	s.snapshot.LastSync = s.now().UTC()
	s.snapshot.Partial = partial
	if s.metrics != nil {
		result := "ok"
		if partial {
			result = "partial"
		}
		s.metrics.ObserveSyncCycle(result, s.now().Sub(started))
	}
}

// Snapshot returns a copy of the current cached snapshot.
func (s *Syncer) Snapshot() TenantSnapshot {
	if s == nil {
		return TenantSnapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Tenant returns the active tenant id, or "" when halted.
func (s *Syncer) Tenant() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantID
}
