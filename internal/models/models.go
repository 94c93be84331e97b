// Package models provides data structures and constants for WindVault.
//
// This package contains the core domain models used throughout WindVault:
//   - CloudMachine: A purchased machine grouping rentable cloud windows
//   - CloudWindow: A gold-bearing game-session slot assignable to one staff member
//   - Order: A customer gold-delivery order worked across one or more segments
//   - WindowRequest: A staff ask to acquire or release a window, arbitrated by an admin
//
// All models are tenant-scoped and designed for database persistence and
// JSON serialization.
package models

import (
	"math"
	"time"

	"github.com/samber/lo"
)

// CoinsPerUnit is the fixed conversion between one order-amount unit and
// internal gold coins. It is a constant of the ledger math and is never
// configurable per tenant; tenant Settings only affect accounting displays.
const CoinsPerUnit = 10000

// OrderStatus represents the current status of an order in its lifecycle.
//
// Order state transitions:
//
//	PENDING → COMPLETED (complete)
//	PENDING → PAUSED    (pause)
//	PAUSED  → PENDING   (resume, optionally reassigning staff)
//
// There is no transition out of COMPLETED.
type OrderStatus string

const (
	// OrderPending is the initial state when an order is created and being worked.
	OrderPending OrderStatus = "PENDING"
	// OrderPaused indicates work on the order is suspended with partial progress recorded.
	OrderPaused OrderStatus = "PAUSED"
	// OrderCompleted indicates the order has been fully settled. Terminal.
	OrderCompleted OrderStatus = "COMPLETED"
)

// RequestType distinguishes window acquire and release requests.
type RequestType string

const (
	// RequestApply asks to be assigned a window.
	RequestApply RequestType = "APPLY"
	// RequestRelease asks to give a held window back to the pool.
	RequestRelease RequestType = "RELEASE"
)

// RequestStatus represents the arbitration state of a window request.
//
// Request state transitions:
//
//	PENDING → (APPROVED|REJECTED)
//
// Both outcomes are terminal; processed requests are only ever re-stamped,
// never reopened.
type RequestStatus string

const (
	// RequestPending is the initial state awaiting an admin decision.
	RequestPending RequestStatus = "PENDING"
	// RequestApproved indicates the admin granted the request.
	RequestApproved RequestStatus = "APPROVED"
	// RequestRejected indicates the admin denied the request.
	RequestRejected RequestStatus = "REJECTED"
)

// CloudMachine groups cloud windows purchased as a unit.
//
// Machines own their windows: deleting a machine cascades deletion of every
// window whose MachineID matches.
//
// Fields:
//   - ID: Unique machine identifier
//   - TenantID: Owning tenant partition key
//   - Name: Human-readable machine name
//   - Provider: Cloud provider label, display only
//   - CreatedAt: When the machine was purchased
//   - UpdatedAt: When the machine row was last updated
type CloudMachine struct {
	ID        string
	TenantID  string
	Name      string
	Provider  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CloudWindow is a rentable game-session slot holding a gold balance.
//
// A window is never created without a machine, and at most one staff member
// holds it at a time (UserID nil means unassigned). The balance is mutated by
// recharges and by order-completion write-backs.
//
// Fields:
//   - ID: Unique window identifier
//   - TenantID: Owning tenant partition key
//   - MachineID: Back-reference to the owning machine
//   - WindowNumber: Position of the window on its machine
//   - GoldBalance: Current balance in coins (integer, non-negative)
//   - UserID: Currently assigned staff id (nil if unassigned)
//   - CreatedAt: When the window was created
//   - UpdatedAt: When the window was last mutated
type CloudWindow struct {
	ID           string
	TenantID     string
	MachineID    string
	WindowNumber int
	GoldBalance  int64
	UserID       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Assignee returns the assigned staff id, or "" when the window is free.
func (w CloudWindow) Assignee() string {
	if w.UserID == nil {
		return ""
	}
	return *w.UserID
}

// Staff is a staff member referenced by id from windows, orders, and
// requests. Credentials live with the auth layer, not here. Display names are
// denormalized into history and request records at write time so historical
// entries stay accurate if the staff record later changes.
type Staff struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// WindowSnapshot records a window and its balance at order creation.
// Snapshots are immutable once written and anchor consumption deltas.
type WindowSnapshot struct {
	WindowID string `json:"window_id"`
	Balance  int64  `json:"balance"`
}

// WindowResult records the final per-window outcome of a completed order.
type WindowResult struct {
	WindowID   string `json:"window_id"`
	Consumed   int64  `json:"consumed"`
	EndBalance int64  `json:"end_balance"`
}

// ExecutionEntry is an immutable record of one staff work segment toward an
// order. Amount is in order units, not coins. Entries are append-only and
// never negative.
type ExecutionEntry struct {
	StaffID   string    `json:"staff_id"`
	StaffName string    `json:"staff_name"`
	Amount    float64   `json:"amount"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Order represents a customer gold-delivery order.
//
// Fields:
//   - ID: Unique order identifier
//   - TenantID: Owning tenant partition key
//   - StaffID: Staff member currently responsible for delivery
//   - Amount: Requested gold in order units (1 unit = CoinsPerUnit coins)
//   - Date: Business date of the order, start anchor for the first segment
//   - Status: Current lifecycle status
//   - CompletedAmount: Cumulative delivered progress recorded at pause time
//   - RemainingAmount: Amount still owed, recomputed on reassignment
//   - Snapshots: Windows earmarked at creation with their balances (immutable)
//   - Results: Final per-window consumption once completed
//   - History: Append-only execution segments
//   - TotalConsumed: Σ Results.Consumed, in coins
//   - Loss: max(0, TotalConsumed − Amount×CoinsPerUnit), in coins
type Order struct {
	ID              string
	TenantID        string
	StaffID         string
	Amount          float64
	Date            time.Time
	Status          OrderStatus
	CompletedAmount float64
	RemainingAmount float64
	Snapshots       []WindowSnapshot
	Results         []WindowResult
	History         []ExecutionEntry
	TotalConsumed   int64
	Loss            int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DeliveredAmount sums the execution history, in order units.
func (o Order) DeliveredAmount() float64 {
	return lo.SumBy(o.History, func(e ExecutionEntry) float64 { return e.Amount })
}

// AmountCoins converts the order amount to coins using the fixed conversion.
func (o Order) AmountCoins() int64 {
	return CoinsForAmount(o.Amount)
}

// CoinsForAmount converts an order-unit amount to coins, rounding to the
// nearest coin.
func CoinsForAmount(amount float64) int64 {
	return int64(math.Round(amount * CoinsPerUnit))
}

// WindowRequest is a staff-submitted ask to acquire or release a window.
//
// Fields:
//   - ID: Unique request identifier
//   - TenantID: Owning tenant partition key
//   - StaffID: Requesting staff member
//   - StaffName: Display name snapshot captured at submission
//   - Type: APPLY or RELEASE
//   - WindowID: Target window (nil for an untargeted apply)
//   - Status: PENDING until an admin processes it
//   - ProcessedAt: When the decision was stamped (zero if pending)
//   - ProcessedBy: Admin who stamped the decision
type WindowRequest struct {
	ID          string
	TenantID    string
	StaffID     string
	StaffName   string
	Type        RequestType
	WindowID    *string
	Status      RequestStatus
	CreatedAt   time.Time
	ProcessedAt time.Time
	ProcessedBy string
}

// Processed reports whether the request has a terminal decision.
func (r WindowRequest) Processed() bool {
	return r.Status != "" && r.Status != RequestPending
}

// Purchase is an append-only ledger entry recording a machine purchase.
type Purchase struct {
	ID        string
	TenantID  string
	MachineID string
	Quantity  int
	Cost      float64
	Note      string
	CreatedAt time.Time
}

// Settings is the tenant-scoped accounting configuration singleton. It is
// consumed by accounting displays only and never feeds the ledger's internal
// math.
type Settings struct {
	TenantID    string
	GoldRate    float64
	WindowPrice float64
	UpdatedAt   time.Time
}
