package daemon

import "errors"

// Sentinel errors for the core operations. Store-level failures are wrapped
// with operation context instead; validation skips get their own sentinels so
// callers can tell a deliberate no-op from a hard failure.
var (
	ErrWindowNotFound  = errors.New("window not found")
	ErrMachineNotFound = errors.New("machine not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrStaffNotFound   = errors.New("staff not found")

	// ErrInsufficientBalance is returned by recharge when the delta would
	// drive the window balance negative.
	ErrInsufficientBalance = errors.New("window balance would go negative")

	// ErrNoWindowSnapshots marks completion of an order that has no window
	// allocation snapshot. The order is left untouched.
	ErrNoWindowSnapshots = errors.New("order has no window snapshots")

	// ErrOrderCompleted marks an attempted transition out of COMPLETED.
	ErrOrderCompleted = errors.New("order is already completed")

	// ErrPartialWriteback wraps per-window balance write-back failures after
	// an order was already marked completed. The order update is not rolled
	// back; the error names the windows that failed.
	ErrPartialWriteback = errors.New("window balance write-back partially failed")
)
