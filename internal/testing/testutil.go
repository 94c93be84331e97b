// Package testing provides shared test utilities and helper functions for
// WindVault.
//
// This package contains test helpers and factory functions for creating test
// data, promoting consistent testing patterns across the codebase:
//
//   - Model factories: NewTestWindow, NewTestOrder, NewTestStaff
//   - Test helpers: OpenTestDB
//   - Test constants: FixedTime, TestTenant
//
// The package is designed to work with github.com/stretchr/testify for
// assertions.
package testing

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/windvault/windvault/internal/db"
	"github.com/windvault/windvault/internal/models"
)

// FixedTime is a fixed timestamp for deterministic tests.
var FixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Common test constants used across the test suite.
const (
	TestTenant    = "tenant-1"
	TestTenantAlt = "tenant-2"
	TestStaffID   = "staff-1"
	TestMachineID = "machine-1"
)

// OpenTestDB creates a migrated store backed by a temp file, closed via
// t.Cleanup.
func OpenTestDB(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// NewTestMachine returns a machine with sane defaults.
func NewTestMachine(id string) models.CloudMachine {
	return models.CloudMachine{
		ID:        id,
		TenantID:  TestTenant,
		Name:      "machine " + id,
		Provider:  "testcloud",
		CreatedAt: FixedTime,
		UpdatedAt: FixedTime,
	}
}

// NewTestWindow returns a window with sane defaults.
func NewTestWindow(id string, number int) models.CloudWindow {
	return models.CloudWindow{
		ID:           id,
		TenantID:     TestTenant,
		MachineID:    TestMachineID,
		WindowNumber: number,
		GoldBalance:  10000,
		CreatedAt:    FixedTime,
		UpdatedAt:    FixedTime,
	}
}

// NewTestOrder returns a pending order with one window snapshot.
func NewTestOrder(id string, amount float64) models.Order {
	return models.Order{
		ID:              id,
		TenantID:        TestTenant,
		StaffID:         TestStaffID,
		Amount:          amount,
		Date:            FixedTime,
		Status:          models.OrderPending,
		RemainingAmount: amount,
		Snapshots:       []models.WindowSnapshot{{WindowID: "win-1", Balance: 10000}},
		CreatedAt:       FixedTime,
		UpdatedAt:       FixedTime,
	}
}

// NewTestStaff returns a staff member with sane defaults.
func NewTestStaff(id, name string) models.Staff {
	return models.Staff{
		ID:        id,
		TenantID:  TestTenant,
		Name:      name,
		CreatedAt: FixedTime,
	}
}
