package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wvtest "github.com/windvault/windvault/internal/testing"
)

func TestSyncerSetTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("eager reload on activation", func(t *testing.T) {
		store := wvtest.OpenTestDB(t)
		seedMachine(t, store)
		seedWindow(t, store, "win-1", 1, 10000)
		seedStaff(t, store, "staff-1", "Alice")

		syncer := NewSyncer(store, testLogger(), time.Hour)
		syncer.SetTenant(ctx, wvtest.TestTenant)
		defer syncer.SetTenant(ctx, "")

		snapshot := syncer.Snapshot()
		assert.Equal(t, wvtest.TestTenant, snapshot.TenantID)
		assert.Len(t, snapshot.Machines, 1)
		assert.Len(t, snapshot.Windows, 1)
		assert.Len(t, snapshot.Staff, 1)
		assert.False(t, snapshot.LastSync.IsZero())
		assert.False(t, snapshot.Partial)
	})

	t.Run("empty tenant halts and clears", func(t *testing.T) {
		store := wvtest.OpenTestDB(t)
		seedMachine(t, store)

		syncer := NewSyncer(store, testLogger(), time.Hour)
		syncer.SetTenant(ctx, wvtest.TestTenant)
		require.NotEmpty(t, syncer.Snapshot().Machines)

		syncer.SetTenant(ctx, "")
		assert.Empty(t, syncer.Tenant())
		assert.Equal(t, TenantSnapshot{}, syncer.Snapshot())
	})

	t.Run("tenant switch resets snapshot", func(t *testing.T) {
		store := wvtest.OpenTestDB(t)
		seedMachine(t, store)

		syncer := NewSyncer(store, testLogger(), time.Hour)
		syncer.SetTenant(ctx, wvtest.TestTenant)
		defer syncer.SetTenant(ctx, "")
		require.Len(t, syncer.Snapshot().Machines, 1)

		syncer.SetTenant(ctx, wvtest.TestTenantAlt)
		snapshot := syncer.Snapshot()
		assert.Equal(t, wvtest.TestTenantAlt, snapshot.TenantID)
		assert.Empty(t, snapshot.Machines)
	})
}

func TestSyncerReload(t *testing.T) {
	ctx := context.Background()

	t.Run("no tenant is a no-op", func(t *testing.T) {
		store := wvtest.OpenTestDB(t)
		syncer := NewSyncer(store, testLogger(), time.Hour)
		syncer.Reload(ctx)
		assert.True(t, syncer.Snapshot().LastSync.IsZero())
	})

	t.Run("picks up new rows", func(t *testing.T) {
		store := wvtest.OpenTestDB(t)
		syncer := NewSyncer(store, testLogger(), time.Hour)
		syncer.SetTenant(ctx, wvtest.TestTenant)
		defer syncer.SetTenant(ctx, "")
		require.Empty(t, syncer.Snapshot().Windows)

		seedWindow(t, store, "win-1", 1, 10000)
		syncer.Reload(ctx)
		assert.Len(t, syncer.Snapshot().Windows, 1)
	})

	t.Run("failed fetch keeps stale collections", func(t *testing.T) {
		store := wvtest.OpenTestDB(t)
		seedMachine(t, store)
		seedWindow(t, store, "win-1", 1, 10000)

		syncer := NewSyncer(store, testLogger(), time.Hour)
		syncer.SetTenant(ctx, wvtest.TestTenant)
		defer syncer.SetTenant(ctx, "")
		before := syncer.Snapshot()
		require.Len(t, before.Windows, 1)
		require.False(t, before.Partial)

		require.NoError(t, store.Close())
		syncer.Reload(ctx)

		after := syncer.Snapshot()
		assert.True(t, after.Partial)
		assert.Len(t, after.Machines, 1)
		assert.Len(t, after.Windows, 1)
		assert.True(t, after.LastSync.After(before.LastSync) || after.LastSync.Equal(before.LastSync))
	})
}
