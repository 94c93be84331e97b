package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windvault/windvault/internal/models"
)

func testWindow(id string, number int) models.CloudWindow {
	return models.CloudWindow{
		ID:           id,
		TenantID:     "tenant-1",
		MachineID:    "machine-1",
		WindowNumber: number,
		GoldBalance:  10000,
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreateWindow(ctx, testWindow("win-1", 1)))

		got, err := store.GetWindow(ctx, "tenant-1", "win-1")
		require.NoError(t, err)
		assert.Equal(t, "win-1", got.ID)
		assert.Equal(t, "machine-1", got.MachineID)
		assert.Equal(t, 1, got.WindowNumber)
		assert.Equal(t, int64(10000), got.GoldBalance)
		assert.Nil(t, got.UserID)
	})

	t.Run("nil store", func(t *testing.T) {
		err := (*Store)(nil).CreateWindow(ctx, testWindow("win-1", 1))
		assert.EqualError(t, err, "db store is nil")
	})

	t.Run("missing id", func(t *testing.T) {
		store := openTestStore(t)
		w := testWindow("", 1)
		assert.EqualError(t, store.CreateWindow(ctx, w), "window id is required")
	})

	t.Run("missing tenant", func(t *testing.T) {
		store := openTestStore(t)
		w := testWindow("win-1", 1)
		w.TenantID = ""
		assert.EqualError(t, store.CreateWindow(ctx, w), "window tenant_id is required")
	})

	t.Run("missing machine", func(t *testing.T) {
		store := openTestStore(t)
		w := testWindow("win-1", 1)
		w.MachineID = ""
		assert.EqualError(t, store.CreateWindow(ctx, w), "window machine_id is required")
	})

	t.Run("invalid number", func(t *testing.T) {
		store := openTestStore(t)
		w := testWindow("win-1", 0)
		assert.EqualError(t, store.CreateWindow(ctx, w), "window number must be positive")
	})

	t.Run("preserves assignment", func(t *testing.T) {
		store := openTestStore(t)
		staff := "staff-1"
		w := testWindow("win-1", 1)
		w.UserID = &staff
		require.NoError(t, store.CreateWindow(ctx, w))

		got, err := store.GetWindow(ctx, "tenant-1", "win-1")
		require.NoError(t, err)
		require.NotNil(t, got.UserID)
		assert.Equal(t, "staff-1", *got.UserID)
	})
}

func TestGetWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("missing window", func(t *testing.T) {
		store := openTestStore(t)
		_, err := store.GetWindow(ctx, "tenant-1", "nope")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("tenant isolation", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreateWindow(ctx, testWindow("win-1", 1)))

		_, err := store.GetWindow(ctx, "tenant-2", "win-1")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestListWindows(t *testing.T) {
	ctx := context.Background()

	t.Run("ordered by machine and number", func(t *testing.T) {
		store := openTestStore(t)
		w2 := testWindow("win-2", 2)
		w1 := testWindow("win-1", 1)
		require.NoError(t, store.CreateWindow(ctx, w2))
		require.NoError(t, store.CreateWindow(ctx, w1))

		got, err := store.ListWindows(ctx, "tenant-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "win-1", got[0].ID)
		assert.Equal(t, "win-2", got[1].ID)
	})

	t.Run("empty tenant", func(t *testing.T) {
		store := openTestStore(t)
		got, err := store.ListWindows(ctx, "tenant-1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestListWindowsByMachine(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	w1 := testWindow("win-1", 1)
	w2 := testWindow("win-2", 2)
	other := testWindow("win-3", 1)
	other.MachineID = "machine-2"
	require.NoError(t, store.CreateWindow(ctx, w1))
	require.NoError(t, store.CreateWindow(ctx, w2))
	require.NoError(t, store.CreateWindow(ctx, other))

	got, err := store.ListWindowsByMachine(ctx, "tenant-1", "machine-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "win-1", got[0].ID)
	assert.Equal(t, "win-2", got[1].ID)
}

func TestUpdateWindowAssignment(t *testing.T) {
	ctx := context.Background()

	t.Run("assign and release", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreateWindow(ctx, testWindow("win-1", 1)))

		staff := "staff-1"
		ok, err := store.UpdateWindowAssignment(ctx, "tenant-1", "win-1", &staff)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.GetWindow(ctx, "tenant-1", "win-1")
		require.NoError(t, err)
		assert.Equal(t, "staff-1", got.Assignee())

		ok, err = store.UpdateWindowAssignment(ctx, "tenant-1", "win-1", nil)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err = store.GetWindow(ctx, "tenant-1", "win-1")
		require.NoError(t, err)
		assert.Nil(t, got.UserID)
	})

	t.Run("missing window", func(t *testing.T) {
		store := openTestStore(t)
		ok, err := store.UpdateWindowAssignment(ctx, "tenant-1", "nope", nil)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestWindowBalanceUpdates(t *testing.T) {
	ctx := context.Background()

	t.Run("set absolute balance", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreateWindow(ctx, testWindow("win-1", 1)))

		ok, err := store.UpdateWindowBalance(ctx, "tenant-1", "win-1", 500)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.GetWindow(ctx, "tenant-1", "win-1")
		require.NoError(t, err)
		assert.Equal(t, int64(500), got.GoldBalance)
	})

	t.Run("add delta", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreateWindow(ctx, testWindow("win-1", 1)))

		ok, err := store.AddWindowBalance(ctx, "tenant-1", "win-1", -4000)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.GetWindow(ctx, "tenant-1", "win-1")
		require.NoError(t, err)
		assert.Equal(t, int64(6000), got.GoldBalance)
	})

	t.Run("missing window", func(t *testing.T) {
		store := openTestStore(t)
		ok, err := store.AddWindowBalance(ctx, "tenant-1", "nope", 100)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDeleteWindow(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.CreateWindow(ctx, testWindow("win-1", 1)))

	ok, err := store.DeleteWindow(ctx, "tenant-1", "win-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DeleteWindow(ctx, "tenant-1", "win-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
