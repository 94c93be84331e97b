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

func testOrder(id string, amount float64) models.Order {
	return models.Order{
		ID:              id,
		TenantID:        "tenant-1",
		StaffID:         "staff-1",
		Amount:          amount,
		Date:            time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Status:          models.OrderPending,
		RemainingAmount: amount,
		Snapshots: []models.WindowSnapshot{
			{WindowID: "win-1", Balance: 10000},
		},
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("success round trip", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreateOrder(ctx, testOrder("order-1", 1.5)))

		got, err := store.GetOrder(ctx, "tenant-1", "order-1")
		require.NoError(t, err)
		assert.Equal(t, "order-1", got.ID)
		assert.Equal(t, "staff-1", got.StaffID)
		assert.Equal(t, 1.5, got.Amount)
		assert.Equal(t, models.OrderPending, got.Status)
		assert.Equal(t, 1.5, got.RemainingAmount)
		require.Len(t, got.Snapshots, 1)
		assert.Equal(t, "win-1", got.Snapshots[0].WindowID)
		assert.Equal(t, int64(10000), got.Snapshots[0].Balance)
		assert.Empty(t, got.Results)
		assert.Empty(t, got.History)
	})

	t.Run("missing id", func(t *testing.T) {
		store := openTestStore(t)
		o := testOrder("", 1)
		assert.EqualError(t, store.CreateOrder(ctx, o), "order id is required")
	})

	t.Run("missing staff", func(t *testing.T) {
		store := openTestStore(t)
		o := testOrder("order-1", 1)
		o.StaffID = ""
		assert.EqualError(t, store.CreateOrder(ctx, o), "order staff_id is required")
	})

	t.Run("negative amount", func(t *testing.T) {
		store := openTestStore(t)
		o := testOrder("order-1", -1)
		assert.EqualError(t, store.CreateOrder(ctx, o), "order amount must not be negative")
	})

	t.Run("defaults date to created_at", func(t *testing.T) {
		store := openTestStore(t)
		o := testOrder("order-1", 1)
		o.Date = time.Time{}
		require.NoError(t, store.CreateOrder(ctx, o))

		got, err := store.GetOrder(ctx, "tenant-1", "order-1")
		require.NoError(t, err)
		assert.True(t, got.Date.Equal(o.CreatedAt))
	})
}

func TestUpdateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("rewrites ledger fields", func(t *testing.T) {
		store := openTestStore(t)
		order := testOrder("order-1", 1)
		require.NoError(t, store.CreateOrder(ctx, order))

		order.Status = models.OrderCompleted
		order.CompletedAmount = 1
		order.RemainingAmount = 0
		order.TotalConsumed = 10500
		order.Loss = 500
		order.Results = []models.WindowResult{{WindowID: "win-1", Consumed: 10500, EndBalance: 500}}
		order.History = []models.ExecutionEntry{{
			StaffID:   "staff-1",
			StaffName: "Alice",
			Amount:    1,
			StartTime: order.Date,
			EndTime:   order.Date.Add(time.Hour),
		}}
		ok, err := store.UpdateOrder(ctx, order)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.GetOrder(ctx, "tenant-1", "order-1")
		require.NoError(t, err)
		assert.Equal(t, models.OrderCompleted, got.Status)
		assert.Equal(t, int64(10500), got.TotalConsumed)
		assert.Equal(t, int64(500), got.Loss)
		require.Len(t, got.Results, 1)
		assert.Equal(t, int64(500), got.Results[0].EndBalance)
		require.Len(t, got.History, 1)
		assert.Equal(t, "Alice", got.History[0].StaffName)
	})

	t.Run("missing order", func(t *testing.T) {
		store := openTestStore(t)
		ok, err := store.UpdateOrder(ctx, testOrder("nope", 1))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := testOrder("order-1", 1)
	second := testOrder("order-2", 2)
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	second.UpdatedAt = second.CreatedAt
	require.NoError(t, store.CreateOrder(ctx, first))
	require.NoError(t, store.CreateOrder(ctx, second))

	got, err := store.ListOrders(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "order-2", got[0].ID)
	assert.Equal(t, "order-1", got[1].ID)
}

func TestDeleteOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.CreateOrder(ctx, testOrder("order-1", 1)))

	ok, err := store.DeleteOrder(ctx, "tenant-1", "order-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.GetOrder(ctx, "tenant-1", "order-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	ok, err = store.DeleteOrder(ctx, "tenant-1", "order-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCountOrdersByStatus(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	pending := testOrder("order-1", 1)
	paused := testOrder("order-2", 1)
	paused.Status = models.OrderPaused
	done := testOrder("order-3", 1)
	done.Status = models.OrderCompleted
	otherTenant := testOrder("order-4", 1)
	otherTenant.TenantID = "tenant-2"
	require.NoError(t, store.CreateOrder(ctx, pending))
	require.NoError(t, store.CreateOrder(ctx, paused))
	require.NoError(t, store.CreateOrder(ctx, done))
	require.NoError(t, store.CreateOrder(ctx, otherTenant))

	counts, err := store.CountOrdersByStatus(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.OrderPending])
	assert.Equal(t, 1, counts[models.OrderPaused])
	assert.Equal(t, 1, counts[models.OrderCompleted])
	assert.Len(t, counts, 3)
}
