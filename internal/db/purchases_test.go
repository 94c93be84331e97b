package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windvault/windvault/internal/models"
)

func testPurchase(id string) models.Purchase {
	return models.Purchase{
		ID:        id,
		TenantID:  "tenant-1",
		MachineID: "machine-1",
		Quantity:  8,
		Cost:      240,
		Note:      "initial batch",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreatePurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("success round trip", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreatePurchase(ctx, testPurchase("p-1")))

		got, err := store.ListPurchases(ctx, "tenant-1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "p-1", got[0].ID)
		assert.Equal(t, "machine-1", got[0].MachineID)
		assert.Equal(t, 8, got[0].Quantity)
		assert.Equal(t, float64(240), got[0].Cost)
		assert.Equal(t, "initial batch", got[0].Note)
	})

	t.Run("optional fields", func(t *testing.T) {
		store := openTestStore(t)
		purchase := testPurchase("p-1")
		purchase.MachineID = ""
		purchase.Note = ""
		require.NoError(t, store.CreatePurchase(ctx, purchase))

		got, err := store.ListPurchases(ctx, "tenant-1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Empty(t, got[0].MachineID)
		assert.Empty(t, got[0].Note)
	})

	t.Run("validation", func(t *testing.T) {
		store := openTestStore(t)
		purchase := testPurchase("")
		assert.EqualError(t, store.CreatePurchase(ctx, purchase), "purchase id is required")

		purchase = testPurchase("p-1")
		purchase.Quantity = -1
		assert.EqualError(t, store.CreatePurchase(ctx, purchase), "purchase quantity must not be negative")
	})
}

func TestListPurchases(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	older := testPurchase("p-1")
	newer := testPurchase("p-2")
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	require.NoError(t, store.CreatePurchase(ctx, older))
	require.NoError(t, store.CreatePurchase(ctx, newer))

	got, err := store.ListPurchases(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p-2", got[0].ID)
}

func TestDeletePurchase(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.CreatePurchase(ctx, testPurchase("p-1")))

	ok, err := store.DeletePurchase(ctx, "tenant-1", "p-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DeletePurchase(ctx, "tenant-1", "p-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
