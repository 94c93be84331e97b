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

func testStaff(id, name string) models.Staff {
	return models.Staff{
		ID:        id,
		TenantID:  "tenant-1",
		Name:      name,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreateStaff(t *testing.T) {
	ctx := context.Background()

	t.Run("success round trip", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreateStaff(ctx, testStaff("staff-1", "Alice")))

		got, err := store.GetStaff(ctx, "tenant-1", "staff-1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", got.Name)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("validation", func(t *testing.T) {
		store := openTestStore(t)
		assert.EqualError(t, store.CreateStaff(ctx, testStaff("", "Alice")), "staff id is required")
		assert.EqualError(t, store.CreateStaff(ctx, testStaff("staff-1", "")), "staff name is required")
	})
}

func TestListStaff(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.CreateStaff(ctx, testStaff("staff-2", "Bob")))
	require.NoError(t, store.CreateStaff(ctx, testStaff("staff-1", "Alice")))

	got, err := store.ListStaff(ctx, "tenant-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alice", got[0].Name)
	assert.Equal(t, "Bob", got[1].Name)
}

func TestDeleteStaff(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.CreateStaff(ctx, testStaff("staff-1", "Alice")))

	ok, err := store.DeleteStaff(ctx, "tenant-1", "staff-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.GetStaff(ctx, "tenant-1", "staff-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	ok, err = store.DeleteStaff(ctx, "tenant-1", "staff-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
