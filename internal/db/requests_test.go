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

func testRequest(id string, reqType models.RequestType) models.WindowRequest {
	window := "win-1"
	return models.WindowRequest{
		ID:        id,
		TenantID:  "tenant-1",
		StaffID:   "staff-1",
		StaffName: "Alice",
		Type:      reqType,
		WindowID:  &window,
		Status:    models.RequestPending,
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("success round trip", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreateRequest(ctx, testRequest("req-1", models.RequestApply)))

		got, err := store.GetRequest(ctx, "tenant-1", "req-1")
		require.NoError(t, err)
		assert.Equal(t, "req-1", got.ID)
		assert.Equal(t, models.RequestApply, got.Type)
		assert.Equal(t, models.RequestPending, got.Status)
		assert.Equal(t, "Alice", got.StaffName)
		require.NotNil(t, got.WindowID)
		assert.Equal(t, "win-1", *got.WindowID)
		assert.True(t, got.ProcessedAt.IsZero())
		assert.Empty(t, got.ProcessedBy)
	})

	t.Run("untargeted request", func(t *testing.T) {
		store := openTestStore(t)
		req := testRequest("req-1", models.RequestApply)
		req.WindowID = nil
		require.NoError(t, store.CreateRequest(ctx, req))

		got, err := store.GetRequest(ctx, "tenant-1", "req-1")
		require.NoError(t, err)
		assert.Nil(t, got.WindowID)
	})

	t.Run("invalid type", func(t *testing.T) {
		store := openTestStore(t)
		req := testRequest("req-1", "BORROW")
		assert.EqualError(t, store.CreateRequest(ctx, req), `request type "BORROW" is invalid`)
	})

	t.Run("missing staff", func(t *testing.T) {
		store := openTestStore(t)
		req := testRequest("req-1", models.RequestApply)
		req.StaffID = ""
		assert.EqualError(t, store.CreateRequest(ctx, req), "request staff_id is required")
	})
}

func TestListRequests(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	pending := testRequest("req-1", models.RequestApply)
	processed := testRequest("req-2", models.RequestRelease)
	processed.Status = models.RequestApproved
	processed.CreatedAt = pending.CreatedAt.Add(time.Minute)
	require.NoError(t, store.CreateRequest(ctx, pending))
	require.NoError(t, store.CreateRequest(ctx, processed))

	t.Run("all statuses", func(t *testing.T) {
		got, err := store.ListRequests(ctx, "tenant-1", "")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "req-2", got[0].ID)
	})

	t.Run("filter by status", func(t *testing.T) {
		got, err := store.ListRequests(ctx, "tenant-1", models.RequestPending)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "req-1", got[0].ID)
	})
}

func TestStampRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("approve", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.CreateRequest(ctx, testRequest("req-1", models.RequestApply)))

		processedAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		ok, err := store.StampRequest(ctx, "tenant-1", "req-1", models.RequestApproved, "admin-1", processedAt)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := store.GetRequest(ctx, "tenant-1", "req-1")
		require.NoError(t, err)
		assert.Equal(t, models.RequestApproved, got.Status)
		assert.Equal(t, "admin-1", got.ProcessedBy)
		assert.True(t, got.ProcessedAt.Equal(processedAt))
		assert.True(t, got.Processed())
	})

	t.Run("invalid decision", func(t *testing.T) {
		store := openTestStore(t)
		_, err := store.StampRequest(ctx, "tenant-1", "req-1", models.RequestPending, "admin-1", time.Now())
		assert.EqualError(t, err, `request decision "PENDING" is invalid`)
	})

	t.Run("missing request", func(t *testing.T) {
		store := openTestStore(t)
		ok, err := store.StampRequest(ctx, "tenant-1", "nope", models.RequestRejected, "admin-1", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDeleteRequest(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.CreateRequest(ctx, testRequest("req-1", models.RequestApply)))

	ok, err := store.DeleteRequest(ctx, "tenant-1", "req-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.GetRequest(ctx, "tenant-1", "req-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
