package daemon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windvault/windvault/internal/db"
	"github.com/windvault/windvault/internal/models"
	wvtest "github.com/windvault/windvault/internal/testing"
)

func newTestArbiter(t *testing.T) (*RequestArbiter, *db.Store) {
	t.Helper()
	store := wvtest.OpenTestDB(t)
	registry := NewWindowRegistry(store, testLogger())
	arbiter := NewRequestArbiter(store, registry, testLogger())
	arbiter.now = fixedClock(wvtest.FixedTime)
	return arbiter, store
}

func TestArbiterSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps provided name", func(t *testing.T) {
		arbiter, store := newTestArbiter(t)
		window := "win-1"
		request, err := arbiter.Submit(ctx, wvtest.TestTenant, "staff-1", "Alice", models.RequestApply, &window)
		require.NoError(t, err)
		assert.Equal(t, models.RequestPending, request.Status)
		assert.Equal(t, "Alice", request.StaffName)
		require.NotNil(t, request.WindowID)
		assert.Equal(t, "win-1", *request.WindowID)

		got, err := store.GetRequest(ctx, wvtest.TestTenant, request.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestApply, got.Type)
	})

	t.Run("resolves name from staff record", func(t *testing.T) {
		arbiter, store := newTestArbiter(t)
		seedStaff(t, store, "staff-1", "Alice")
		request, err := arbiter.Submit(ctx, wvtest.TestTenant, "staff-1", "", models.RequestApply, nil)
		require.NoError(t, err)
		assert.Equal(t, "Alice", request.StaffName)
	})

	t.Run("unknown staff placeholder", func(t *testing.T) {
		arbiter, _ := newTestArbiter(t)
		request, err := arbiter.Submit(ctx, wvtest.TestTenant, "ghost", "", models.RequestRelease, nil)
		require.NoError(t, err)
		assert.Equal(t, "unknown", request.StaffName)
	})

	t.Run("blank window id stored as untargeted", func(t *testing.T) {
		arbiter, _ := newTestArbiter(t)
		blank := "  "
		request, err := arbiter.Submit(ctx, wvtest.TestTenant, "staff-1", "Alice", models.RequestApply, &blank)
		require.NoError(t, err)
		assert.Nil(t, request.WindowID)
	})

	t.Run("validation", func(t *testing.T) {
		arbiter, _ := newTestArbiter(t)
		_, err := arbiter.Submit(ctx, wvtest.TestTenant, " ", "Alice", models.RequestApply, nil)
		assert.EqualError(t, err, "staff id is required")

		_, err = arbiter.Submit(ctx, wvtest.TestTenant, "staff-1", "Alice", "BORROW", nil)
		assert.EqualError(t, err, `request type "BORROW" is invalid`)
	})
}

func TestArbiterProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("approve apply assigns window", func(t *testing.T) {
		arbiter, store := newTestArbiter(t)
		seedWindow(t, store, "win-1", 1, 10000)
		window := "win-1"
		request, err := arbiter.Submit(ctx, wvtest.TestTenant, "staff-1", "Alice", models.RequestApply, &window)
		require.NoError(t, err)

		processed, err := arbiter.Process(ctx, wvtest.TestTenant, request.ID, true, "admin-1")
		require.NoError(t, err)
		assert.Equal(t, models.RequestApproved, processed.Status)
		assert.Equal(t, "admin-1", processed.ProcessedBy)
		assert.True(t, processed.ProcessedAt.Equal(wvtest.FixedTime))
		assert.True(t, processed.Processed())

		got, err := store.GetWindow(ctx, wvtest.TestTenant, "win-1")
		require.NoError(t, err)
		assert.Equal(t, "staff-1", got.Assignee())
	})

	t.Run("approve release frees window", func(t *testing.T) {
		arbiter, store := newTestArbiter(t)
		held := wvtest.NewTestWindow("win-1", 1)
		holder := "staff-1"
		held.UserID = &holder
		require.NoError(t, store.CreateWindow(ctx, held))
		window := "win-1"
		request, err := arbiter.Submit(ctx, wvtest.TestTenant, "staff-1", "Alice", models.RequestRelease, &window)
		require.NoError(t, err)

		_, err = arbiter.Process(ctx, wvtest.TestTenant, request.ID, true, "admin-1")
		require.NoError(t, err)

		got, err := store.GetWindow(ctx, wvtest.TestTenant, "win-1")
		require.NoError(t, err)
		assert.Nil(t, got.UserID)
	})

	t.Run("reject leaves window untouched", func(t *testing.T) {
		arbiter, store := newTestArbiter(t)
		seedWindow(t, store, "win-1", 1, 10000)
		window := "win-1"
		request, err := arbiter.Submit(ctx, wvtest.TestTenant, "staff-1", "Alice", models.RequestApply, &window)
		require.NoError(t, err)

		processed, err := arbiter.Process(ctx, wvtest.TestTenant, request.ID, false, "admin-1")
		require.NoError(t, err)
		assert.Equal(t, models.RequestRejected, processed.Status)

		got, err := store.GetWindow(ctx, wvtest.TestTenant, "win-1")
		require.NoError(t, err)
		assert.Nil(t, got.UserID)
	})

	t.Run("untargeted approval has no side effect", func(t *testing.T) {
		arbiter, store := newTestArbiter(t)
		seedWindow(t, store, "win-1", 1, 10000)
		request, err := arbiter.Submit(ctx, wvtest.TestTenant, "staff-1", "Alice", models.RequestApply, nil)
		require.NoError(t, err)

		processed, err := arbiter.Process(ctx, wvtest.TestTenant, request.ID, true, "admin-1")
		require.NoError(t, err)
		assert.Equal(t, models.RequestApproved, processed.Status)

		got, err := store.GetWindow(ctx, wvtest.TestTenant, "win-1")
		require.NoError(t, err)
		assert.Nil(t, got.UserID)
	})

	t.Run("approve targeting missing window", func(t *testing.T) {
		arbiter, _ := newTestArbiter(t)
		window := "gone"
		request, err := arbiter.Submit(ctx, wvtest.TestTenant, "staff-1", "Alice", models.RequestApply, &window)
		require.NoError(t, err)

		_, err = arbiter.Process(ctx, wvtest.TestTenant, request.ID, true, "admin-1")
		assert.ErrorIs(t, err, ErrWindowNotFound)
	})

	t.Run("missing request", func(t *testing.T) {
		arbiter, _ := newTestArbiter(t)
		_, err := arbiter.Process(ctx, wvtest.TestTenant, "nope", true, "admin-1")
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})
}
