package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip newest first", func(t *testing.T) {
		store := openTestStore(t)
		window := "win-1"
		order := "order-1"
		require.NoError(t, store.RecordEvent(ctx, "tenant-1", "order.completed", &window, &order, "done", `{"loss":500}`))
		require.NoError(t, store.RecordEvent(ctx, "tenant-1", "window.recharged", &window, nil, "", ""))

		events, err := store.ListEvents(ctx, "tenant-1", 0)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "window.recharged", events[0].Kind)
		assert.Equal(t, "order.completed", events[1].Kind)
		assert.Equal(t, "win-1", events[1].WindowID)
		assert.Equal(t, "order-1", events[1].OrderID)
		assert.Equal(t, `{"loss":500}`, events[1].JSON)
		assert.Empty(t, events[0].OrderID)
	})

	t.Run("limit", func(t *testing.T) {
		store := openTestStore(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, store.RecordEvent(ctx, "tenant-1", "sync.cycle", nil, nil, "", ""))
		}
		events, err := store.ListEvents(ctx, "tenant-1", 3)
		require.NoError(t, err)
		assert.Len(t, events, 3)
	})

	t.Run("missing kind", func(t *testing.T) {
		store := openTestStore(t)
		err := store.RecordEvent(ctx, "tenant-1", "", nil, nil, "", "")
		assert.EqualError(t, err, "event kind is required")
	})

	t.Run("tenant isolation", func(t *testing.T) {
		store := openTestStore(t)
		require.NoError(t, store.RecordEvent(ctx, "tenant-1", "order.created", nil, nil, "", ""))
		events, err := store.ListEvents(ctx, "tenant-2", 0)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
