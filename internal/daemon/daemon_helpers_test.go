package daemon

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/windvault/windvault/internal/db"
	"github.com/windvault/windvault/internal/models"
	wvtest "github.com/windvault/windvault/internal/testing"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedMachine(t *testing.T, store *db.Store) models.CloudMachine {
	t.Helper()
	machine := wvtest.NewTestMachine(wvtest.TestMachineID)
	require.NoError(t, store.CreateMachine(context.Background(), machine))
	return machine
}

func seedWindow(t *testing.T, store *db.Store, id string, number int, balance int64) models.CloudWindow {
	t.Helper()
	window := wvtest.NewTestWindow(id, number)
	window.GoldBalance = balance
	require.NoError(t, store.CreateWindow(context.Background(), window))
	return window
}

func seedStaff(t *testing.T, store *db.Store, id, name string) models.Staff {
	t.Helper()
	staff := wvtest.NewTestStaff(id, name)
	require.NoError(t, store.CreateStaff(context.Background(), staff))
	return staff
}
