package daemon

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windvault/windvault/internal/models"
)

func TestMetricsObservers(t *testing.T) {
	m := NewMetrics()

	m.ObserveOrderTransition(models.OrderPending, models.OrderCompleted)
	m.ObserveOrderTransition(models.OrderPending, models.OrderCompleted)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.orderTransitionsTotal.WithLabelValues("PENDING", "COMPLETED")))

	m.ObserveLoss(500)
	m.ObserveLoss(0)
	m.ObserveLoss(-10)
	assert.Equal(t, float64(500), testutil.ToFloat64(m.orderLossCoinsTotal))

	m.ObserveAssignment("assign")
	m.ObserveAssignment("release")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.windowAssignmentsTotal.WithLabelValues("assign")))

	m.ObserveRecharge(5000)
	m.ObserveRecharge(-5000)
	assert.Equal(t, float64(5000), testutil.ToFloat64(m.windowRechargeCoins))

	m.ObserveRequestDecision(models.RequestApply, models.RequestApproved)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestDecisionsTotal.WithLabelValues("APPLY", "APPROVED")))

	m.ObserveSyncCycle("ok", 25*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.syncCyclesTotal.WithLabelValues("ok")))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveOrderTransition(models.OrderPending, models.OrderPaused)
	m.ObserveLoss(1)
	m.ObserveAssignment("assign")
	m.ObserveRecharge(1)
	m.ObserveRequestDecision(models.RequestApply, models.RequestRejected)
	m.ObserveSyncCycle("ok", time.Millisecond)
	assert.NotNil(t, m.Handler())
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveAssignment("assign")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "windvault_window_assignments_total")
}
