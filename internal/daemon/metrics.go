package daemon

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/windvault/windvault/internal/models"
)

// Metrics collects Prometheus counters and histograms for windvaultd.
type Metrics struct {
	registry               *prometheus.Registry
	orderTransitionsTotal  *prometheus.CounterVec
	orderLossCoinsTotal    prometheus.Counter
	windowAssignmentsTotal *prometheus.CounterVec
	windowRechargeCoins    prometheus.Counter
	requestDecisionsTotal  *prometheus.CounterVec
	syncCyclesTotal        *prometheus.CounterVec
	syncDurationSeconds    prometheus.Histogram
}

// NewMetrics constructs a metrics registry and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	orderTransitionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windvault",
			Subsystem: "order",
			Name:      "transitions_total",
			Help:      "Total number of order status transitions.",
		},
		[]string{"from", "to"},
	)
	orderLossCoinsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "windvault",
			Subsystem: "order",
			Name:      "loss_coins_total",
			Help:      "Total gold coins lost to over-consumption on completed orders.",
		},
	)
	windowAssignmentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windvault",
			Subsystem: "window",
			Name:      "assignments_total",
			Help:      "Total window assignment mutations.",
		},
		[]string{"action"},
	)
	windowRechargeCoins := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "windvault",
			Subsystem: "window",
			Name:      "recharge_coins_total",
			Help:      "Total gold coins added through recharges.",
		},
	)
	requestDecisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windvault",
			Subsystem: "request",
			Name:      "decisions_total",
			Help:      "Total processed window requests.",
		},
		[]string{"type", "decision"},
	)
	syncCyclesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "windvault",
			Subsystem: "sync",
			Name:      "cycles_total",
			Help:      "Total sync reload cycles.",
		},
		[]string{"result"},
	)
	syncDurationSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "windvault",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Time spent reloading tenant collections.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	registry.MustRegister(
		orderTransitionsTotal,
		orderLossCoinsTotal,
		windowAssignmentsTotal,
		windowRechargeCoins,
		requestDecisionsTotal,
		syncCyclesTotal,
		syncDurationSeconds,
	)

	return &Metrics{
		registry:               registry,
		orderTransitionsTotal:  orderTransitionsTotal,
		orderLossCoinsTotal:    orderLossCoinsTotal,
		windowAssignmentsTotal: windowAssignmentsTotal,
		windowRechargeCoins:    windowRechargeCoins,
		requestDecisionsTotal:  requestDecisionsTotal,
		syncCyclesTotal:        syncCyclesTotal,
		syncDurationSeconds:    syncDurationSeconds,
	}
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOrderTransition counts an order status transition.
func (m *Metrics) ObserveOrderTransition(from, to models.OrderStatus) {
	if m == nil {
		return
	}
	m.orderTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveLoss adds completed-order loss to the loss counter.
func (m *Metrics) ObserveLoss(lossCoins int64) {
	if m == nil || lossCoins <= 0 {
		return
	}
	m.orderLossCoinsTotal.Add(float64(lossCoins))
}

// ObserveAssignment counts an assignment mutation ("assign" or "release").
func (m *Metrics) ObserveAssignment(action string) {
	if m == nil {
		return
	}
	m.windowAssignmentsTotal.WithLabelValues(action).Inc()
}

// ObserveRecharge adds positive recharge deltas to the recharge counter.
func (m *Metrics) ObserveRecharge(deltaCoins int64) {
	if m == nil || deltaCoins <= 0 {
		return
	}
	m.windowRechargeCoins.Add(float64(deltaCoins))
}

// ObserveRequestDecision counts a processed window request.
func (m *Metrics) ObserveRequestDecision(reqType models.RequestType, decision models.RequestStatus) {
	if m == nil {
		return
	}
	m.requestDecisionsTotal.WithLabelValues(string(reqType), string(decision)).Inc()
}

// ObserveSyncCycle records one reload cycle.
func (m *Metrics) ObserveSyncCycle(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncCyclesTotal.WithLabelValues(result).Inc()
	m.syncDurationSeconds.Observe(duration.Seconds())
}
