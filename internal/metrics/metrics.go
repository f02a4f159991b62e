// Package metrics holds the Prometheus collectors for recurring passes,
// budget reconciliation, notification delivery and the HTTP API.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spendcycle"

// Pass outcomes.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeAborted = "aborted"
)

// ─── Recurring passes ───────────────────────────────────────────────────────

var PassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "pass",
	Name:      "total",
	Help:      "Total recurring passes by outcome.",
}, []string{"outcome"})

var PassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "pass",
	Name:      "duration_seconds",
	Help:      "Wall time of a recurring pass, lock wait included.",
	Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
})

var TransactionsMaterialized = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "recurring",
	Name:      "transactions_materialized_total",
	Help:      "Total transactions produced from recurring templates.",
})

var TemplateFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "recurring",
	Name:      "template_failures_total",
	Help:      "Total templates that failed to materialize or advance.",
})

// ─── Reconciliation ─────────────────────────────────────────────────────────

var BudgetResets = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "budget",
	Name:      "resets_total",
	Help:      "Total budget cycle resets.",
})

var ReconcileFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "budget",
	Name:      "reconcile_failures_total",
	Help:      "Total budgets that failed to reconcile.",
})

var ThresholdCrossings = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "budget",
	Name:      "threshold_crossings_total",
	Help:      "Total budgets that crossed their alert threshold.",
})

// ─── Notifications ──────────────────────────────────────────────────────────

var NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "notify",
	Name:      "delivery_failures_total",
	Help:      "Total failed notification deliveries by kind.",
}, []string{"kind"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests by method, route and status.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by method and route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// Handler serves the default registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
