// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Execution worker metrics
	ExecutionPassesTotal prometheus.Counter
	AgentsProcessed      prometheus.Counter
	AgentsSkipped        *prometheus.CounterVec
	PositionsOpened      prometheus.Counter
	CapitalReconciled    prometheus.Counter

	// Monitoring worker metrics
	MonitorPassesTotal prometheus.Counter
	PositionsClosed    *prometheus.CounterVec
	DustGuardTripped   prometheus.Counter
	OpenPositions      prometheus.Gauge

	// Swap pipeline metrics
	SwapsTotal      *prometheus.CounterVec
	SwapDuration    prometheus.Histogram
	ConfirmTimeouts prometheus.Counter
	RelayFallbacks  prometheus.Counter

	// External service metrics
	DecisionCalls    *prometheus.CounterVec
	PriceSourceUsed  *prometheus.CounterVec
	OrderPlacements  *prometheus.CounterVec
	SocialPostsTotal *prometheus.CounterVec
	SOLPriceUSD      prometheus.Gauge

	// Worker latency
	WorkerPassDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "agent_engine"
	}

	return &Metrics{
		ExecutionPassesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "passes_total",
			Help:      "Total number of execution worker passes",
		}),
		AgentsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "agents_processed_total",
			Help:      "Total number of agents evaluated by the execution worker",
		}),
		AgentsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "agents_skipped_total",
			Help:      "Total number of agents skipped by gate",
		}, []string{"reason"}),
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "positions_opened_total",
			Help:      "Total number of positions opened",
		}),
		CapitalReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "capital_reconciled_total",
			Help:      "Total number of capital corrections against on-chain balance",
		}),

		MonitorPassesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "passes_total",
			Help:      "Total number of monitoring worker passes",
		}),
		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "positions_closed_total",
			Help:      "Total number of positions closed by terminal status",
		}, []string{"status"}),
		DustGuardTripped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "dust_guard_tripped_total",
			Help:      "Total number of forced sells routed to sell_failed by the dust guard",
		}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "open_positions",
			Help:      "Open positions observed at the start of the last pass",
		}),

		SwapsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "swaps_total",
			Help:      "Total number of swap attempts by route and outcome",
		}, []string{"route", "outcome"}),
		SwapDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "duration_seconds",
			Help:      "Swap pipeline duration from quote to confirmation",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		ConfirmTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "confirm_timeouts_total",
			Help:      "Total number of ambiguous broadcast timeouts",
		}),
		RelayFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "relay_fallbacks_total",
			Help:      "Total number of relay submissions that fell back to public broadcast",
		}),

		DecisionCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "decision_calls_total",
			Help:      "Total number of decision-service calls by kind and outcome",
		}, []string{"kind", "outcome"}),
		PriceSourceUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "price_source_used_total",
			Help:      "Total number of price resolutions by winning source",
		}, []string{"source"}),
		OrderPlacements: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "order_placements_total",
			Help:      "Total number of protective order placements by side and outcome",
		}, []string{"side", "outcome"}),
		SocialPostsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "social_posts_total",
			Help:      "Total number of social posts by outcome",
		}, []string{"outcome"}),
		SOLPriceUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "external",
			Name:      "sol_price_usd",
			Help:      "Last resolved SOL/USD price",
		}),

		WorkerPassDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_pass_duration_seconds",
			Help:      "Full pass duration per worker",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"worker"}),
	}
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAgentSkipped records an execution-worker gate skip.
func RecordAgentSkipped(reason string) {
	DefaultMetrics.AgentsSkipped.WithLabelValues(reason).Inc()
}

// RecordPositionOpened increments the opened positions counter.
func RecordPositionOpened() {
	DefaultMetrics.PositionsOpened.Inc()
}

// RecordPositionClosed records a closure by terminal status.
func RecordPositionClosed(status string) {
	DefaultMetrics.PositionsClosed.WithLabelValues(status).Inc()
}

// RecordSwap records one swap attempt.
func RecordSwap(route, outcome string, seconds float64) {
	DefaultMetrics.SwapsTotal.WithLabelValues(route, outcome).Inc()
	DefaultMetrics.SwapDuration.Observe(seconds)
}

// RecordDecisionCall records a decision-service call outcome.
func RecordDecisionCall(kind, outcome string) {
	DefaultMetrics.DecisionCalls.WithLabelValues(kind, outcome).Inc()
}

// RecordOrderPlacement records one protective order placement attempt.
func RecordOrderPlacement(side, outcome string) {
	DefaultMetrics.OrderPlacements.WithLabelValues(side, outcome).Inc()
}

// RecordSocialPost records one social publish attempt.
func RecordSocialPost(outcome string) {
	DefaultMetrics.SocialPostsTotal.WithLabelValues(outcome).Inc()
}

// RecordPriceSource records which source won a price resolution.
func RecordPriceSource(source string) {
	DefaultMetrics.PriceSourceUsed.WithLabelValues(source).Inc()
}

// RecordWorkerPass records one worker pass duration.
func RecordWorkerPass(worker string, seconds float64) {
	DefaultMetrics.WorkerPassDuration.WithLabelValues(worker).Observe(seconds)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
