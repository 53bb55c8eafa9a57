// Package metrics exposes Prometheus collectors for the signal engine.
package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	CandlesTotal prometheus.Counter
	EvalDur      prometheus.Histogram

	// Coordinator
	SignalsTotal      *prometheus.CounterVec // labels: strategy, direction
	SignalsSuppressed *prometheus.CounterVec // labels: reason

	// Risk manager
	RiskApprovals  prometheus.Counter
	RiskRejections *prometheus.CounterVec // labels: rule

	// Backtest engine
	BacktestDur     prometheus.Histogram
	TradesSimulated prometheus.Counter
}

// NewMetrics registers and returns all collectors on the default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_candles_total",
			Help: "Total candles consumed by the live engine",
		}),
		EvalDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_evaluation_duration_seconds",
			Help:    "Per-symbol evaluation latency",
			Buckets: prometheus.DefBuckets,
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signals_total",
			Help: "Signals issued by strategy and direction",
		}, []string{"strategy", "direction"}),
		SignalsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signals_suppressed_total",
			Help: "Evaluations rejected before strategy fan-out",
		}, []string{"reason"}),
		RiskApprovals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_risk_approvals_total",
			Help: "Proposals approved by the risk manager",
		}),
		RiskRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_risk_rejections_total",
			Help: "Risk-manager rejections by violated rule",
		}, []string{"rule"}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_backtest_duration_seconds",
			Help:    "Wall time per backtest run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		TradesSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_trades_simulated_total",
			Help: "Trade records produced by backtests",
		}),
	}

	prometheus.MustRegister(
		m.CandlesTotal,
		m.EvalDur,
		m.SignalsTotal,
		m.SignalsSuppressed,
		m.RiskApprovals,
		m.RiskRejections,
		m.BacktestDur,
		m.TradesSimulated,
	)
	return m
}

// Serve starts the /metrics endpoint on addr. Blocks; run in a goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Printf("[metrics] serving on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("[metrics] server stopped: %v", err)
	}
}
