// Package live runs the real-time evaluation loop: closed candles arrive
// from the stream consumer, land in per-symbol windows, and each arrival
// triggers one coordinator evaluation followed by the risk check and
// delivery to the configured outputs.
package live

import (
	"context"
	"log/slog"
	"time"

	"signal-systemv1/internal/logger"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/notification"
	"signal-systemv1/internal/ringbuf"
	"signal-systemv1/internal/risk"
	"signal-systemv1/internal/strategy"
)

// windowCapacity bounds the per-symbol candle history kept in memory;
// enough for every indicator's warmup with headroom.
const windowCapacity = 256

// Broadcaster pushes events to connected dashboard clients.
type Broadcaster interface {
	BroadcastSignal(sig *model.Signal)
	BroadcastCandle(c model.Candle)
}

// SignalStore persists approved signals for the REST history endpoints.
type SignalStore interface {
	SaveSignal(ctx context.Context, sig model.Signal) error
}

// Deps are the engine's collaborators. Everything except Coordinator and
// Risk may be nil; the engine skips the missing output.
type Deps struct {
	Coordinator *strategy.Coordinator
	Risk        *risk.Manager
	Publisher   model.SignalPublisher
	Store       SignalStore
	Hub         Broadcaster
	Notifier    notification.Notifier
	CandleSink  chan<- model.Candle // drained by the SQLite writer
	Metrics     *metrics.Metrics
}

// Engine consumes candles and emits risk-checked signals.
type Engine struct {
	timeframe string
	userID    string
	deps      Deps

	windows map[string]*ringbuf.Window
}

// NewEngine builds a live engine evaluating for one user account.
func NewEngine(timeframe, userID string, deps Deps) *Engine {
	return &Engine{
		timeframe: timeframe,
		userID:    userID,
		deps:      deps,
		windows:   make(map[string]*ringbuf.Window),
	}
}

// Run drains candleCh until ctx is cancelled or the channel closes. Each
// candle is recorded, fanned out, and evaluated in arrival order; the
// loop never blocks on a slow output.
func (e *Engine) Run(ctx context.Context, candleCh <-chan model.Candle) {
	slog.Info("[live] engine started", "timeframe", e.timeframe, "user", e.userID)
	for {
		select {
		case <-ctx.Done():
			slog.Info("[live] engine stopped", "reason", ctx.Err())
			return
		case candle, ok := <-candleCh:
			if !ok {
				slog.Info("[live] candle channel closed")
				return
			}
			e.onCandle(ctx, candle)
		}
	}
}

func (e *Engine) onCandle(ctx context.Context, candle model.Candle) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.CandlesTotal.Inc()
	}

	w, ok := e.windows[candle.Symbol]
	if !ok {
		w = ringbuf.New(windowCapacity)
		e.windows[candle.Symbol] = w
	}
	w.Append(candle)

	if e.deps.Hub != nil {
		e.deps.Hub.BroadcastCandle(candle)
	}
	if e.deps.CandleSink != nil {
		select {
		case e.deps.CandleSink <- candle:
		default: // writer backlogged; history has a gap, evaluation continues
		}
	}

	e.evaluate(ctx, candle, w)
}

// evaluate runs one coordinator pass for the symbol. The candle's own
// timestamp is the evaluation clock.
func (e *Engine) evaluate(ctx context.Context, candle model.Candle, w *ringbuf.Window) {
	window := w.Snapshot()
	if len(window) < 2 {
		return
	}

	ctx = logger.WithTraceID(ctx, logger.EvalTraceID(candle.Symbol, candle.TS))

	start := time.Now()
	in := strategy.Input{
		Symbol: candle.Symbol,
		Candles: map[string][]model.Candle{
			model.TF5m:  window,
			model.TF15m: window,
			e.timeframe: window,
		},
		Ticker: model.Ticker{
			Symbol: candle.Symbol,
			Price:  candle.Close,
			Volume: candle.Volume,
			TS:     candle.TS,
		},
	}

	sig := e.deps.Coordinator.EvaluateSymbol(in)
	if e.deps.Metrics != nil {
		e.deps.Metrics.EvalDur.Observe(time.Since(start).Seconds())
	}
	if sig == nil {
		return
	}

	assessment, err := e.deps.Risk.Assess(ctx, sig, e.userID)
	if err != nil {
		slog.Error("[live] risk assessment failed",
			append([]any{"signal", sig.ID, "error", err}, logger.Trace(ctx)...)...)
		return
	}
	if !assessment.Approved {
		slog.Info("[live] signal rejected",
			append([]any{"signal", sig.ID, "symbol", sig.Symbol, "reasons", assessment.Reason()}, logger.Trace(ctx)...)...)
		return
	}

	slog.Info("[live] signal approved",
		append([]any{
			"signal", sig.ID,
			"symbol", sig.Symbol,
			"strategy", sig.Strategy,
			"direction", sig.Direction,
			"confidence", sig.Confidence,
			"position_usd", assessment.PositionUSD,
			"risk_score", assessment.RiskScore,
		}, logger.Trace(ctx)...)...)

	e.deliver(ctx, sig, assessment)
}

func (e *Engine) deliver(ctx context.Context, sig *model.Signal, assessment risk.Assessment) {
	if e.deps.Publisher != nil {
		if err := e.deps.Publisher.PublishSignal(ctx, *sig); err != nil {
			slog.Error("[live] signal publish failed", "signal", sig.ID, "error", err)
		}
	}
	if e.deps.Store != nil {
		if err := e.deps.Store.SaveSignal(ctx, *sig); err != nil {
			slog.Error("[live] signal persist failed", "signal", sig.ID, "error", err)
		}
	}
	if e.deps.Hub != nil {
		e.deps.Hub.BroadcastSignal(sig)
	}
	if e.deps.Notifier != nil {
		alert := notification.SignalAlert(sig, assessment.PositionUSD)
		if err := e.deps.Notifier.Send(ctx, alert); err != nil {
			slog.Error("[live] alert delivery failed", "signal", sig.ID, "error", err)
		}
	}
}
