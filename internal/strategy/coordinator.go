package strategy

import (
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"signal-systemv1/config"
	"signal-systemv1/internal/indicator"
	"signal-systemv1/internal/markethours"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
)

// confirmLookback is the preceding-window size for the coordinator's
// secondary volume-confirmation pass.
const confirmLookback = 10

// Coordinator fans an evaluation out to all active strategies, filters and
// picks the best proposal, and enriches it with volume confirmation.
//
// The only mutable state is the per-symbol cooldown map and the signal
// counter; both are guarded and partitionable by symbol, so independent
// symbols evaluate in parallel safely.
type Coordinator struct {
	cfg        *config.TradingConfig
	strategies []Strategy
	met        *metrics.Metrics

	mu         sync.Mutex
	lastSignal map[string]time.Time

	signalCount atomic.Int64
	entropy     *ulid.MonotonicEntropy
	entropyMu   sync.Mutex
}

// NewCoordinator builds a coordinator over the given strategies. Strategy
// order is significant: on equal confidence the earlier strategy wins.
// met may be nil (backtests run without collectors).
func NewCoordinator(cfg *config.TradingConfig, strategies []Strategy, met *metrics.Metrics) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		strategies: strategies,
		met:        met,
		lastSignal: make(map[string]time.Time),
		entropy:    ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// EvaluateSymbol is the live entry point: applies the global per-symbol
// cooldown, the minimum price floor, and the optimal-hours filter before
// running the strategies. A nil signal means "nothing to trade right now".
func (c *Coordinator) EvaluateSymbol(in Input) *model.Signal {
	now := evalTime(in)

	if in.Ticker.Price < c.cfg.MinTickerPrice {
		c.suppressed("price_floor")
		return nil
	}
	if c.cfg.OptimalHoursEnabled && !markethours.InOptimalHours(now, c.cfg.OptimalHours) {
		c.suppressed("off_hours")
		return nil
	}
	if c.onCooldown(in.Symbol, now) {
		c.suppressed("cooldown")
		return nil
	}

	sig := c.Select(in)
	if sig == nil {
		return nil
	}

	c.recordSignal(in.Symbol, now)
	return sig
}

// Select runs the strategies and picks the single best proposal, skipping
// the live cooldown/time filters. The backtest engine calls this directly
// so replays stay deterministic.
func (c *Coordinator) Select(in Input) *model.Signal {
	var best *model.SignalProposal
	for _, s := range c.strategies {
		p := s.Analyze(in)
		if p == nil || p.Confidence < c.cfg.MinSignalConfidence {
			continue
		}
		// Strict > keeps the declaration-order tie-break: first wins.
		if best == nil || p.Confidence > best.Confidence {
			best = p
		}
	}
	if best == nil {
		return nil
	}

	sig := &model.Signal{
		SignalProposal: *best,
		ID:             c.newID(evalTime(in)),
		IssuedAt:       evalTime(in),
	}
	c.confirmVolume(in, sig)

	if c.met != nil {
		c.met.SignalsTotal.WithLabelValues(sig.Strategy, string(sig.Direction)).Inc()
	}
	return sig
}

// confirmVolume grades the latest candle's volume against the preceding
// window and folds the grade into the signal's confidence.
func (c *Coordinator) confirmVolume(in Input, sig *model.Signal) {
	candles := in.Window(model.TF5m)
	if len(candles) < confirmLookback+1 {
		candles = in.Window(model.TF15m)
	}

	ratio, ok := indicator.VolumeRatio(candles, confirmLookback)
	if !ok {
		sig.VolumeStrength = model.VolumeLow
		return
	}
	sig.VolumeRatio = ratio

	switch {
	case ratio > 2.0:
		sig.VolumeStrength = model.VolumeStrong
		sig.Confidence = clampConfidence(sig.Confidence + 10)
	case ratio >= 1.5:
		sig.VolumeStrength = model.VolumeMedium
		sig.Confidence = clampConfidence(sig.Confidence + 5)
	default:
		sig.VolumeStrength = model.VolumeLow
	}
}

// SignalCount returns the number of signals issued since start.
func (c *Coordinator) SignalCount() int64 {
	return c.signalCount.Load()
}

func (c *Coordinator) onCooldown(symbol string, now time.Time) bool {
	cooldown := time.Duration(c.cfg.SignalCooldownMin) * time.Minute

	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.lastSignal[symbol]
	if !ok {
		return false
	}
	if now.Sub(last) >= cooldown {
		delete(c.lastSignal, symbol)
		return false
	}
	return true
}

func (c *Coordinator) recordSignal(symbol string, now time.Time) {
	c.mu.Lock()
	c.lastSignal[symbol] = now
	c.mu.Unlock()

	n := c.signalCount.Add(1)
	slog.Debug("signal issued", "symbol", symbol, "total", n)
}

func (c *Coordinator) suppressed(reason string) {
	if c.met != nil {
		c.met.SignalsSuppressed.WithLabelValues(reason).Inc()
	}
}

func (c *Coordinator) newID(ts time.Time) string {
	c.entropyMu.Lock()
	defer c.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(ts), c.entropy).String()
}
