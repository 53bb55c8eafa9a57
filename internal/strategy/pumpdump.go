package strategy

import (
	"fmt"
	"sync"
	"time"

	"signal-systemv1/config"
	"signal-systemv1/internal/indicator"
	"signal-systemv1/internal/model"
)

// pumpVolumeLookback is the trailing-average window for the volume spike
// check, shorter than the general lookback because pumps are fast.
const pumpVolumeLookback = 15

// PumpDump detects sudden moves backed by a volume spike on the 5m window:
// a "pump" (LONG) when the short-horizon price change exceeds the threshold
// with volume above the configured multiple of the trailing average, and a
// symmetric "dump" (SHORT) on a negative change.
//
// A per-symbol cooldown suppresses repeat signals on the same move. The
// cooldown map is the only mutable state; it is guarded by a mutex and
// expired lazily on read, so the strategy stays safe to share across
// symbols evaluated in parallel.
type PumpDump struct {
	cfg *config.TradingConfig

	mu       sync.Mutex
	lastFire map[string]time.Time
}

// NewPumpDump creates a pump/dump strategy using the shared thresholds.
func NewPumpDump(cfg *config.TradingConfig) *PumpDump {
	return &PumpDump{
		cfg:      cfg,
		lastFire: make(map[string]time.Time),
	}
}

func (p *PumpDump) Name() string { return NamePumpDump }

func (p *PumpDump) Analyze(in Input) *model.SignalProposal {
	candles := in.Window(model.TF5m)
	if len(candles) < pumpVolumeLookback+2 {
		return nil
	}
	now := evalTime(in)
	if p.onCooldown(in.Symbol, now) {
		return nil
	}

	// Change across the last two candles.
	ref := candles[len(candles)-3].Close
	if ref == 0 {
		return nil
	}
	last := candles[len(candles)-1].Close
	changePct := (last - ref) / ref * 100

	volRatio, ok := indicator.VolumeRatio(candles, pumpVolumeLookback)
	if !ok {
		return nil
	}
	atr, ok := indicator.ATR(candles, p.cfg.ATRPeriod)
	if !ok {
		return nil
	}

	var dir model.Direction
	switch {
	case changePct >= p.cfg.PumpChangePct && volRatio >= p.cfg.PumpVolumeMult:
		dir = model.Long
	case changePct <= -p.cfg.PumpChangePct && volRatio >= p.cfg.PumpVolumeMult:
		dir = model.Short
	default:
		return nil
	}

	price := in.Ticker.Price
	if price == 0 {
		price = last
	}

	confidence := 60.0 + 20 // qualifying volume/price combination

	stopDist := p.cfg.PumpStopATR * atr
	targetDist := p.cfg.PumpTargetATR * atr

	stop := price - stopDist
	target := price + targetDist
	if dir == model.Short {
		stop = price + stopDist
		target = price - targetDist
	}

	p.recordFire(in.Symbol, now)

	kind := "pump"
	if dir == model.Short {
		kind = "dump"
	}
	return &model.SignalProposal{
		Symbol:     in.Symbol,
		Direction:  dir,
		Confidence: clampConfidence(confidence),
		EntryPrice: price,
		StopLoss:   stop,
		TakeProfit: target,
		RiskReward: riskReward(price, stop, target),
		Strategy:   NamePumpDump,
		Rationale: fmt.Sprintf("%s detected: %+.2f%% move on %.1fx volume",
			kind, changePct, volRatio),
	}
}

// onCooldown reports whether the symbol fired within the cooldown window,
// deleting stale entries as it reads.
func (p *PumpDump) onCooldown(symbol string, now time.Time) bool {
	cooldown := time.Duration(p.cfg.PumpCooldownMin) * time.Minute

	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastFire[symbol]
	if !ok {
		return false
	}
	if now.Sub(last) >= cooldown {
		delete(p.lastFire, symbol)
		return false
	}
	return true
}

func (p *PumpDump) recordFire(symbol string, now time.Time) {
	p.mu.Lock()
	p.lastFire[symbol] = now
	p.mu.Unlock()
}
