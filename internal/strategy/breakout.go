package strategy

import (
	"fmt"

	"signal-systemv1/config"
	"signal-systemv1/internal/indicator"
	"signal-systemv1/internal/model"
)

// Breakout proposes trades when price approaches a support/resistance level
// with the trend and market structure behind it.
//
// LONG: price within the tolerance band of resistance, fast MA above slow
// MA, structure not BEARISH. SHORT is symmetric at support.
type Breakout struct {
	cfg *config.TradingConfig
}

// NewBreakout creates a breakout strategy using the shared thresholds.
func NewBreakout(cfg *config.TradingConfig) *Breakout {
	return &Breakout{cfg: cfg}
}

func (b *Breakout) Name() string { return NameBreakout }

func (b *Breakout) Analyze(in Input) *model.SignalProposal {
	candles := in.Window(model.TF15m)
	set := indicator.Compute(candles, b.cfg)
	if !set.OK {
		return nil
	}
	structure, ok := indicator.MarketStructure(candles)
	if !ok {
		return nil
	}
	volRatio, ok := indicator.VolumeRatio(candles, b.cfg.VolumeLookback)
	if !ok {
		return nil
	}
	snr := in.SNR
	if snr.Resistance == 0 && snr.Support == 0 {
		if snr, ok = indicator.SupportResistance(candles); !ok {
			return nil
		}
	}

	price := in.Ticker.Price
	if price == 0 {
		return nil
	}

	nearResistance := snr.Resistance > 0 && withinPct(price, snr.Resistance, b.cfg.BreakoutTolerance)
	nearSupport := snr.Support > 0 && withinPct(price, snr.Support, b.cfg.BreakoutTolerance)

	switch {
	case nearResistance && set.FastMA > set.SlowMA && structure != model.StructureBearish:
		return b.propose(in.Symbol, model.Long, snr.Resistance, set, structure, volRatio)
	case nearSupport && set.FastMA < set.SlowMA && structure != model.StructureBullish:
		return b.propose(in.Symbol, model.Short, snr.Support, set, structure, volRatio)
	}
	return nil
}

func (b *Breakout) propose(symbol string, dir model.Direction, level float64,
	set indicator.Set, structure model.MarketStructure, volRatio float64) *model.SignalProposal {

	confidence := 60.0
	if (dir == model.Long && structure == model.StructureBullish) ||
		(dir == model.Short && structure == model.StructureBearish) {
		confidence += 15 // structure confirms the breakout direction
	}
	if set.ADX > b.cfg.MinTrendStrength {
		confidence += 10
	}
	if volRatio > 1.5 {
		confidence += 8
	}
	if (dir == model.Long && set.RSI < 70) || (dir == model.Short && set.RSI > 30) {
		confidence += 7 // oscillator not overextended in the breakout direction
	}

	stopDist := b.cfg.BreakoutStopATR * set.ATR
	targetDist := b.cfg.BreakoutTargetATR * set.ATR

	stop := level - stopDist
	target := level + targetDist
	if dir == model.Short {
		stop = level + stopDist
		target = level - targetDist
	}

	return &model.SignalProposal{
		Symbol:     symbol,
		Direction:  dir,
		Confidence: clampConfidence(confidence),
		EntryPrice: level,
		StopLoss:   stop,
		TakeProfit: target,
		RiskReward: riskReward(level, stop, target),
		Strategy:   NameBreakout,
		Rationale: fmt.Sprintf("%s breakout at %.4f (structure %s, adx %.1f, vol %.2fx)",
			dir, level, structure, set.ADX, volRatio),
	}
}

// withinPct reports whether price is inside the pct band around level.
func withinPct(price, level, pct float64) bool {
	diff := price - level
	if diff < 0 {
		diff = -diff
	}
	return diff/level*100 <= pct
}
