package strategy

import (
	"fmt"

	"signal-systemv1/config"
	"signal-systemv1/internal/indicator"
	"signal-systemv1/internal/model"
)

// TrendFollow rides established trends: LONG when the fast MA is above the
// slow MA with trend strength behind it and the oscillator not yet
// overbought; SHORT symmetric.
type TrendFollow struct {
	cfg *config.TradingConfig
}

// NewTrendFollow creates a trend-following strategy using the shared thresholds.
func NewTrendFollow(cfg *config.TradingConfig) *TrendFollow {
	return &TrendFollow{cfg: cfg}
}

func (t *TrendFollow) Name() string { return NameTrendFollow }

func (t *TrendFollow) Analyze(in Input) *model.SignalProposal {
	candles := in.Window(model.TF15m)
	set := indicator.Compute(candles, t.cfg)
	if !set.OK {
		return nil
	}
	price := in.Ticker.Price
	if price == 0 {
		return nil
	}

	longTrend := set.FastMA > set.SlowMA && set.ADX > t.cfg.MinTrendStrength && set.RSI < 70
	shortTrend := set.FastMA < set.SlowMA && set.ADX > t.cfg.MinTrendStrength && set.RSI > 30

	var dir model.Direction
	switch {
	case longTrend:
		dir = model.Long
	case shortTrend:
		dir = model.Short
	default:
		return nil
	}

	confidence := 70.0 // qualifying trend
	if set.ADX > t.cfg.StrongTrendStrength {
		confidence += 10
	}
	if (dir == model.Long && set.MACD > set.MACDSignal) ||
		(dir == model.Short && set.MACD < set.MACDSignal) {
		confidence += 8 // momentum confirms direction
	}

	stopDist := t.cfg.TrendStopATR * set.ATR
	targetDist := t.cfg.TrendTargetATR * set.ATR

	stop := price - stopDist
	target := price + targetDist
	if dir == model.Short {
		stop = price + stopDist
		target = price - targetDist
	}

	return &model.SignalProposal{
		Symbol:     in.Symbol,
		Direction:  dir,
		Confidence: clampConfidence(confidence),
		EntryPrice: price,
		StopLoss:   stop,
		TakeProfit: target,
		RiskReward: riskReward(price, stop, target),
		Strategy:   NameTrendFollow,
		Rationale: fmt.Sprintf("%s trend (fast %.4f vs slow %.4f, adx %.1f, rsi %.1f)",
			dir, set.FastMA, set.SlowMA, set.ADX, set.RSI),
	}
}
