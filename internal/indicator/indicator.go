// Package indicator provides technical indicator calculations over candle
// windows.
//
// Every function here is a pure computation over an ordered candle slice
// (oldest first): no side effects, fully deterministic, and safe to run in
// parallel across symbols. Functions return ok=false when the window is too
// short for the requested period; callers must treat that as "insufficient
// data" rather than an error.
package indicator

import (
	"signal-systemv1/config"
	"signal-systemv1/internal/model"
)

// Set is a read-only snapshot of the indicators a strategy evaluation needs,
// computed from a single candle window. It is recomputed per evaluation call
// and never mutated.
type Set struct {
	FastMA     float64
	SlowMA     float64
	RSI        float64
	ADX        float64
	ATR        float64
	MACD       float64
	MACDSignal float64

	// OK is true only when the window was long enough for every indicator
	// above. Strategies must emit no proposal when OK is false.
	OK bool
}

// Compute assembles a Set from the window using the configured periods.
func Compute(candles []model.Candle, cfg *config.TradingConfig) Set {
	var s Set

	fast, okFast := EMA(candles, cfg.FastMAPeriod)
	slow, okSlow := EMA(candles, cfg.SlowMAPeriod)
	rsi, okRSI := RSI(candles, cfg.RSIPeriod)
	adx, okADX := ADX(candles, cfg.ADXPeriod)
	atr, okATR := ATR(candles, cfg.ATRPeriod)
	macd, macdSig, okMACD := MACD(candles)

	s.FastMA, s.SlowMA = fast, slow
	s.RSI, s.ADX, s.ATR = rsi, adx, atr
	s.MACD, s.MACDSignal = macd, macdSig
	s.OK = okFast && okSlow && okRSI && okADX && okATR && okMACD
	return s
}

func closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
