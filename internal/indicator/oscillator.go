package indicator

import "signal-systemv1/internal/model"

// MACD fast/slow/signal periods (standard 12/26/9).
const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// RSI returns the Relative Strength Index over the window using Wilder's
// smoothing: the first period deltas seed the average gain/loss, the rest
// are smoothed in. Needs period+1 candles.
func RSI(candles []model.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := candles[i].Close - candles[i-1].Close
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(candles); i++ {
		delta := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// MACD returns the MACD line (fast EMA − slow EMA) and its signal line
// (EMA of the MACD series). Needs macdSlow+macdSignal candles.
func MACD(candles []model.Candle) (line, signal float64, ok bool) {
	if len(candles) < macdSlow+macdSignal {
		return 0, 0, false
	}

	prices := closes(candles)

	// Build the MACD series point by point so the signal line can be an
	// EMA over it rather than a single value.
	series := make([]float64, 0, len(prices)-macdSlow+1)
	for i := macdSlow; i <= len(prices); i++ {
		fast, _ := emaSeries(prices[:i], macdFast)
		slow, _ := emaSeries(prices[:i], macdSlow)
		series = append(series, fast-slow)
	}

	sig, okSig := emaSeries(series, macdSignal)
	if !okSig {
		return 0, 0, false
	}
	return series[len(series)-1], sig, true
}
