package indicator

import "signal-systemv1/internal/model"

// SMA returns the simple moving average of closing prices over the last
// period candles. ok is false when the window is shorter than period.
func SMA(candles []model.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period {
		return 0, false
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period), true
}

// EMA returns the exponential moving average of closing prices, seeded with
// an SMA of the first period closes and walked forward over the rest of the
// window.
func EMA(candles []model.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period {
		return 0, false
	}
	return emaSeries(closes(candles), period)
}

// emaSeries runs an EMA over a raw value series.
func emaSeries(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	multiplier := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
	}
	return ema, true
}
