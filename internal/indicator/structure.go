package indicator

import "signal-systemv1/internal/model"

const (
	structureLookback = 10 // last-5 vs prior-5 extremes
	snrLookback       = 20
)

// VolumeRatio returns the latest candle's volume divided by the mean of the
// preceding n volumes. ok is false when fewer than n+1 candles exist or the
// trailing mean is zero.
func VolumeRatio(candles []model.Candle, n int) (float64, bool) {
	if n <= 0 || len(candles) < n+1 {
		return 0, false
	}
	sum := 0.0
	for i := len(candles) - n - 1; i < len(candles)-1; i++ {
		sum += candles[i].Volume
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 0, false
	}
	return candles[len(candles)-1].Volume / mean, true
}

// MarketStructure classifies the window by comparing the high/low extremes
// of the last 5 candles against the prior 5: higher highs and higher lows
// is BULLISH, lower highs and lower lows is BEARISH, anything else RANGING.
func MarketStructure(candles []model.Candle) (model.MarketStructure, bool) {
	if len(candles) < structureLookback {
		return model.StructureRanging, false
	}

	recent := candles[len(candles)-5:]
	prior := candles[len(candles)-10 : len(candles)-5]

	recentHigh, recentLow := extremes(recent)
	priorHigh, priorLow := extremes(prior)

	switch {
	case recentHigh > priorHigh && recentLow > priorLow:
		return model.StructureBullish, true
	case recentHigh < priorHigh && recentLow < priorLow:
		return model.StructureBearish, true
	default:
		return model.StructureRanging, true
	}
}

// SupportResistance returns the min low and max high over the trailing 20
// candles plus a quality score of range/midpoint.
func SupportResistance(candles []model.Candle) (model.SupportResistance, bool) {
	if len(candles) < snrLookback {
		return model.SupportResistance{}, false
	}
	window := candles[len(candles)-snrLookback:]
	high, low := extremes(window)

	snr := model.SupportResistance{Support: low, Resistance: high}
	mid := (high + low) / 2
	if mid != 0 {
		snr.Quality = (high - low) / mid
	}
	return snr, true
}

func extremes(candles []model.Candle) (high, low float64) {
	high, low = candles[0].High, candles[0].Low
	for _, c := range candles[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}
