package indicator

import (
	"math"

	"signal-systemv1/internal/model"
)

// ADX returns Wilder's Average Directional Index, a 0–100 trend-strength
// measure. Warmup: period candles to seed the smoothed TR/+DM/−DM, then
// period DX values to seed the ADX itself, so the window must hold at
// least 2×period+1 candles.
func ADX(candles []model.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < 2*period+1 {
		return 0, false
	}

	var tr14, pdm14, mdm14 float64
	var adx, dxSum float64
	dxCount := 0
	seeded := false

	p := float64(period)
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]

		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low

		var pdm, mdm float64
		if upMove > downMove && upMove > 0 {
			pdm = upMove
		}
		if downMove > upMove && downMove > 0 {
			mdm = downMove
		}
		tr := trueRange(cur, prev)

		if i <= period {
			// Phase A: accumulate initial averages.
			tr14 += tr
			pdm14 += pdm
			mdm14 += mdm
			if i == period {
				tr14 /= p
				pdm14 /= p
				mdm14 /= p
			}
			continue
		}

		// Wilder smoothing for TR/+DM/−DM.
		tr14 = (tr14*(p-1) + tr) / p
		pdm14 = (pdm14*(p-1) + pdm) / p
		mdm14 = (mdm14*(p-1) + mdm) / p

		if tr14 == 0 {
			continue
		}
		pdi := 100 * (pdm14 / tr14)
		mdi := 100 * (mdm14 / tr14)
		den := pdi + mdi
		if den == 0 {
			continue
		}
		dx := 100 * math.Abs(pdi-mdi) / den

		if !seeded {
			// Phase B: seed ADX with the average of the first period DX values.
			dxSum += dx
			dxCount++
			if dxCount == period {
				adx = dxSum / p
				seeded = true
			}
			continue
		}
		adx = (adx*(p-1) + dx) / p
	}

	if !seeded {
		return 0, false
	}
	return adx, true
}
