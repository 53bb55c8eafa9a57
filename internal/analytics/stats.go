// Package analytics computes account performance statistics from trade
// streams, live or simulated. The backtest engine uses the same drawdown
// and Sharpe functions, so simulated and live metrics stay comparable.
package analytics

import "math"

// MaxDrawdown returns the largest peak-to-trough percentage decline over an
// equity curve, in [0, 100]. A non-decreasing curve has drawdown 0.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) < 2 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak > 0 {
			dd := (peak - v) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// SharpeRatio returns the unannualized Sharpe ratio of the per-step returns
// of an equity curve, assuming a zero risk-free rate: mean return divided by
// the standard deviation of returns. Defined as 0 when fewer than 2 equity
// points exist or the returns have zero variance.
func SharpeRatio(equity []float64) float64 {
	returns := stepReturns(equity)
	if len(returns) == 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance)
}

// stepReturns converts an equity curve into per-step discrete returns,
// skipping steps that start from zero equity.
func stepReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			continue
		}
		out = append(out, (equity[i]-equity[i-1])/equity[i-1])
	}
	return out
}
