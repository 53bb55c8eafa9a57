package backtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"signal-systemv1/internal/model"
)

// SyntheticProvider generates deterministic random-walk candles. It backs
// dry runs and tests when no historical store is wired: the same symbol,
// timeframe, and window always produce the same series.
type SyntheticProvider struct {
	BasePrice  float64 // starting price, default 100
	Volatility float64 // per-candle stddev as a fraction of price, default 0.004
}

// GetCandles implements model.CandleProvider.
func (p *SyntheticProvider) GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]model.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step, err := timeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}

	base := p.BasePrice
	if base <= 0 {
		base = 100
	}
	vol := p.Volatility
	if vol <= 0 {
		vol = 0.004
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", symbol, timeframe, start.Unix())
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	price := base
	var out []model.Candle
	for ts := start; ts.Before(end); ts = ts.Add(step) {
		drift := rng.NormFloat64() * vol * price
		// A slow sine component gives the walk tradeable swings.
		cycle := math.Sin(float64(len(out))/40) * 0.001 * price
		open := price
		close := price + drift + cycle

		spread := math.Abs(rng.NormFloat64()) * vol * price
		high := math.Max(open, close) + spread
		low := math.Min(open, close) - spread
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volume := 1000 + rng.Float64()*500
		if rng.Float64() < 0.03 {
			volume *= 4 // occasional spike so volume-driven paths exercise
		}

		out = append(out, model.Candle{
			Symbol: symbol,
			TS:     ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
		price = close
	}
	return out, nil
}

// timeframeDuration parses interval keys like "5m", "15m", "1h".
func timeframeDuration(tf string) (time.Duration, error) {
	switch tf {
	case model.TF5m:
		return 5 * time.Minute, nil
	case model.TF15m:
		return 15 * time.Minute, nil
	case model.TF1h:
		return time.Hour, nil
	}
	d, err := time.ParseDuration(tf)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("unsupported timeframe %q", tf)
	}
	return d, nil
}
