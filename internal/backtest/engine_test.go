package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-systemv1/config"
	"signal-systemv1/internal/model"
)

func testOptions() Options {
	return Options{
		Symbols:        []string{"BTCUSDT", "ETHUSDT"},
		Timeframe:      model.TF15m,
		StartDate:      time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		InitialBalance: 1000,
		Leverage:       2,
	}
}

func newTestEngine() *Engine {
	return NewEngine(config.DefaultTrading(), &SyntheticProvider{}, nil)
}

func TestRunValidatesOptions(t *testing.T) {
	e := newTestEngine()

	opts := testOptions()
	opts.Symbols = nil
	_, err := e.Run(context.Background(), opts)
	require.Error(t, err)

	opts = testOptions()
	opts.EndDate = opts.StartDate
	_, err = e.Run(context.Background(), opts)
	require.Error(t, err)

	opts = testOptions()
	opts.Strategies = []string{"nope"}
	_, err = e.Run(context.Background(), opts)
	require.Error(t, err)
}

func TestRunIsDeterministic(t *testing.T) {
	e := newTestEngine()
	opts := testOptions()

	first, err := e.Run(context.Background(), opts)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), opts)
	require.NoError(t, err)

	require.Equal(t, len(first.Trades), len(second.Trades))
	for i := range first.Trades {
		assert.Equal(t, first.Trades[i].ID, second.Trades[i].ID)
		assert.Equal(t, first.Trades[i].PnL, second.Trades[i].PnL)
		assert.Equal(t, first.Trades[i].EntryTime, second.Trades[i].EntryTime)
	}
	assert.Equal(t, first.TotalProfit, second.TotalProfit)
	assert.Equal(t, first.MaxDrawdown, second.MaxDrawdown)
	assert.Equal(t, first.SharpeRatio, second.SharpeRatio)
}

func TestRunResultInvariants(t *testing.T) {
	e := newTestEngine()
	opts := testOptions()

	res, err := e.Run(context.Background(), opts)
	require.NoError(t, err)
	require.False(t, res.Partial)

	assert.Equal(t, res.TotalTrades, res.WinningTrades+res.LosingTrades)
	assert.Equal(t, res.TotalTrades, len(res.Trades))
	assert.InDelta(t, opts.InitialBalance+res.TotalProfit, res.FinalBalance, 1e-9)
	assert.GreaterOrEqual(t, res.MaxDrawdown, 0.0)
	assert.LessOrEqual(t, res.MaxDrawdown, 100.0)

	for _, sr := range res.PerSymbol {
		assert.Empty(t, sr.Err)
		assert.Len(t, sr.EquityCurve, len(sr.Trades)+1, "equity curve has a point per trade plus the start")
	}
	for _, tr := range res.Trades {
		assert.False(t, tr.ExitTime.Before(tr.EntryTime))
		if tr.PnL > 0 {
			assert.Equal(t, model.OutcomeWin, tr.Outcome)
		} else {
			assert.Equal(t, model.OutcomeLoss, tr.Outcome)
		}
	}
}

func TestRunDailyBreakdownCoversEveryDay(t *testing.T) {
	e := newTestEngine()
	opts := testOptions()

	res, err := e.Run(context.Background(), opts)
	require.NoError(t, err)

	// Mar 1 through Mar 8 inclusive.
	require.Len(t, res.Daily, 8)
	assert.Equal(t, "2025-03-01", res.Daily[0].Date)
	assert.Equal(t, "2025-03-08", res.Daily[len(res.Daily)-1].Date)

	trades, pnl := 0, 0.0
	for _, d := range res.Daily {
		trades += d.Trades
		pnl += d.PnL
		if d.Trades == 0 {
			assert.Zero(t, d.WinRate)
		}
	}
	assert.Equal(t, res.TotalTrades, trades)
	assert.InDelta(t, res.TotalProfit, pnl, 1e-9)
}

func TestRunCancelledReturnsPartial(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Run(ctx, testOptions())
	require.NoError(t, err)
	assert.True(t, res.Partial)
	assert.Empty(t, res.Trades)
}

func TestExitTouchedDirectionAware(t *testing.T) {
	long := &model.Position{Direction: model.Long, StopLoss: 95, TakeProfit: 110}
	short := &model.Position{Direction: model.Short, StopLoss: 105, TakeProfit: 90}

	price, hit := exitTouched(long, model.Candle{High: 111, Low: 100})
	require.True(t, hit)
	assert.Equal(t, 110.0, price)

	price, hit = exitTouched(long, model.Candle{High: 101, Low: 94})
	require.True(t, hit)
	assert.Equal(t, 95.0, price)

	_, hit = exitTouched(long, model.Candle{High: 105, Low: 99})
	assert.False(t, hit)

	price, hit = exitTouched(short, model.Candle{High: 100, Low: 89})
	require.True(t, hit)
	assert.Equal(t, 90.0, price)

	price, hit = exitTouched(short, model.Candle{High: 106, Low: 98})
	require.True(t, hit)
	assert.Equal(t, 105.0, price)
}

func TestOpenPositionSizing(t *testing.T) {
	sig := &model.Signal{SignalProposal: model.SignalProposal{
		Symbol:     "BTCUSDT",
		Direction:  model.Long,
		EntryPrice: 50000,
		StopLoss:   49000,
		TakeProfit: 52000,
		Strategy:   "breakout",
	}}

	pos := openPosition(sig, 1000, 3, time.Now())
	require.NotNil(t, pos)
	assert.InDelta(t, 60.0, pos.USDValue, 1e-9) // 1000 × 2% × 3
	assert.InDelta(t, 60.0/50000, pos.Amount, 1e-12)

	sig.EntryPrice = 0
	assert.Nil(t, openPosition(sig, 1000, 3, time.Now()))
}

func TestSyntheticProviderDeterministicSeries(t *testing.T) {
	p := &SyntheticProvider{}
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	a, err := p.GetCandles(context.Background(), "BTCUSDT", model.TF15m, start, end)
	require.NoError(t, err)
	b, err := p.GetCandles(context.Background(), "BTCUSDT", model.TF15m, start, end)
	require.NoError(t, err)
	require.Equal(t, a, b)
	assert.Len(t, a, 96)

	c, err := p.GetCandles(context.Background(), "ETHUSDT", model.TF15m, start, end)
	require.NoError(t, err)
	assert.NotEqual(t, a[10].Close, c[10].Close, "different symbols walk differently")

	for _, candle := range a {
		assert.GreaterOrEqual(t, candle.High, candle.Open)
		assert.GreaterOrEqual(t, candle.High, candle.Close)
		assert.LessOrEqual(t, candle.Low, candle.Open)
		assert.LessOrEqual(t, candle.Low, candle.Close)
		assert.Greater(t, candle.Volume, 0.0)
	}

	_, err = p.GetCandles(context.Background(), "BTCUSDT", "banana", start, end)
	assert.Error(t, err)
}
