package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-systemv1/internal/model"
)

func trade(pnl float64, strategy string, exit time.Time) model.TradeRecord {
	tr := model.TradeRecord{
		ID:       fmt.Sprintf("t-%d", exit.UnixNano()),
		Symbol:   "BTCUSDT",
		Strategy: strategy,
		PnL:      pnl,
		ExitTime: exit,
	}
	tr.ResolveOutcome()
	return tr
}

func TestRecordTradeInitializesAndUpdates(t *testing.T) {
	tr := NewTracker()
	exit := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	tr.RecordTrade("u1", trade(-50, "breakout", exit))

	s, ok := tr.Stats("u1")
	require.True(t, ok)
	assert.Equal(t, 1, s.TotalTrades)
	assert.Equal(t, 1, s.LosingTrades)
	assert.Equal(t, -50.0, s.TotalProfit)
	assert.Equal(t, []float64{1000, 950}, s.EquityCurve)
	assert.Equal(t, 950.0, s.Balance())
	assert.Equal(t, 0.0, s.WinRate)
	assert.Equal(t, 50.0, s.AvgLoss)
	assert.Equal(t, exit, s.LastUpdated)

	_, ok = tr.Stats("unknown")
	assert.False(t, ok)
}

func TestRecordTradeDerivedRatios(t *testing.T) {
	tr := NewTracker()
	base := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	tr.RecordTrade("u1", trade(100, "breakout", base))
	tr.RecordTrade("u1", trade(60, "breakout", base.Add(time.Hour)))
	tr.RecordTrade("u1", trade(-40, "pump_dump", base.Add(2*time.Hour)))

	s, ok := tr.Stats("u1")
	require.True(t, ok)
	assert.Equal(t, 3, s.TotalTrades)
	assert.InDelta(t, 66.666, s.WinRate, 0.01)
	assert.Equal(t, 80.0, s.AvgWin)   // (100+60)/2
	assert.Equal(t, 40.0, s.AvgLoss)  // positive magnitude
	assert.Equal(t, 4.0, s.ProfitFactor)
	assert.Len(t, s.EquityCurve, 4)
}

func TestStatsReturnsCopy(t *testing.T) {
	tr := NewTracker()
	tr.RecordTrade("u1", trade(10, "breakout", time.Now().UTC()))

	s, _ := tr.Stats("u1")
	s.EquityCurve[0] = -1

	again, _ := tr.Stats("u1")
	assert.Equal(t, 1000.0, again.EquityCurve[0], "caller mutations do not leak back")
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(nil))
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1000, 1100, 1200}), "non-decreasing curve has zero drawdown")
	assert.InDelta(t, 25.0, MaxDrawdown([]float64{1000, 1200, 900, 1100}), 1e-9) // 1200→900
	assert.InDelta(t, 50.0, MaxDrawdown([]float64{1000, 500, 2000, 1500}), 1e-9)
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, SharpeRatio([]float64{1000}))
	assert.Equal(t, 0.0, SharpeRatio([]float64{1000, 1000, 1000}), "zero variance yields zero, not a division failure")
	assert.Greater(t, SharpeRatio([]float64{1000, 1100, 1190, 1300}), 0.0)
	assert.Less(t, SharpeRatio([]float64{1000, 900, 820, 700}), 0.0)
}

func TestReportAggregates(t *testing.T) {
	tr := NewTracker()
	day1 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

	tr.RecordTrade("u1", trade(100, "breakout", day1))
	tr.RecordTrade("u1", trade(50, "breakout", day1.Add(time.Hour)))
	tr.RecordTrade("u1", trade(-30, "trend_follow", day2))
	tr.RecordTrade("u1", trade(-20, "breakout", day2.Add(time.Hour)))
	tr.RecordTrade("u1", trade(80, "pump_dump", day2.Add(2*time.Hour)))

	rep := tr.Report("u1", 3, 0)

	require.Len(t, rep.RecentTrades, 3)
	assert.Equal(t, 80.0, rep.RecentTrades[0].PnL, "newest first")
	assert.Equal(t, -30.0, rep.RecentTrades[2].PnL)

	require.Len(t, rep.ByStrategy, 3)
	assert.Equal(t, "breakout", rep.ByStrategy[0].Strategy, "insertion order")
	assert.Equal(t, 3, rep.ByStrategy[0].Trades)
	assert.Equal(t, 2, rep.ByStrategy[0].Wins)
	assert.InDelta(t, 130.0, rep.ByStrategy[0].TotalPnL, 1e-9)
	assert.InDelta(t, 130.0/3, rep.ByStrategy[0].AvgPnL, 1e-9)

	require.Len(t, rep.ByDay, 2)
	assert.Equal(t, "2025-03-01", rep.ByDay[0].Period)
	assert.Equal(t, 100.0, rep.ByDay[0].WinRate)
	assert.Equal(t, "2025-03-02", rep.ByDay[1].Period)
	assert.InDelta(t, 30.0, rep.ByDay[1].PnL, 1e-9)

	require.Len(t, rep.ByMonth, 1)
	assert.Equal(t, "2025-03", rep.ByMonth[0].Period)
	assert.Equal(t, 5, rep.ByMonth[0].Trades)

	// win, win | loss, loss | win.
	require.Len(t, rep.Streaks, 3)
	assert.Equal(t, model.OutcomeWin, rep.Streaks[0].Outcome)
	assert.Equal(t, 2, rep.Streaks[0].Length)
	assert.InDelta(t, 150.0, rep.Streaks[0].PnL, 1e-9)
	assert.Equal(t, 2, rep.Streaks[1].Length)
	assert.Equal(t, 1, rep.Streaks[2].Length)

	empty := tr.Report("nobody", 10, 0)
	assert.Empty(t, empty.RecentTrades)
	assert.Empty(t, empty.Streaks)
}
