// Package backtest replays historical candles through the strategy
// coordinator, simulates the position lifecycle, and aggregates
// risk-adjusted results. Backtests are read-only with respect to live
// account state; persisting results is the caller's concern.
package backtest

import (
	"sort"
	"time"

	"signal-systemv1/internal/analytics"
	"signal-systemv1/internal/model"
)

// DailyPerf is one calendar day of backtest activity. Days with no trades
// are present and zeroed.
type DailyPerf struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	PnL     float64 `json:"pnl"`
	WinRate float64 `json:"win_rate"`
}

// SymbolResult is the outcome of one symbol's independent simulation.
type SymbolResult struct {
	Symbol       string              `json:"symbol"`
	Trades       []model.TradeRecord `json:"trades"`
	FinalBalance float64             `json:"final_balance"`
	EquityCurve  []float64           `json:"equity_curve"`
	Err          string              `json:"error,omitempty"` // isolated per-symbol failure
}

// Result is the aggregate outcome of a backtest run.
type Result struct {
	StartDate      time.Time           `json:"start_date"`
	EndDate        time.Time           `json:"end_date"`
	InitialBalance float64             `json:"initial_balance"`
	TotalTrades    int                 `json:"total_trades"`
	WinningTrades  int                 `json:"winning_trades"`
	LosingTrades   int                 `json:"losing_trades"`
	TotalProfit    float64             `json:"total_profit"`
	FinalBalance   float64             `json:"final_balance"`
	MaxDrawdown    float64             `json:"max_drawdown"`
	SharpeRatio    float64             `json:"sharpe_ratio"`
	Daily          []DailyPerf         `json:"daily"`
	Trades         []model.TradeRecord `json:"trades"`
	PerSymbol      []SymbolResult      `json:"per_symbol"`
	Partial        bool                `json:"partial"` // cancelled mid-run
}

// aggregate folds per-symbol results into the overall Result. Trade lists
// concatenate and counters sum, so per-symbol ordering does not matter;
// the combined trade list is re-sorted by exit time for the equity curve.
func aggregate(opts Options, perSymbol []SymbolResult, partial bool) *Result {
	res := &Result{
		StartDate:      opts.StartDate,
		EndDate:        opts.EndDate,
		InitialBalance: opts.InitialBalance,
		PerSymbol:      perSymbol,
		Partial:        partial,
	}

	for _, sr := range perSymbol {
		res.Trades = append(res.Trades, sr.Trades...)
	}
	sort.SliceStable(res.Trades, func(i, j int) bool {
		a, b := res.Trades[i], res.Trades[j]
		if !a.ExitTime.Equal(b.ExitTime) {
			return a.ExitTime.Before(b.ExitTime)
		}
		return a.Symbol < b.Symbol
	})

	equity := make([]float64, 0, len(res.Trades)+1)
	equity = append(equity, opts.InitialBalance)
	balance := opts.InitialBalance
	for _, tr := range res.Trades {
		res.TotalTrades++
		if tr.Outcome == model.OutcomeWin {
			res.WinningTrades++
		} else {
			res.LosingTrades++
		}
		res.TotalProfit += tr.PnL
		balance += tr.PnL
		equity = append(equity, balance)
	}
	res.FinalBalance = balance
	res.MaxDrawdown = analytics.MaxDrawdown(equity)
	res.SharpeRatio = analytics.SharpeRatio(equity)
	res.Daily = dailyBreakdown(opts.StartDate, opts.EndDate, res.Trades)
	return res
}

// dailyBreakdown covers every calendar day in [start, end] inclusive,
// including zero-activity days.
func dailyBreakdown(start, end time.Time, trades []model.TradeRecord) []DailyPerf {
	const layout = "2006-01-02"

	byDay := make(map[string]*DailyPerf)
	for _, tr := range trades {
		key := tr.ExitTime.UTC().Format(layout)
		d, ok := byDay[key]
		if !ok {
			d = &DailyPerf{Date: key}
			byDay[key] = d
		}
		d.Trades++
		if tr.Outcome == model.OutcomeWin {
			d.Wins++
		}
		d.PnL += tr.PnL
	}

	var out []DailyPerf
	for day := start.UTC().Truncate(24 * time.Hour); !day.After(end.UTC()); day = day.AddDate(0, 0, 1) {
		key := day.Format(layout)
		if d, ok := byDay[key]; ok {
			if d.Trades > 0 {
				d.WinRate = float64(d.Wins) / float64(d.Trades) * 100
			}
			out = append(out, *d)
			continue
		}
		out = append(out, DailyPerf{Date: key})
	}
	return out
}
