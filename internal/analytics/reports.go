package analytics

import (
	"sort"
	"time"

	"signal-systemv1/internal/model"
)

// StrategyAggregate summarizes all trades a single strategy produced.
type StrategyAggregate struct {
	Strategy string  `json:"strategy"`
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	TotalPnL float64 `json:"total_pnl"`
	AvgPnL   float64 `json:"avg_pnl"`
}

// PeriodAggregate summarizes trades for one calendar day or month.
type PeriodAggregate struct {
	Period  string  `json:"period"` // "2024-06-01" or "2024-06"
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	PnL     float64 `json:"pnl"`
	WinRate float64 `json:"win_rate"`
}

// Streak is a run of consecutive same-outcome trades. A single trade is a
// streak of length 1.
type Streak struct {
	Outcome model.Outcome `json:"outcome"`
	Length  int           `json:"length"`
	PnL     float64       `json:"pnl"`
}

// Report bundles the per-user stats with the aggregate queries.
type Report struct {
	Stats        AccountStats        `json:"stats"`
	RecentTrades []model.TradeRecord `json:"recent_trades"`
	ByStrategy   []StrategyAggregate `json:"by_strategy"`
	ByDay        []PeriodAggregate   `json:"by_day"`
	ByMonth      []PeriodAggregate   `json:"by_month"`
	Streaks      []Streak            `json:"streaks"`
}

// Report builds the full performance report for a user: recent trades,
// per-strategy and per-period aggregates, and the streak decomposition.
// recentLimit bounds the recent-trades list; dayWindow bounds the per-day
// aggregates to a trailing number of days (0 = all).
func (t *Tracker) Report(userID string, recentLimit, dayWindow int) Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	var rep Report
	if s, ok := t.stats[userID]; ok {
		rep.Stats = *s
		rep.Stats.EquityCurve = append([]float64(nil), s.EquityCurve...)
	}

	trades := t.history(userID)
	rep.RecentTrades = recentTrades(trades, recentLimit)
	rep.ByStrategy = aggregateByStrategy(trades)
	rep.ByDay = aggregateByPeriod(trades, "2006-01-02", dayWindow)
	rep.ByMonth = aggregateByPeriod(trades, "2006-01", 0)
	rep.Streaks = streaks(trades)
	return rep
}

// recentTrades returns the newest trades up to limit, newest first.
func recentTrades(trades []model.TradeRecord, limit int) []model.TradeRecord {
	if limit <= 0 || limit > len(trades) {
		limit = len(trades)
	}
	out := make([]model.TradeRecord, 0, limit)
	for i := len(trades) - 1; i >= len(trades)-limit; i-- {
		out = append(out, trades[i])
	}
	return out
}

func aggregateByStrategy(trades []model.TradeRecord) []StrategyAggregate {
	byName := make(map[string]*StrategyAggregate)
	order := make([]string, 0, 4)
	for _, tr := range trades {
		agg, ok := byName[tr.Strategy]
		if !ok {
			agg = &StrategyAggregate{Strategy: tr.Strategy}
			byName[tr.Strategy] = agg
			order = append(order, tr.Strategy)
		}
		agg.Trades++
		if tr.Outcome == model.OutcomeWin {
			agg.Wins++
		}
		agg.TotalPnL += tr.PnL
	}

	out := make([]StrategyAggregate, 0, len(order))
	for _, name := range order {
		agg := byName[name]
		agg.AvgPnL = agg.TotalPnL / float64(agg.Trades)
		out = append(out, *agg)
	}
	return out
}

// aggregateByPeriod groups trades by exit-time period (UTC). When window>0
// only trades within the trailing window days are counted.
func aggregateByPeriod(trades []model.TradeRecord, layout string, window int) []PeriodAggregate {
	var cutoff time.Time
	if window > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -window)
	}

	byPeriod := make(map[string]*PeriodAggregate)
	for _, tr := range trades {
		if window > 0 && tr.ExitTime.Before(cutoff) {
			continue
		}
		key := tr.ExitTime.UTC().Format(layout)
		agg, ok := byPeriod[key]
		if !ok {
			agg = &PeriodAggregate{Period: key}
			byPeriod[key] = agg
		}
		agg.Trades++
		if tr.Outcome == model.OutcomeWin {
			agg.Wins++
		}
		agg.PnL += tr.PnL
	}

	out := make([]PeriodAggregate, 0, len(byPeriod))
	for _, agg := range byPeriod {
		agg.WinRate = float64(agg.Wins) / float64(agg.Trades) * 100
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// streaks scans trades oldest-to-newest, coalescing consecutive
// same-outcome trades into runs.
func streaks(trades []model.TradeRecord) []Streak {
	var out []Streak
	for _, tr := range trades {
		if n := len(out); n > 0 && out[n-1].Outcome == tr.Outcome {
			out[n-1].Length++
			out[n-1].PnL += tr.PnL
			continue
		}
		out = append(out, Streak{Outcome: tr.Outcome, Length: 1, PnL: tr.PnL})
	}
	return out
}
