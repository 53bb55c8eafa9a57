package analytics

import (
	"sync"
	"time"

	"signal-systemv1/internal/model"
)

// DefaultStartingBalance seeds a user's account stats on first trade.
const DefaultStartingBalance = 1000.0

// AccountStats is the running performance state for one user. It is owned
// exclusively by the Tracker and mutated only through RecordTrade.
type AccountStats struct {
	UserID          string    `json:"user_id"`
	StartingBalance float64   `json:"starting_balance"`
	TotalTrades     int       `json:"total_trades"`
	WinningTrades   int       `json:"winning_trades"`
	LosingTrades    int       `json:"losing_trades"`
	TotalProfit     float64   `json:"total_profit"`
	EquityCurve     []float64 `json:"equity_curve"` // len = TotalTrades+1
	WinRate         float64   `json:"win_rate"`     // percent
	AvgWin          float64   `json:"avg_win"`
	AvgLoss         float64   `json:"avg_loss"` // positive number
	ProfitFactor    float64   `json:"profit_factor"`
	MaxDrawdown     float64   `json:"max_drawdown"`
	SharpeRatio     float64   `json:"sharpe_ratio"`
	LastUpdated     time.Time `json:"last_updated"`

	grossWin  float64
	grossLoss float64
}

// Balance is the current account balance implied by the equity curve.
func (s *AccountStats) Balance() float64 {
	return s.StartingBalance + s.TotalProfit
}

// Tracker maintains one AccountStats per user plus the trade history the
// report queries run over. State is guarded by a single mutex; recording a
// trade is cheap (the recompute walks only the equity curve).
type Tracker struct {
	mu     sync.Mutex
	stats  map[string]*AccountStats
	trades map[string][]model.TradeRecord
}

// NewTracker creates an empty performance tracker.
func NewTracker() *Tracker {
	return &Tracker{
		stats:  make(map[string]*AccountStats),
		trades: make(map[string][]model.TradeRecord),
	}
}

// RecordTrade folds a completed trade into the user's stats, initializing
// them lazily with the default starting balance.
func (t *Tracker) RecordTrade(userID string, trade model.TradeRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[userID]
	if !ok {
		s = &AccountStats{
			UserID:          userID,
			StartingBalance: DefaultStartingBalance,
			EquityCurve:     []float64{DefaultStartingBalance},
		}
		t.stats[userID] = s
	}

	s.TotalTrades++
	s.TotalProfit += trade.PnL
	if trade.Outcome == model.OutcomeWin {
		s.WinningTrades++
		s.grossWin += trade.PnL
	} else {
		s.LosingTrades++
		s.grossLoss += -trade.PnL
	}
	s.EquityCurve = append(s.EquityCurve, s.StartingBalance+s.TotalProfit)

	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	s.AvgWin, s.AvgLoss = 0, 0
	if s.WinningTrades > 0 {
		s.AvgWin = s.grossWin / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = s.grossLoss / float64(s.LosingTrades)
	}
	s.ProfitFactor = 0
	if s.grossLoss > 0 {
		s.ProfitFactor = s.grossWin / s.grossLoss
	}
	s.MaxDrawdown = MaxDrawdown(s.EquityCurve)
	s.SharpeRatio = SharpeRatio(s.EquityCurve)

	s.LastUpdated = trade.ExitTime
	if s.LastUpdated.IsZero() {
		s.LastUpdated = time.Now().UTC()
	}

	t.trades[userID] = append(t.trades[userID], trade)
}

// Stats returns a copy of the user's current stats. ok is false when the
// user has recorded no trades yet.
func (t *Tracker) Stats(userID string) (AccountStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.stats[userID]
	if !ok {
		return AccountStats{}, false
	}
	out := *s
	out.EquityCurve = append([]float64(nil), s.EquityCurve...)
	return out, true
}

// history returns the user's trades, oldest first (internal, caller locks).
func (t *Tracker) history(userID string) []model.TradeRecord {
	return t.trades[userID]
}
