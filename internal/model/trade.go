package model

import "time"

// Outcome labels a completed trade. A trade is a win iff its PnL is
// strictly positive.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// Position is an open simulated trade. At most one position per symbol is
// open at a time; it is destroyed (converted to a TradeRecord) on exit.
type Position struct {
	Symbol     string    `json:"symbol"`
	Strategy   string    `json:"strategy"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	Amount     float64   `json:"amount"`    // units of the instrument
	USDValue   float64   `json:"usd_value"` // exposure at entry
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Leverage   float64   `json:"leverage"`
}

// TradeRecord is one completed round-trip trade. Records are immutable and
// form an append-only sequence consumed by performance analytics.
type TradeRecord struct {
	ID         string    `json:"id"` // ULID
	Symbol     string    `json:"symbol"`
	Strategy   string    `json:"strategy"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Amount     float64   `json:"amount"`
	PnL        float64   `json:"pnl"`
	PnLPercent float64   `json:"pnl_percent"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	DurationMs int64     `json:"duration_ms"`
	Outcome    Outcome   `json:"outcome"`
}

// ResolveOutcome sets Outcome from PnL. Zero-PnL trades count as losses.
func (t *TradeRecord) ResolveOutcome() {
	if t.PnL > 0 {
		t.Outcome = OutcomeWin
	} else {
		t.Outcome = OutcomeLoss
	}
}

// Close converts an open position into a TradeRecord at the given exit
// price and time. PnL is directional: (exit−entry)×amount for longs,
// (entry−exit)×amount for shorts.
func (p *Position) Close(id string, exitPrice float64, exitTime time.Time) TradeRecord {
	pnl := (exitPrice - p.EntryPrice) * p.Amount
	if p.Direction == Short {
		pnl = (p.EntryPrice - exitPrice) * p.Amount
	}
	pnlPct := 0.0
	if p.USDValue != 0 {
		pnlPct = pnl / p.USDValue * 100
	}
	tr := TradeRecord{
		ID:         id,
		Symbol:     p.Symbol,
		Strategy:   p.Strategy,
		Direction:  p.Direction,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Amount:     p.Amount,
		PnL:        pnl,
		PnLPercent: pnlPct,
		EntryTime:  p.EntryTime,
		ExitTime:   exitTime,
		DurationMs: exitTime.Sub(p.EntryTime).Milliseconds(),
	}
	tr.ResolveOutcome()
	return tr
}
