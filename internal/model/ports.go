package model

import (
	"context"
	"time"
)

// ── Collaborator Port Interfaces ──
// These interfaces decouple the evaluation core from the concrete providers
// that surround it (SQLite, Redis, the web layer). The core never performs
// network or disk I/O itself; it is handed data through these ports.

// CandleProvider supplies ordered historical candles for a symbol.
type CandleProvider interface {
	// GetCandles returns candles for [start, end), oldest first.
	// An empty slice is a valid result, not an error.
	GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]Candle, error)
}

// RiskProfileSnapshot is the per-user risk configuration handed to the
// risk manager. MinConfidence of 0 means "use the default".
type RiskProfileSnapshot struct {
	UserID        string  `json:"user_id"`
	RiskLevel     string  `json:"risk_level"` // conservative, balanced, aggressive
	RiskFraction  float64 `json:"risk_fraction"`
	MinConfidence float64 `json:"min_confidence"`
}

// RiskProfileProvider loads a user's risk profile. Results are cached by
// the risk manager; callers needing freshness must bypass the cache.
type RiskProfileProvider interface {
	GetRiskProfile(ctx context.Context, userID string) (RiskProfileSnapshot, error)
}

// BalanceProvider reports a user's current account balance in USD.
type BalanceProvider interface {
	GetBalance(ctx context.Context, userID string) (float64, error)
}

// OpenTradesProvider reports the user's live open trades and realized
// losses, used by the risk manager's exposure checks.
type OpenTradesProvider interface {
	// OpenTradeCount returns the number of currently-open trades.
	OpenTradeCount(ctx context.Context, userID string) (int, error)

	// RealizedLossToday returns the sum of negative PnL since local
	// midnight, as a positive number.
	RealizedLossToday(ctx context.Context, userID string) (float64, error)
}

// SignalPublisher delivers enriched signals to external consumers.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, sig Signal) error
}

// TradeWriter persists completed trade records.
type TradeWriter interface {
	WriteTrades(ctx context.Context, trades []TradeRecord) error
}
