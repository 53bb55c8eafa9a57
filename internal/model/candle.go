// Package model defines the shared domain types: candles, tickers, signal
// proposals, positions, and trade records. Types here carry no behaviour
// beyond small derived accessors so every package can depend on them without
// import cycles.
package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV interval for a single symbol.
// Candles are immutable once produced and arrive as an ordered
// sequence, oldest first.
type Candle struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bucket start time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Ticker is the latest market snapshot for a symbol, used as the live price
// reference during evaluation.
type Ticker struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"` // last interval volume
	TS     time.Time `json:"ts"`
}

// Timeframe labels used to key multi-timeframe candle windows.
const (
	TF5m  = "5m"
	TF15m = "15m"
	TF1h  = "1h"
)
