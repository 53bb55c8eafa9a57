// Package strategy provides the signal-generating strategies and the
// coordinator that runs them.
//
// A Strategy is a pure evaluation over a candle window: it receives candles,
// a ticker, and support/resistance levels, and proposes at most one
// directional trade. Strategies never raise on malformed input; they return
// nil ("no proposal") instead.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"signal-systemv1/config"
	"signal-systemv1/internal/model"
)

// Input is everything a strategy may consult for one evaluation.
// Candles are keyed by timeframe, oldest first. Ticker.TS doubles as the
// evaluation clock so backtests stay deterministic.
type Input struct {
	Symbol  string
	Candles map[string][]model.Candle
	Ticker  model.Ticker
	SNR     model.SupportResistance
}

// Window returns the candle window for a timeframe, or nil if absent.
func (in *Input) Window(tf string) []model.Candle {
	return in.Candles[tf]
}

// Strategy is the common contract all signal generators implement.
type Strategy interface {
	// Name returns the registry name of the strategy.
	Name() string

	// Analyze proposes at most one directional trade for the input.
	// A nil return means "no proposal" (including insufficient data).
	Analyze(in Input) *model.SignalProposal
}

// Registry names.
const (
	NameBreakout    = "breakout"
	NameTrendFollow = "trend_follow"
	NamePumpDump    = "pump_dump"
)

// New constructs a strategy by registry name. Unknown names are a caller
// error and fail the specific request.
func New(name string, cfg *config.TradingConfig) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameBreakout:
		return NewBreakout(cfg), nil
	case NameTrendFollow, "trendfollow", "trend-follow":
		return NewTrendFollow(cfg), nil
	case NamePumpDump, "pumpdump", "pump-dump":
		return NewPumpDump(cfg), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: %s, %s, %s)",
			name, NameBreakout, NameTrendFollow, NamePumpDump)
	}
}

// Active builds the configured strategy set, preserving the declaration
// order of cfg.ActiveStrategies (the coordinator's tie-break order).
func Active(cfg *config.TradingConfig) ([]Strategy, error) {
	out := make([]Strategy, 0, len(cfg.ActiveStrategies))
	for _, name := range cfg.ActiveStrategies {
		s, err := New(name, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// clampConfidence caps a confidence score into [0, 100].
func clampConfidence(c float64) float64 {
	if c > 100 {
		return 100
	}
	if c < 0 {
		return 0
	}
	return c
}

// riskReward is the reward distance over the risk distance. Returns 0 when
// the risk distance is 0, never a division failure.
func riskReward(entry, stop, target float64) float64 {
	risk := entry - stop
	if risk < 0 {
		risk = -risk
	}
	if risk == 0 {
		return 0
	}
	reward := target - entry
	if reward < 0 {
		reward = -reward
	}
	return reward / risk
}

// evalTime returns the evaluation clock: the ticker timestamp when set,
// wall time otherwise.
func evalTime(in Input) time.Time {
	if !in.Ticker.TS.IsZero() {
		return in.Ticker.TS
	}
	return time.Now().UTC()
}
