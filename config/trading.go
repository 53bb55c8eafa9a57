package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TradingConfig holds every user-adjustable trading threshold. It is treated
// as read-only input to every computation; changing it never mutates prior
// results. Values not present in the YAML file keep their defaults.
type TradingConfig struct {
	// Indicator periods
	FastMAPeriod   int `yaml:"fast_ma_period"`
	SlowMAPeriod   int `yaml:"slow_ma_period"`
	RSIPeriod      int `yaml:"rsi_period"`
	ADXPeriod      int `yaml:"adx_period"`
	ATRPeriod      int `yaml:"atr_period"`
	VolumeLookback int `yaml:"volume_lookback"`

	// Strategy thresholds
	ActiveStrategies    []string `yaml:"active_strategies"`
	BreakoutTolerance   float64  `yaml:"breakout_tolerance_pct"` // % band around S/R levels
	MinTrendStrength    float64  `yaml:"min_trend_strength"`     // ADX floor
	StrongTrendStrength float64  `yaml:"strong_trend_strength"`  // ADX bonus threshold
	PumpChangePct       float64  `yaml:"pump_change_pct"`        // short-horizon % move
	PumpVolumeMult      float64  `yaml:"pump_volume_mult"`       // × trailing average volume
	PumpCooldownMin     int      `yaml:"pump_cooldown_min"`

	// Stop/target distances in ATR multiples, per strategy
	BreakoutStopATR   float64 `yaml:"breakout_stop_atr"`
	BreakoutTargetATR float64 `yaml:"breakout_target_atr"`
	TrendStopATR      float64 `yaml:"trend_stop_atr"`
	TrendTargetATR    float64 `yaml:"trend_target_atr"`
	PumpStopATR       float64 `yaml:"pump_stop_atr"`
	PumpTargetATR     float64 `yaml:"pump_target_atr"`

	// Coordinator filters
	SignalCooldownMin   int     `yaml:"signal_cooldown_min"`
	MinTickerPrice      float64 `yaml:"min_ticker_price"`
	OptimalHoursEnabled bool    `yaml:"optimal_hours_enabled"`
	OptimalHours        []Hours `yaml:"optimal_hours"` // UTC windows
	MinSignalConfidence float64 `yaml:"min_signal_confidence"`

	// Risk manager
	DefaultMinConfidence float64 `yaml:"default_min_confidence"`
	BlackoutStartHour    int     `yaml:"blackout_start_hour"` // UTC, inclusive
	BlackoutEndHour      int     `yaml:"blackout_end_hour"`   // UTC, exclusive
	MaxOpenTrades        int     `yaml:"max_open_trades"`
	MaxDailyLossPct      float64 `yaml:"max_daily_loss_pct"`
	BaseRiskPct          float64 `yaml:"base_risk_pct"`
	MaxPositionPct       float64 `yaml:"max_position_pct"`
}

// Hours is an inclusive-exclusive [Start, End) hour window in UTC.
type Hours struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// DefaultTrading returns the built-in thresholds.
func DefaultTrading() *TradingConfig {
	return &TradingConfig{
		FastMAPeriod:   9,
		SlowMAPeriod:   21,
		RSIPeriod:      14,
		ADXPeriod:      14,
		ATRPeriod:      14,
		VolumeLookback: 20,

		ActiveStrategies:    []string{"breakout", "trend_follow", "pump_dump"},
		BreakoutTolerance:   2.0,
		MinTrendStrength:    25,
		StrongTrendStrength: 35,
		PumpChangePct:       2.0,
		PumpVolumeMult:      3.0,
		PumpCooldownMin:     10,

		BreakoutStopATR:   1.0,
		BreakoutTargetATR: 2.0,
		TrendStopATR:      2.0,
		TrendTargetATR:    3.0,
		PumpStopATR:       2.0,
		PumpTargetATR:     3.0,

		SignalCooldownMin:   15,
		MinTickerPrice:      0.01,
		OptimalHoursEnabled: false,
		OptimalHours:        []Hours{{Start: 7, End: 21}},
		MinSignalConfidence: 50,

		DefaultMinConfidence: 60,
		BlackoutStartHour:    0,
		BlackoutEndHour:      4,
		MaxOpenTrades:        5,
		MaxDailyLossPct:      10,
		BaseRiskPct:          2,
		MaxPositionPct:       10,
	}
}

// LoadTrading reads a TradingConfig from a YAML file, overlaying the
// defaults. An empty path returns the defaults unchanged.
func LoadTrading(path string) (*TradingConfig, error) {
	tc := DefaultTrading()
	if path == "" {
		return tc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trading config read: %w", err)
	}
	if err := yaml.Unmarshal(data, tc); err != nil {
		return nil, fmt.Errorf("trading config parse: %w", err)
	}
	return tc, nil
}
