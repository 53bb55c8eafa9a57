package risk

import (
	"math"

	"signal-systemv1/internal/model"
	"signal-systemv1/internal/strategy"
)

// positionFraction computes the balance fraction to deploy: the profile's
// base risk fraction scaled by confidence tier and strategy, capped at the
// configured maximum.
func (m *Manager) positionFraction(sig *model.Signal, profile model.RiskProfileSnapshot) float64 {
	base := profile.RiskFraction
	if base == 0 {
		base = m.cfg.BaseRiskPct / 100
	}

	fraction := base * confidenceMultiplier(sig.Confidence) * strategyMultiplier(sig.Strategy)

	cap := m.cfg.MaxPositionPct / 100
	if fraction > cap {
		fraction = cap
	}
	return fraction
}

// confidenceMultiplier scales position size by confidence tier.
func confidenceMultiplier(confidence float64) float64 {
	switch {
	case confidence >= 80:
		return 1.2
	case confidence >= 70:
		return 1.0
	case confidence >= 60:
		return 0.8
	default:
		return 0.5
	}
}

// strategyMultiplier reflects how much slippage/uncertainty each strategy
// carries relative to breakout entries.
func strategyMultiplier(name string) float64 {
	switch name {
	case strategy.NameTrendFollow:
		return 1.1
	case strategy.NamePumpDump:
		return 0.7
	default:
		return 1.0
	}
}

// roundAmount rounds a unit amount to a precision tier based on magnitude:
// whole units get 2 decimals, small altcoin/large-price amounts get more.
func roundAmount(amount float64) float64 {
	var decimals int
	switch {
	case amount >= 1:
		decimals = 2
	case amount >= 0.01:
		decimals = 4
	case amount >= 0.001:
		decimals = 6
	default:
		decimals = 8
	}
	pow := math.Pow10(decimals)
	return math.Round(amount*pow) / pow
}
