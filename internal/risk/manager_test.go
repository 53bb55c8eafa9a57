package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-systemv1/config"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/strategy"
)

// noon sits outside the default 00:00–04:00 UTC blackout.
var noon = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

func testSignal(confidence float64) *model.Signal {
	return &model.Signal{
		SignalProposal: model.SignalProposal{
			Symbol:     "BTCUSDT",
			Direction:  model.Long,
			Confidence: confidence,
			EntryPrice: 50000,
			Strategy:   strategy.NameBreakout,
		},
		VolumeStrength: model.VolumeStrong,
	}
}

func testManager(level string, balance float64, book *MemoryTradeBook) *Manager {
	if book == nil {
		book = NewMemoryTradeBook()
	}
	m := NewManager(config.DefaultTrading(),
		NewProfileCache(StaticProfileProvider{Level: level}),
		StaticBalanceProvider{Balance: balance},
		book, nil)
	m.SetClock(func() time.Time { return noon })
	return m
}

func TestAssessApproves(t *testing.T) {
	m := testManager(LevelBalanced, 1000, nil)

	a, err := m.Assess(context.Background(), testSignal(85), "u1")
	require.NoError(t, err)
	require.True(t, a.Approved, "unexpected rejection: %s", a.Reason())
	assert.Empty(t, a.RejectionReasons)

	// 0.02 base × 1.2 confidence tier × 1.0 breakout.
	assert.InDelta(t, 0.024, a.PositionFraction, 1e-9)
	assert.InDelta(t, 24.0, a.PositionUSD, 1e-9)
	assert.InDelta(t, 0.00048, a.UnitAmount, 1e-12) // 24/50000
	assert.InDelta(t, 92.5, a.RiskScore, 1e-9)    // 100 − (100−85)×0.5
}

func TestAssessCollectsEveryRejection(t *testing.T) {
	book := NewMemoryTradeBook()
	book.Closed("u1", -150) // 15% of the 1000 balance, past the 10% cap
	for i := 0; i < 5; i++ {
		book.Opened("u1")
	}

	m := testManager(LevelBalanced, 1000, book)
	m.SetClock(func() time.Time {
		return time.Date(2025, 3, 3, 2, 0, 0, 0, time.UTC) // inside blackout
	})

	sig := testSignal(55) // below the default minimum of 60
	sig.VolumeStrength = model.VolumeLow

	a, err := m.Assess(context.Background(), sig, "u1")
	require.NoError(t, err)
	require.False(t, a.Approved)
	assert.Len(t, a.RejectionReasons, 5, "every violated rule is reported: %s", a.Reason())
	assert.NotEmpty(t, a.Reason())
	assert.Zero(t, a.PositionUSD)
}

func TestAssessMinConfidencePerProfile(t *testing.T) {
	m := testManager(LevelConservative, 1000, nil) // minimum confidence 70

	a, err := m.Assess(context.Background(), testSignal(65), "u1")
	require.NoError(t, err)
	assert.False(t, a.Approved)
	assert.NotEmpty(t, a.Reason())

	a, err = m.Assess(context.Background(), testSignal(75), "u1")
	require.NoError(t, err)
	assert.True(t, a.Approved)
}

func TestAssessOpenTradeLimitBeatsConfidence(t *testing.T) {
	book := NewMemoryTradeBook()
	for i := 0; i < 5; i++ {
		book.Opened("u1")
	}
	m := testManager(LevelBalanced, 1000, book)

	a, err := m.Assess(context.Background(), testSignal(100), "u1")
	require.NoError(t, err)
	assert.False(t, a.Approved, "limit applies regardless of confidence")

	book.Closed("u1", 10)
	a, err = m.Assess(context.Background(), testSignal(100), "u1")
	require.NoError(t, err)
	assert.True(t, a.Approved)
}

func TestPositionFractionCapped(t *testing.T) {
	m := testManager(LevelAggressive, 1000, nil)
	m.cfg.MaxPositionPct = 2 // force the cap below 0.03 × 1.2

	a, err := m.Assess(context.Background(), testSignal(85), "u1")
	require.NoError(t, err)
	require.True(t, a.Approved)
	assert.InDelta(t, 0.02, a.PositionFraction, 1e-9)
}

func TestConfidenceMultiplierTiers(t *testing.T) {
	assert.Equal(t, 1.2, confidenceMultiplier(80))
	assert.Equal(t, 1.0, confidenceMultiplier(79.9))
	assert.Equal(t, 1.0, confidenceMultiplier(70))
	assert.Equal(t, 0.8, confidenceMultiplier(60))
	assert.Equal(t, 0.5, confidenceMultiplier(59))
}

func TestStrategyMultiplier(t *testing.T) {
	assert.Equal(t, 1.1, strategyMultiplier(strategy.NameTrendFollow))
	assert.Equal(t, 0.7, strategyMultiplier(strategy.NamePumpDump))
	assert.Equal(t, 1.0, strategyMultiplier(strategy.NameBreakout))
}

func TestRoundAmountPrecisionTiers(t *testing.T) {
	assert.Equal(t, 12.35, roundAmount(12.34567))      // ≥ 1 → 2 decimals
	assert.Equal(t, 0.0123, roundAmount(0.0123456))    // ≥ 0.01 → 4
	assert.Equal(t, 0.001235, roundAmount(0.00123456)) // ≥ 0.001 → 6
	assert.Equal(t, 0.00012346, roundAmount(0.000123456))
}

func TestRiskScoreAdjustments(t *testing.T) {
	m := testManager(LevelBalanced, 1000, nil)
	profile := model.RiskProfileSnapshot{RiskLevel: LevelBalanced}

	sig := testSignal(100)
	assert.Equal(t, 100.0, m.riskScore(sig, profile))

	sig.VolumeStrength = model.VolumeMedium
	assert.Equal(t, 95.0, m.riskScore(sig, profile))

	sig.Strategy = strategy.NamePumpDump
	assert.Equal(t, 85.0, m.riskScore(sig, profile))

	profile.RiskLevel = LevelAggressive
	assert.Equal(t, 75.0, m.riskScore(sig, profile))

	// Clamped at zero for the worst combination.
	worst := testSignal(0)
	worst.VolumeStrength = model.VolumeLow
	worst.Strategy = strategy.NamePumpDump
	assert.Equal(t, 0.0, m.riskScore(worst, model.RiskProfileSnapshot{RiskLevel: LevelAggressive}))
}

// countingProvider counts upstream profile loads behind the cache.
type countingProvider struct{ calls int }

func (p *countingProvider) GetRiskProfile(_ context.Context, userID string) (model.RiskProfileSnapshot, error) {
	p.calls++
	return model.RiskProfileSnapshot{UserID: userID, RiskLevel: LevelBalanced, RiskFraction: 0.02}, nil
}

func TestProfileCache(t *testing.T) {
	p := &countingProvider{}
	c := NewProfileCache(p)
	ctx := context.Background()

	_, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	_, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls, "second read served from cache")

	c.Invalidate("u1")
	_, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)

	_, err = c.Refresh(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.calls)
}
