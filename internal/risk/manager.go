package risk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signal-systemv1/config"
	"signal-systemv1/internal/markethours"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/strategy"
)

// Assessment is the outcome of running a signal through the risk checks.
// Rejections list every violated rule, not just the first.
type Assessment struct {
	Approved         bool     `json:"approved"`
	PositionUSD      float64  `json:"position_usd,omitempty"`
	UnitAmount       float64  `json:"unit_amount,omitempty"`
	PositionFraction float64  `json:"position_fraction,omitempty"`
	RiskScore        float64  `json:"risk_score,omitempty"`
	RejectionReasons []string `json:"rejection_reasons,omitempty"`
}

// Reason returns the concatenated rejection reasons.
func (a *Assessment) Reason() string {
	return strings.Join(a.RejectionReasons, "; ")
}

// Manager validates signals against a user's risk profile and exposure
// limits. All checks run independently so a rejection reports every
// violated constraint at once.
type Manager struct {
	cfg      *config.TradingConfig
	profiles *ProfileCache
	balances model.BalanceProvider
	open     model.OpenTradesProvider
	met      *metrics.Metrics

	// now is the evaluation clock; overridden in tests and by backtests.
	now func() time.Time
}

// NewManager builds a risk manager. met may be nil.
func NewManager(cfg *config.TradingConfig, profiles *ProfileCache,
	balances model.BalanceProvider, open model.OpenTradesProvider, met *metrics.Metrics) *Manager {
	return &Manager{
		cfg:      cfg,
		profiles: profiles,
		balances: balances,
		open:     open,
		met:      met,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the evaluation clock (deterministic assessments).
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Assess runs every check against the signal for the user. Provider
// failures are hard errors; rule violations are a structured rejection,
// not a failure of the call itself.
func (m *Manager) Assess(ctx context.Context, sig *model.Signal, userID string) (Assessment, error) {
	profile, err := m.profiles.Get(ctx, userID)
	if err != nil {
		return Assessment{}, err
	}
	balance, err := m.balances.GetBalance(ctx, userID)
	if err != nil {
		return Assessment{}, fmt.Errorf("balance load: %w", err)
	}
	openCount, err := m.open.OpenTradeCount(ctx, userID)
	if err != nil {
		return Assessment{}, fmt.Errorf("open trades load: %w", err)
	}
	lossToday, err := m.open.RealizedLossToday(ctx, userID)
	if err != nil {
		return Assessment{}, fmt.Errorf("daily loss load: %w", err)
	}

	minConf := profile.MinConfidence
	if minConf == 0 {
		minConf = m.cfg.DefaultMinConfidence
	}

	var reasons []string
	reject := func(rule, msg string) {
		reasons = append(reasons, msg)
		if m.met != nil {
			m.met.RiskRejections.WithLabelValues(rule).Inc()
		}
	}

	if sig.Confidence < minConf {
		reject("min_confidence",
			fmt.Sprintf("confidence %.1f below minimum %.1f", sig.Confidence, minConf))
	}
	if sig.VolumeStrength == model.VolumeLow {
		reject("low_volume", "signal volume too low")
	}
	if markethours.InBlackout(m.now(), m.cfg.BlackoutStartHour, m.cfg.BlackoutEndHour) {
		reject("blackout",
			fmt.Sprintf("inside low-liquidity blackout window %02d:00–%02d:00 UTC",
				m.cfg.BlackoutStartHour, m.cfg.BlackoutEndHour))
	}
	if openCount >= m.cfg.MaxOpenTrades {
		reject("open_trades",
			fmt.Sprintf("open trade limit reached (%d/%d)", openCount, m.cfg.MaxOpenTrades))
	}
	if balance > 0 {
		lossPct := lossToday / balance * 100
		if lossPct >= m.cfg.MaxDailyLossPct {
			reject("daily_loss",
				fmt.Sprintf("daily loss %.1f%% at or above %.1f%% cap", lossPct, m.cfg.MaxDailyLossPct))
		}
	}

	if len(reasons) > 0 {
		return Assessment{Approved: false, RejectionReasons: reasons}, nil
	}

	fraction := m.positionFraction(sig, profile)
	usd := balance * fraction
	amount := 0.0
	if sig.EntryPrice > 0 {
		amount = roundAmount(usd / sig.EntryPrice)
	}

	if m.met != nil {
		m.met.RiskApprovals.Inc()
	}
	return Assessment{
		Approved:         true,
		PositionUSD:      usd,
		UnitAmount:       amount,
		PositionFraction: fraction,
		RiskScore:        m.riskScore(sig, profile),
	}, nil
}

// riskScore grades residual risk 0–100: higher is safer. Starts at 100
// and is penalized for low confidence and weak volume, adjusted per
// strategy and risk profile, then clamped.
func (m *Manager) riskScore(sig *model.Signal, profile model.RiskProfileSnapshot) float64 {
	score := 100.0
	score -= (100 - sig.Confidence) * 0.5

	switch sig.VolumeStrength {
	case model.VolumeMedium:
		score -= 5
	case model.VolumeLow:
		score -= 15
	}

	switch sig.Strategy {
	case strategy.NameTrendFollow:
		score += 5
	case strategy.NamePumpDump:
		score -= 10
	}

	switch profile.RiskLevel {
	case LevelConservative:
		score += 5
	case LevelAggressive:
		score -= 10
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
