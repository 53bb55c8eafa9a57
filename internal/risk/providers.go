package risk

import (
	"context"
	"sync"
	"time"

	"signal-systemv1/internal/model"
)

// StaticProfileProvider serves the same profile shape for every user,
// derived from a risk level. Used when no account service is wired in.
type StaticProfileProvider struct {
	Level string
}

func (p StaticProfileProvider) GetRiskProfile(_ context.Context, userID string) (model.RiskProfileSnapshot, error) {
	snap := model.RiskProfileSnapshot{UserID: userID, RiskLevel: p.Level}
	switch p.Level {
	case LevelConservative:
		snap.RiskFraction = 0.01
		snap.MinConfidence = 70
	case LevelAggressive:
		snap.RiskFraction = 0.03
		snap.MinConfidence = 55
	default:
		snap.RiskLevel = LevelBalanced
		snap.RiskFraction = 0.02
	}
	return snap, nil
}

// StaticBalanceProvider returns a fixed balance for every user.
type StaticBalanceProvider struct {
	Balance float64
}

func (p StaticBalanceProvider) GetBalance(context.Context, string) (float64, error) {
	return p.Balance, nil
}

// MemoryTradeBook tracks open-trade counts and realized daily losses in
// memory, satisfying OpenTradesProvider for the live engine.
type MemoryTradeBook struct {
	mu        sync.Mutex
	openByUsr map[string]int
	lossByUsr map[string]float64
	lossDay   map[string]string // userID → YYYY-MM-DD the loss total belongs to
}

// NewMemoryTradeBook creates an empty trade book.
func NewMemoryTradeBook() *MemoryTradeBook {
	return &MemoryTradeBook{
		openByUsr: make(map[string]int),
		lossByUsr: make(map[string]float64),
		lossDay:   make(map[string]string),
	}
}

func (b *MemoryTradeBook) OpenTradeCount(_ context.Context, userID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openByUsr[userID], nil
}

func (b *MemoryTradeBook) RealizedLossToday(_ context.Context, userID string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lossDay[userID] != today() {
		return 0, nil
	}
	return b.lossByUsr[userID], nil
}

// Opened records a newly opened trade.
func (b *MemoryTradeBook) Opened(userID string) {
	b.mu.Lock()
	b.openByUsr[userID]++
	b.mu.Unlock()
}

// Closed records a trade close; losing trades feed the daily-loss total,
// which resets lazily at the first write of a new day.
func (b *MemoryTradeBook) Closed(userID string, pnl float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openByUsr[userID] > 0 {
		b.openByUsr[userID]--
	}
	if pnl >= 0 {
		return
	}
	d := today()
	if b.lossDay[userID] != d {
		b.lossDay[userID] = d
		b.lossByUsr[userID] = 0
	}
	b.lossByUsr[userID] += -pnl
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}
