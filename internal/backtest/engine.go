package backtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"signal-systemv1/config"
	"signal-systemv1/internal/indicator"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/strategy"
)

const (
	// warmupCandles is the minimum history before the first evaluation.
	warmupCandles = 50

	// maxWindow bounds the per-step candle slice handed to strategies.
	maxWindow = 200

	// entryMinConfidence gates simulated entries independently of the
	// coordinator's softer live filter.
	entryMinConfidence = 60.0

	// entryRiskFraction is the fixed per-trade balance fraction.
	entryRiskFraction = 0.02
)

// Options configures one backtest run.
type Options struct {
	Strategies     []string
	Symbols        []string
	Timeframe      string
	StartDate      time.Time
	EndDate        time.Time
	InitialBalance float64
	Leverage       float64
}

func (o *Options) normalize() error {
	if len(o.Symbols) == 0 {
		return fmt.Errorf("backtest: no symbols given")
	}
	if !o.EndDate.After(o.StartDate) {
		return fmt.Errorf("backtest: end date %s not after start date %s",
			o.EndDate.Format(time.RFC3339), o.StartDate.Format(time.RFC3339))
	}
	if o.Timeframe == "" {
		o.Timeframe = model.TF15m
	}
	if o.InitialBalance <= 0 {
		o.InitialBalance = 1000
	}
	if o.Leverage <= 0 {
		o.Leverage = 1
	}
	return nil
}

// Engine replays candle history through the coordinator. Symbols simulate
// independently and in parallel; one symbol's data failure never aborts the
// others.
type Engine struct {
	cfg     *config.TradingConfig
	candles model.CandleProvider
	met     *metrics.Metrics // nil disables collection
}

// NewEngine builds a backtest engine over a candle source. met may be nil.
func NewEngine(cfg *config.TradingConfig, candles model.CandleProvider, met *metrics.Metrics) *Engine {
	return &Engine{cfg: cfg, candles: candles, met: met}
}

// Run executes the backtest. Cancelling ctx stops the replay loops at the
// next candle boundary and returns the partial result with Partial set;
// the only error returns are option validation and strategy construction.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}

	cfg := e.cfg
	if len(opts.Strategies) > 0 {
		clone := *cfg
		clone.ActiveStrategies = opts.Strategies
		cfg = &clone
	}
	// Fresh strategy instances per run: pump/dump carries cooldown state
	// that must not leak between runs.
	strats, err := strategy.Active(cfg)
	if err != nil {
		return nil, err
	}
	coord := strategy.NewCoordinator(cfg, strats, nil)

	start := time.Now()
	results := make([]SymbolResult, len(opts.Symbols))
	var wg sync.WaitGroup
	for i, symbol := range opts.Symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			results[i] = e.runSymbol(ctx, coord, opts, symbol)
		}(i, symbol)
	}
	wg.Wait()

	if e.met != nil {
		e.met.BacktestDur.Observe(time.Since(start).Seconds())
	}

	res := aggregate(opts, results, ctx.Err() != nil)
	slog.Info("[backtest] run complete",
		"symbols", len(opts.Symbols),
		"trades", res.TotalTrades,
		"profit", res.TotalProfit,
		"partial", res.Partial,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

// runSymbol simulates one symbol end to end. Exits are evaluated before
// entries on every candle, so a position can never be opened and closed on
// data it has not seen.
func (e *Engine) runSymbol(ctx context.Context, coord *strategy.Coordinator, opts Options, symbol string) SymbolResult {
	sr := SymbolResult{
		Symbol:       symbol,
		FinalBalance: opts.InitialBalance,
		EquityCurve:  []float64{opts.InitialBalance},
	}

	candles, err := e.candles.GetCandles(ctx, symbol, opts.Timeframe, opts.StartDate, opts.EndDate)
	if err != nil {
		slog.Warn("[backtest] candle load failed", "symbol", symbol, "error", err)
		sr.Err = err.Error()
		return sr
	}
	if len(candles) <= warmupCandles {
		slog.Warn("[backtest] not enough history", "symbol", symbol, "candles", len(candles))
		return sr
	}

	ids := newIDGen(symbol, opts.StartDate)
	balance := opts.InitialBalance
	var pos *model.Position

	record := func(tr model.TradeRecord) {
		balance += tr.PnL
		sr.Trades = append(sr.Trades, tr)
		sr.EquityCurve = append(sr.EquityCurve, balance)
		pos = nil
		if e.met != nil {
			e.met.TradesSimulated.Inc()
		}
	}

	for i := warmupCandles; i < len(candles); i++ {
		if ctx.Err() != nil {
			break
		}
		candle := candles[i]

		if pos != nil {
			if exitPrice, hit := exitTouched(pos, candle); hit {
				record(pos.Close(ids.next(candle.TS), exitPrice, candle.TS))
			}
		}
		if pos != nil {
			continue
		}

		lo := i + 1 - maxWindow
		if lo < 0 {
			lo = 0
		}
		window := candles[lo : i+1]
		in := strategy.Input{
			Symbol: symbol,
			Candles: map[string][]model.Candle{
				model.TF5m:     window,
				model.TF15m:    window,
				opts.Timeframe: window,
			},
			Ticker: model.Ticker{
				Symbol: symbol,
				Price:  candle.Close,
				Volume: candle.Volume,
				TS:     candle.TS,
			},
		}
		if snr, ok := indicator.SupportResistance(window); ok {
			in.SNR = snr
		}

		sig := coord.Select(in)
		if sig == nil || sig.Confidence < entryMinConfidence {
			continue
		}
		pos = openPosition(sig, balance, opts.Leverage, candle.TS)
	}

	// Force-close whatever is still open at the final candle's close.
	if pos != nil {
		last := candles[len(candles)-1]
		record(pos.Close(ids.next(last.TS), last.Close, last.TS))
	}

	sr.FinalBalance = balance
	return sr
}

// exitTouched reports whether the candle's range touched the position's
// target or stop, returning the exit price. The target is checked first.
func exitTouched(pos *model.Position, c model.Candle) (float64, bool) {
	if pos.Direction == model.Long {
		if c.High >= pos.TakeProfit {
			return pos.TakeProfit, true
		}
		if c.Low <= pos.StopLoss {
			return pos.StopLoss, true
		}
		return 0, false
	}
	if c.Low <= pos.TakeProfit {
		return pos.TakeProfit, true
	}
	if c.High >= pos.StopLoss {
		return pos.StopLoss, true
	}
	return 0, false
}

// openPosition sizes an entry at the fixed balance fraction times leverage.
func openPosition(sig *model.Signal, balance, leverage float64, ts time.Time) *model.Position {
	entry := sig.EntryPrice
	if entry <= 0 {
		return nil
	}
	usd := balance * entryRiskFraction * leverage
	return &model.Position{
		Symbol:     sig.Symbol,
		Strategy:   sig.Strategy,
		Direction:  sig.Direction,
		EntryPrice: entry,
		EntryTime:  ts,
		Amount:     usd / entry,
		USDValue:   usd,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Leverage:   leverage,
	}
}

// idGen mints trade ULIDs from entropy seeded by symbol and start date, so
// identical inputs replay to identical trade IDs.
type idGen struct {
	entropy *ulid.MonotonicEntropy
}

func newIDGen(symbol string, start time.Time) *idGen {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	seed := int64(h.Sum64()) ^ start.UnixNano()
	return &idGen{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

func (g *idGen) next(ts time.Time) string {
	return ulid.MustNew(ulid.Timestamp(ts), g.entropy).String()
}
